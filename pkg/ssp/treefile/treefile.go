// Package treefile loads search trees from YAML description files.
//
// A tree file lists nodes and their branches by name. Actions are referred
// to by name too and bound to functions at compile time through an
// [ActionResolver], so the same file can drive built-in actions, test
// recorders or plugin exports.
package treefile

// TreeFile is the decoded form of a YAML tree description.
//
// Example YAML file:
//
//	version: 1
//	root: root
//	nodes:
//	  - name: root
//	    branches:
//	      - {pattern: "ok", target: node_ok}
//	      - {pattern: "no", target: node_no}
//	  - name: node_trn
//	    kind: transparent
//	    deliver: collect
//	    branches:
//	      - {pattern: "ok", action: emit, target: root}
type TreeFile struct {
	// Version is the file format version. Only version 1 is supported.
	Version int `yaml:"version"`

	// Root names the node the parser starts at. Defaults to the first node.
	Root string `yaml:"root,omitempty"`

	Nodes []NodeSpec `yaml:"nodes"`
}

// NodeSpec describes one node.
type NodeSpec struct {
	// Name is unique within the file and is what branch targets refer to.
	Name string `yaml:"name"`

	// Kind is "normal" (the default) or "transparent".
	Kind string `yaml:"kind,omitempty"`

	// Deliver names the action that receives every byte seen at a
	// transparent node.
	Deliver string `yaml:"deliver,omitempty"`

	// Branches are tried in the order listed.
	Branches []BranchSpec `yaml:"branches"`
}

// BranchSpec describes one branch of a node.
type BranchSpec struct {
	Pattern string `yaml:"pattern"`

	// Action names the function run with the match length. Optional.
	Action string `yaml:"action,omitempty"`

	// Target names the node entered on a match. Empty stays at the node.
	Target string `yaml:"target,omitempty"`
}

const (
	kindNormal      = "normal"
	kindTransparent = "transparent"
)

// RootName returns the name of the start node.
func (tf *TreeFile) RootName() string {
	if tf.Root != "" {
		return tf.Root
	}
	if len(tf.Nodes) > 0 {
		return tf.Nodes[0].Name
	}
	return ""
}

// BranchCount returns the number of branches across all nodes.
func (tf *TreeFile) BranchCount() int {
	n := 0
	for _, node := range tf.Nodes {
		n += len(node.Branches)
	}
	return n
}

// Transparent reports whether the node is declared transparent.
func (ns *NodeSpec) Transparent() bool {
	return ns.Kind == kindTransparent
}
