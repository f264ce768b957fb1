package ssp

import "fmt"

// MaxPatternLength is the longest branch pattern accepted by Build, so that
// a match length always fits in one byte.
const MaxPatternLength = 255

// Builder assembles a Tree from a declarative description.
//
// Nodes may be referenced as branch targets before they are declared, so a
// description can be written top-down and may form cycles. Build resolves
// all references at once and returns an immutable Tree.
//
// Example:
//
//	b := ssp.NewBuilder()
//	b.Node("root").
//	    Branch("ok", nil, "node_ok").
//	    Branch("no", nil, "node_no")
//	b.Node("node_ok").Branch("error", nil, "")
//	b.Node("node_no").Branch("+", nil, "root")
//	tree, err := b.Build()
type Builder struct {
	nodes map[string]*NodeBuilder
	order []*NodeBuilder
	root  string
}

// NewBuilder creates an empty tree builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Node declares a normal node. If the node already exists, the existing
// builder is returned unchanged.
func (b *Builder) Node(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{name: name, kind: KindNormal}
	b.nodes[name] = nb
	b.order = append(b.order, nb)
	return nb
}

// Transparent declares a transparent node with an optional deliver action.
// Calling it on an existing node turns that node transparent.
func (b *Builder) Transparent(name string, deliver DeliverFunc) *NodeBuilder {
	nb := b.Node(name)
	nb.kind = KindTransparent
	nb.deliver = deliver
	return nb
}

// Root selects the root node. By default the first declared node is the root.
func (b *Builder) Root(name string) *Builder {
	b.root = name
	return b
}

// Build resolves branch targets and returns the frozen tree.
func (b *Builder) Build() (*Tree, error) {
	if len(b.order) == 0 {
		return nil, ErrEmptyTree
	}

	// Allocate every node first so that targets can point anywhere.
	t := &Tree{
		nodes: make([]Node, len(b.order)),
		index: make(map[string]int, len(b.order)),
	}
	for i, nb := range b.order {
		if nb.name == "" {
			return nil, &BuildError{Branch: -1, Field: "name", Message: "name is required"}
		}
		t.index[nb.name] = i
		t.nodes[i] = Node{
			name: nb.name,
			kind: nb.kind,
		}
		if nb.kind == KindTransparent {
			t.nodes[i].deliver = nb.deliver
		}
	}

	// Resolve branch targets.
	for i, nb := range b.order {
		branches := make([]Branch, len(nb.branches))
		for j, sb := range nb.branches {
			if len(sb.pattern) == 0 {
				return nil, &BuildError{Node: nb.name, Branch: j, Field: "pattern", Message: "pattern is empty"}
			}
			if len(sb.pattern) > MaxPatternLength {
				return nil, &BuildError{
					Node:    nb.name,
					Branch:  j,
					Field:   "pattern",
					Message: fmt.Sprintf("pattern too long: %d bytes (max %d)", len(sb.pattern), MaxPatternLength),
				}
			}
			var target *Node
			if sb.target != "" {
				k, ok := t.index[sb.target]
				if !ok {
					return nil, &BuildError{
						Node:    nb.name,
						Branch:  j,
						Field:   "target",
						Message: fmt.Sprintf("unknown node %q", sb.target),
					}
				}
				target = &t.nodes[k]
			}
			branches[j] = Branch{
				pattern: []byte(sb.pattern),
				onMatch: sb.onMatch,
				target:  target,
			}
		}
		t.nodes[i].branches = branches
	}

	t.root = &t.nodes[0]
	if b.root != "" {
		k, ok := t.index[b.root]
		if !ok {
			return nil, &BuildError{Node: b.root, Branch: -1, Field: "root", Message: "root node is not declared"}
		}
		t.root = &t.nodes[k]
	}
	return t, nil
}

// NodeBuilder configures the branch table of one node.
type NodeBuilder struct {
	name     string
	kind     Kind
	deliver  DeliverFunc
	branches []branchSpec
}

type branchSpec struct {
	pattern string
	onMatch MatchFunc
	target  string
}

// Branch appends a branch. Branch order is match priority order.
// An empty target keeps the parser at the current node when the branch matches.
func (n *NodeBuilder) Branch(pattern string, onMatch MatchFunc, target string) *NodeBuilder {
	n.branches = append(n.branches, branchSpec{
		pattern: pattern,
		onMatch: onMatch,
		target:  target,
	})
	return n
}
