package ssp

import (
	"fmt"
	"iter"
)

// Kind tags the variant of a Node.
type Kind uint8

const (
	// KindNormal is a node without special behavior.
	KindNormal Kind = iota

	// KindTransparent is a node whose deliver action receives every byte
	// fed to the parser while the node is current, whatever the result.
	KindTransparent
)

// String returns the lower-case name used in tree files.
func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindTransparent:
		return "transparent"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MatchFunc is invoked when a branch pattern has been fully matched.
// n is the number of bytes matched on the branch.
type MatchFunc func(n int)

// DeliverFunc is the per-byte action of a transparent node.
type DeliverFunc func(c byte)

// Node is a vertex of a Tree. Nodes are created by a Builder and are
// immutable afterwards.
type Node struct {
	name     string
	kind     Kind
	deliver  DeliverFunc // transparent only
	branches []Branch
}

// Name returns the node name given at declaration.
func (n *Node) Name() string { return n.name }

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Transparent reports whether the node is a transparent node.
func (n *Node) Transparent() bool { return n.kind == KindTransparent }

// Len returns the number of branches of the node.
func (n *Node) Len() int { return len(n.branches) }

// Branch returns the i-th branch in declaration order.
func (n *Node) Branch(i int) *Branch { return &n.branches[i] }

// Branches iterates over the branches in declaration (priority) order.
func (n *Node) Branches() iter.Seq2[int, *Branch] {
	return func(yield func(int, *Branch) bool) {
		for i := range n.branches {
			if !yield(i, &n.branches[i]) {
				return
			}
		}
	}
}

func (n *Node) String() string { return n.name }

// Branch is a pattern-labeled edge leaving a node.
type Branch struct {
	pattern []byte
	onMatch MatchFunc
	target  *Node // nil: stay at the current node
}

// Pattern returns a copy of the branch pattern.
func (b *Branch) Pattern() []byte {
	p := make([]byte, len(b.pattern))
	copy(p, b.pattern)
	return p
}

// Target returns the node reached when the branch matches, or nil if the
// parser stays at the current node.
func (b *Branch) Target() *Node { return b.target }

// HasAction reports whether the branch carries an on-match action.
func (b *Branch) HasAction() bool { return b.onMatch != nil }

func (b *Branch) String() string {
	target := "."
	if b.target != nil {
		target = b.target.name
	}
	return fmt.Sprintf("%q -> %s", b.pattern, target)
}

// Tree owns every node of a pattern tree. Branch targets point into the
// tree's own node storage, so cycles and back references are allowed.
//
// A Tree is never modified after Build and is safe for concurrent use by
// any number of Parsers.
type Tree struct {
	nodes []Node
	index map[string]int
	root  *Node
}

// Root returns the root node chosen at build time.
func (t *Tree) Root() *Node { return t.root }

// Node looks up a node by name.
func (t *Tree) Node(name string) (*Node, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.nodes[i], true
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes iterates over the nodes in declaration order.
func (t *Tree) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for i := range t.nodes {
			if !yield(&t.nodes[i]) {
				return
			}
		}
	}
}
