package ssp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned by Init when the parser or the root
	// node is nil.
	ErrInvalidArgument = errors.New("ssp: invalid argument")

	// ErrNotInitialized is returned by Write and Feed on a parser that has
	// not been bound to a root node.
	ErrNotInitialized = errors.New("ssp: parser not initialized")

	// ErrEmptyTree is returned by Build when no node was declared.
	ErrEmptyTree = errors.New("ssp: tree has no nodes")
)

// BuildError describes a problem found while building a Tree.
type BuildError struct {
	Node    string // node name (may be empty if the name itself is missing)
	Branch  int    // 0-based branch index, -1 for node-level errors
	Field   string
	Message string
}

func (e *BuildError) Error() string {
	if e.Branch >= 0 {
		return fmt.Sprintf("node %q: branch[%d]: %s: %s", e.Node, e.Branch, e.Field, e.Message)
	}
	return fmt.Sprintf("node %q: %s: %s", e.Node, e.Field, e.Message)
}
