package treefile

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned by an ActionResolver that has no action
// bound to the requested name.
var ErrUnknownAction = errors.New("unknown action")

// ValidationError reports a file-level problem such as an unsupported
// version or a missing root.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NodeError reports a problem with one node or one of its branches.
type NodeError struct {
	Index   int    // 0-based index of the node in the file
	Name    string // may be empty if the name field is missing
	Branch  int    // 0-based branch index, -1 for the node itself
	Field   string
	Message string
	Cause   error
}

func (e *NodeError) Error() string {
	where := fmt.Sprintf("node[%d]", e.Index)
	if e.Name != "" {
		where = fmt.Sprintf("node %q", e.Name)
	}
	if e.Branch >= 0 {
		where = fmt.Sprintf("%s: branch[%d]", where, e.Branch)
	}
	return fmt.Sprintf("%s: %s: %s", where, e.Field, e.Message)
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}
