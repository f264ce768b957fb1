package treefile

import (
	"errors"
	"fmt"

	"github.com/sspkit/ssp-go/pkg/ssp"
)

// ActionResolver binds action names used in a tree file to functions.
// Implementations return an error wrapping ErrUnknownAction for names they
// do not know.
type ActionResolver interface {
	MatchAction(name string) (ssp.MatchFunc, error)
	DeliverAction(name string) (ssp.DeliverFunc, error)
}

// Actions is a map-backed ActionResolver.
type Actions struct {
	Match   map[string]ssp.MatchFunc
	Deliver map[string]ssp.DeliverFunc
}

// MatchAction implements ActionResolver.
func (a Actions) MatchAction(name string) (ssp.MatchFunc, error) {
	if fn, ok := a.Match[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: match action %q", ErrUnknownAction, name)
}

// DeliverAction implements ActionResolver.
func (a Actions) DeliverAction(name string) (ssp.DeliverFunc, error) {
	if fn, ok := a.Deliver[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: deliver action %q", ErrUnknownAction, name)
}

// ChainResolver asks each resolver in turn and returns the first binding.
// A resolver error other than ErrUnknownAction stops the search.
type ChainResolver []ActionResolver

// MatchAction implements ActionResolver.
func (c ChainResolver) MatchAction(name string) (ssp.MatchFunc, error) {
	for _, r := range c {
		fn, err := r.MatchAction(name)
		if err == nil {
			return fn, nil
		}
		if !errors.Is(err, ErrUnknownAction) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: match action %q", ErrUnknownAction, name)
}

// DeliverAction implements ActionResolver.
func (c ChainResolver) DeliverAction(name string) (ssp.DeliverFunc, error) {
	for _, r := range c {
		fn, err := r.DeliverAction(name)
		if err == nil {
			return fn, nil
		}
		if !errors.Is(err, ErrUnknownAction) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: deliver action %q", ErrUnknownAction, name)
}

// Compile turns a validated tree file into a tree, binding every named
// action through resolver. Empty action names bind to no action; a nil
// resolver is only valid for files that name no actions.
func Compile(tf *TreeFile, resolver ActionResolver) (*ssp.Tree, error) {
	if tf == nil {
		return nil, ssp.ErrInvalidArgument
	}
	if resolver == nil {
		resolver = Actions{}
	}

	b := ssp.NewBuilder()
	for i, n := range tf.Nodes {
		var nb *ssp.NodeBuilder
		if n.Transparent() {
			var deliver ssp.DeliverFunc
			if n.Deliver != "" {
				fn, err := resolver.DeliverAction(n.Deliver)
				if err != nil {
					return nil, &NodeError{Index: i, Name: n.Name, Branch: -1, Field: "deliver", Message: err.Error(), Cause: err}
				}
				deliver = fn
			}
			nb = b.Transparent(n.Name, deliver)
		} else {
			nb = b.Node(n.Name)
		}

		for j, br := range n.Branches {
			var action ssp.MatchFunc
			if br.Action != "" {
				fn, err := resolver.MatchAction(br.Action)
				if err != nil {
					return nil, &NodeError{Index: i, Name: n.Name, Branch: j, Field: "action", Message: err.Error(), Cause: err}
				}
				action = fn
			}
			nb.Branch(br.Pattern, action, br.Target)
		}
	}
	b.Root(tf.RootName())

	tree, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	return tree, nil
}

// CompileFile loads the tree file at path and compiles it.
func CompileFile(path string, resolver ActionResolver) (*ssp.Tree, error) {
	tf, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(tf, resolver)
}
