package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sspkit/ssp-go/pkg/ssp"
	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

// ActionPrefix marks action names in a tree file that refer to plugin exports.
const ActionPrefix = "plugin:"

type resolver struct {
	p *Plugin
}

// Resolver returns an ActionResolver serving names of the form
// "plugin:<export>". Other names, and exports this module does not have,
// report treefile.ErrUnknownAction so that a ChainResolver moves on.
func (p *Plugin) Resolver() treefile.ActionResolver {
	return resolver{p: p}
}

func (r resolver) MatchAction(name string) (ssp.MatchFunc, error) {
	export, ok := strings.CutPrefix(name, ActionPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", treefile.ErrUnknownAction, name)
	}
	fn, err := r.p.MatchAction(export)
	return fn, unknownIfMissing(name, err)
}

func (r resolver) DeliverAction(name string) (ssp.DeliverFunc, error) {
	export, ok := strings.CutPrefix(name, ActionPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", treefile.ErrUnknownAction, name)
	}
	fn, err := r.p.DeliverAction(export)
	return fn, unknownIfMissing(name, err)
}

func unknownIfMissing(name string, err error) error {
	if errors.Is(err, ErrMissingExport) {
		return fmt.Errorf("%w: %q: %w", treefile.ErrUnknownAction, name, err)
	}
	return err
}
