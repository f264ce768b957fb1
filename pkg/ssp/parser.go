package ssp

import "fmt"

// State is the search state of a Parser.
type State uint8

const (
	// StateIdle means no partial match is pending.
	StateIdle State = iota

	// StateInSearch means a branch pattern is partially matched.
	StateInSearch
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInSearch:
		return "in_search"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Result is the outcome of a single Step.
type Result uint8

const (
	// Match means a branch pattern has been fully matched.
	Match Result = iota

	// Unmatch means the byte matched nothing, or broke the match in progress.
	Unmatch

	// SearchStarted means the byte is the first of a longer branch pattern.
	SearchStarted

	// SearchContinues means the byte extends the match in progress.
	SearchContinues

	// DuplicateChar means the byte repeats the last matched byte and was
	// absorbed without changing the match in progress.
	DuplicateChar
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case Unmatch:
		return "unmatch"
	case SearchStarted:
		return "search_started"
	case SearchContinues:
		return "search_continues"
	case DuplicateChar:
		return "duplicate_char"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

// Parser walks a Tree one byte at a time.
//
// A Parser holds only cursor state: the current node, the active branch and
// how many bytes of it have been matched. The tree is borrowed and never
// modified, so many parsers may share one tree.
//
// A Parser is not safe for concurrent use. Actions and observers run on the
// goroutine calling Step and must not call Step on the same Parser.
type Parser struct {
	node     *Node
	branch   *Branch
	matched  int
	state    State
	observer Observer
}

// New creates a Parser bound to root.
func New(root *Node, opts ...Option) (*Parser, error) {
	p := &Parser{}
	if err := p.Init(root, opts...); err != nil {
		return nil, err
	}
	return p, nil
}

// Init binds the parser to root and resets it to the idle state.
// The active branch becomes root's first branch.
//
// Returns ErrInvalidArgument if p or root is nil. On error the parser is
// left uninitialized and Step does nothing.
func (p *Parser) Init(root *Node, opts ...Option) error {
	if p == nil {
		return ErrInvalidArgument
	}
	if root == nil {
		*p = Parser{}
		return ErrInvalidArgument
	}

	cfg := applyOptions(opts)
	*p = Parser{
		node:     root,
		state:    StateIdle,
		observer: MultiObserver(cfg.observers...),
	}
	if len(root.branches) > 0 {
		p.branch = &root.branches[0]
	}
	return nil
}

// Step processes one input byte.
//
// While idle, the first branch of the current node whose pattern starts with
// c becomes active. While searching, c must be the next byte of the active
// branch; a repeat of the previous byte is tolerated as DuplicateChar, and
// any other byte ends the search with Unmatch. That byte is consumed: it is
// not tried against the current node's branches.
//
// An unmatched byte never moves the parser. Only a completed match changes
// the current node, to the branch target when it has one.
func (p *Parser) Step(c byte) Result {
	if p.node == nil {
		return Unmatch
	}
	if p.observer != nil {
		p.observer.ByteReceived(p.node, c, p.state)
	}

	var r Result
	switch p.state {
	case StateIdle:
		r = p.stepIdle(c)
	case StateInSearch:
		r = p.stepInSearch(c)
	}

	if p.observer != nil {
		p.observer.Stepped(c, r)
	}
	return r
}

func (p *Parser) stepIdle(c byte) Result {
	var found *Branch
	for i := range p.node.branches {
		if p.node.branches[i].pattern[0] == c {
			found = &p.node.branches[i]
			break
		}
	}
	p.deliver(c)

	if found == nil {
		return Unmatch
	}
	p.branch = found
	p.matched = 1
	if len(found.pattern) == 1 {
		p.match()
		return Match
	}
	p.state = StateInSearch
	return SearchStarted
}

func (p *Parser) stepInSearch(c byte) Result {
	p.deliver(c)

	pattern := p.branch.pattern
	switch {
	case pattern[p.matched] == c:
		p.matched++
		if p.matched == len(pattern) {
			p.match()
			return Match
		}
		return SearchContinues
	case pattern[p.matched-1] == c:
		return DuplicateChar
	default:
		p.state = StateIdle
		return Unmatch
	}
}

// deliver hands c to the deliver action of a transparent current node.
func (p *Parser) deliver(c byte) {
	if p.node.kind == KindTransparent && p.node.deliver != nil {
		p.node.deliver(c)
	}
}

// match runs the branch action and moves to the branch target, if any.
func (p *Parser) match() {
	b := p.branch
	if b.onMatch != nil {
		b.onMatch(p.matched)
	}
	if p.observer != nil {
		p.observer.BranchMatched(p.node, b, p.matched)
	}

	p.state = StateIdle
	if b.target != nil {
		from := p.node
		p.node = b.target
		if p.observer != nil && from != p.node {
			p.observer.NodeChanged(from, p.node)
		}
	}
}

// Node returns the current node, or nil if the parser is not initialized.
func (p *Parser) Node() *Node { return p.node }

// Branch returns the active branch.
func (p *Parser) Branch() *Branch { return p.branch }

// State returns the search state.
func (p *Parser) State() State { return p.state }

// Matched returns how many bytes of the active branch have been matched.
func (p *Parser) Matched() int { return p.matched }
