package ssp

import (
	"log/slog"
)

// Observer receives notifications from a Parser at fixed points of Step.
// Observers run synchronously on the goroutine calling Step and must not
// call Step on the same parser.
type Observer interface {
	// ByteReceived is called first, with the node current when the byte arrives.
	ByteReceived(n *Node, c byte, s State)

	// BranchMatched is called after the branch action, before the node changes.
	BranchMatched(n *Node, b *Branch, length int)

	// NodeChanged is called when a match moves the parser to another node.
	NodeChanged(from, to *Node)

	// Stepped is called last, with the result of the step.
	Stepped(c byte, r Result)
}

// Hooks is an Observer built from optional functions.
// Nil fields are skipped.
type Hooks struct {
	OnByte       func(n *Node, c byte, s State)
	OnMatch      func(n *Node, b *Branch, length int)
	OnNodeChange func(from, to *Node)
	OnStep       func(c byte, r Result)
}

func (h Hooks) ByteReceived(n *Node, c byte, s State) {
	if h.OnByte != nil {
		h.OnByte(n, c, s)
	}
}

func (h Hooks) BranchMatched(n *Node, b *Branch, length int) {
	if h.OnMatch != nil {
		h.OnMatch(n, b, length)
	}
}

func (h Hooks) NodeChanged(from, to *Node) {
	if h.OnNodeChange != nil {
		h.OnNodeChange(from, to)
	}
}

func (h Hooks) Stepped(c byte, r Result) {
	if h.OnStep != nil {
		h.OnStep(c, r)
	}
}

var _ Observer = Hooks{}

// MultiObserver fans notifications out to several observers, in order.
// Nil observers are dropped.
func MultiObserver(observers ...Observer) Observer {
	var list multiObserver
	for _, o := range observers {
		if o == nil {
			continue
		}
		if m, ok := o.(multiObserver); ok {
			list = append(list, m...)
			continue
		}
		list = append(list, o)
	}
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) ByteReceived(n *Node, c byte, s State) {
	for _, o := range m {
		o.ByteReceived(n, c, s)
	}
}

func (m multiObserver) BranchMatched(n *Node, b *Branch, length int) {
	for _, o := range m {
		o.BranchMatched(n, b, length)
	}
}

func (m multiObserver) NodeChanged(from, to *Node) {
	for _, o := range m {
		o.NodeChanged(from, to)
	}
}

func (m multiObserver) Stepped(c byte, r Result) {
	for _, o := range m {
		o.Stepped(c, r)
	}
}

// NewLogObserver returns an Observer that traces parser activity as Debug
// records on logger. A nil logger yields a nil Observer.
func NewLogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		return nil
	}
	return &logObserver{log: logger}
}

type logObserver struct {
	log *slog.Logger
}

func (l *logObserver) ByteReceived(n *Node, c byte, s State) {
	l.log.Debug("byte received", "node", n.name, "byte", printable(c), "state", s.String())
}

func (l *logObserver) BranchMatched(n *Node, b *Branch, length int) {
	l.log.Debug("branch matched", "node", n.name, "pattern", string(b.pattern), "length", length)
}

func (l *logObserver) NodeChanged(from, to *Node) {
	l.log.Debug("node changed", "from", from.name, "to", to.name)
}

func (l *logObserver) Stepped(c byte, r Result) {
	l.log.Debug("step", "byte", printable(c), "result", r.String())
}

// printable renders a byte for log output, escaping control characters.
func printable(c byte) string {
	switch {
	case c == '\r':
		return `\r`
	case c == '\n':
		return `\n`
	case c == '\t':
		return `\t`
	case c < 0x20 || c >= 0x7f:
		const hex = "0123456789abcdef"
		return `\x` + string([]byte{hex[c>>4], hex[c&0x0f]})
	default:
		return string([]byte{c})
	}
}
