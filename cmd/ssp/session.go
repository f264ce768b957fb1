package main

import (
	"bytes"
	"context"
	"io"
	"unicode/utf8"

	"github.com/sspkit/ssp-go/pkg/ssp"
)

// session connects a parser to the event output. It implements io.Writer
// so that the tailer can feed it directly.
type session struct {
	parser *ssp.Parser
	format string
	types  map[string]bool
	out    io.Writer

	offset int64 // index of the byte being stepped
	err    error
	cancel context.CancelFunc
}

// hooks returns the observer that turns matches into events.
func (s *session) hooks() ssp.Hooks {
	return ssp.Hooks{
		OnMatch: func(n *ssp.Node, b *ssp.Branch, length int) {
			target := n
			if b.Target() != nil {
				target = b.Target()
			}
			s.emit(Event{
				Type:    EventMatch,
				Offset:  s.offset,
				Node:    n.Name(),
				Pattern: string(b.Pattern()),
				Target:  target.Name(),
				Length:  length,
			})
		},
		OnStep: func(byte, ssp.Result) {
			s.offset++
		},
	}
}

// capture emits the capture buffer as an event. Bytes that are not valid
// UTF-8 are also kept verbatim in Raw.
func (s *session) capture(data []byte) {
	ev := Event{Type: EventCapture, Offset: s.offset, Data: string(data)}
	if !utf8.Valid(data) {
		ev.Raw = bytes.Clone(data)
	}
	s.emit(ev)
}

func (s *session) emit(ev Event) {
	if s.err != nil {
		return
	}
	if len(s.types) > 0 && !s.types[ev.Type] {
		return
	}
	if err := OutputEvent(s.format, ev, s.out); err != nil {
		s.fail(err)
	}
}

// fail records the first output error and stops the input.
func (s *session) fail(err error) {
	if s.err != nil {
		return
	}
	s.err = err
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *session) Write(p []byte) (int, error) {
	n, err := s.parser.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.err
}

// feed drains r into the parser until EOF or ctx ends.
func (s *session) feed(ctx context.Context, r io.Reader) error {
	err := s.parser.Feed(ctx, r)
	if s.err != nil {
		return s.err
	}
	return err
}
