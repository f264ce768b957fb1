package ssp

import (
	"context"
	"errors"
	"io"
)

// feedBufferSize is the read size used by Feed.
const feedBufferSize = 4096

// Write steps the parser over every byte of b, in order, and implements
// io.Writer so a Parser can sit at the end of a byte pipeline.
// Step results are not reported; use an Observer to follow them.
//
// Write only fails with ErrNotInitialized.
func (p *Parser) Write(b []byte) (int, error) {
	if p.node == nil {
		return 0, ErrNotInitialized
	}
	for _, c := range b {
		p.Step(c)
	}
	return len(b), nil
}

// Feed reads r until EOF and steps the parser over every byte read.
// The context is checked between reads; cancellation does not interrupt a
// blocked Read, so readers that may block should be closed by the caller
// when ctx is done.
//
// Returns nil at EOF, ctx.Err() on cancellation, or the read error.
func (p *Parser) Feed(ctx context.Context, r io.Reader) error {
	if p.node == nil {
		return ErrNotInitialized
	}

	buf := make([]byte, feedBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		for _, c := range buf[:n] {
			p.Step(c)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

var _ io.Writer = (*Parser)(nil)
