package main

import (
	"github.com/sspkit/ssp-go/pkg/ssp"
	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

// DefaultMaxCollect is the default capacity of the capture buffer.
const DefaultMaxCollect = 3

// Built-in action names usable in tree files.
const (
	ActionCollect = "collect"
	ActionClear   = "clear"
	ActionEmit    = "emit"
	ActionNone    = "none"
)

// collector holds the capture buffer shared by the built-in actions.
// Bytes past its capacity are dropped until the next clear.
type collector struct {
	buf  []byte
	max  int
	emit func(data []byte)
}

func newCollector(max int, emit func(data []byte)) *collector {
	if max <= 0 {
		max = DefaultMaxCollect
	}
	return &collector{buf: make([]byte, 0, max), max: max, emit: emit}
}

func (c *collector) collect(b byte) {
	if len(c.buf) < c.max {
		c.buf = append(c.buf, b)
	}
}

func (c *collector) clear(int) {
	c.buf = c.buf[:0]
}

// flush hands the buffer to the emit callback.
func (c *collector) flush(int) {
	if c.emit != nil {
		c.emit(c.buf)
	}
}

// actions returns the built-in actions as a resolver.
func (c *collector) actions() treefile.Actions {
	return treefile.Actions{
		Match: map[string]ssp.MatchFunc{
			ActionClear: c.clear,
			ActionEmit:  c.flush,
			ActionNone:  func(int) {},
		},
		Deliver: map[string]ssp.DeliverFunc{
			ActionCollect: c.collect,
			ActionNone:    func(byte) {},
		},
	}
}
