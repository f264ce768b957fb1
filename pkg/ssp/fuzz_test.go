package ssp_test

import (
	"testing"

	"github.com/sspkit/ssp-go/pkg/ssp"
)

// FuzzParser_Step feeds arbitrary input to the demo tree and checks the
// parser invariants after every byte.
func FuzzParser_Step(f *testing.F) {
	f.Add([]byte("\r\nno-abc+okfrmabcokno"))
	f.Add([]byte("oooo"))
	f.Add([]byte("okerror"))
	f.Add([]byte{})
	f.Add([]byte{0x00, 0xff, '\r', '\n'})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec := &recorder{}
		tree := demoTree(t, rec)
		p, err := ssp.New(tree.Root())
		if err != nil {
			t.Fatal(err)
		}

		for _, c := range data {
			before := p.Node()
			r := p.Step(c)

			switch p.State() {
			case ssp.StateInSearch:
				if p.Matched() < 1 || p.Matched() >= len(p.Branch().Pattern()) {
					t.Fatalf("matched %d out of range for pattern %q", p.Matched(), p.Branch().Pattern())
				}
			case ssp.StateIdle:
				if r == ssp.SearchStarted || r == ssp.SearchContinues || r == ssp.DuplicateChar {
					t.Fatalf("result %s left the parser idle", r)
				}
			}
			if r != ssp.Match && p.Node() != before {
				t.Fatalf("node changed from %s to %s on %s", before.Name(), p.Node().Name(), r)
			}
		}
	})
}
