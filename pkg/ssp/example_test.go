package ssp_test

import (
	"fmt"
	"log"

	"github.com/sspkit/ssp-go/pkg/ssp"
)

// Example walks the modem response tree over a short session.
func Example() {
	var collected []byte

	b := ssp.NewBuilder()
	b.Node("root").
		Branch("ok", nil, "node_ok").
		Branch("no", nil, "node_no")
	b.Node("node_ok").
		Branch("frm", func(n int) { collected = collected[:0] }, "node_trn").
		Branch("error", nil, "")
	b.Transparent("node_trn", func(c byte) { collected = append(collected, c) }).
		Branch("ok", func(n int) { fmt.Printf("frame: %q\n", collected) }, "root").
		Branch("+", nil, "root")
	b.Node("node_no").
		Branch("+", nil, "root").
		Branch("-", nil, "node_trn")

	tree, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	p, err := ssp.New(tree.Root())
	if err != nil {
		log.Fatal(err)
	}

	for _, c := range []byte("\r\nokfrm42ok") {
		if p.Step(c) == ssp.Match {
			fmt.Println("now at", p.Node().Name())
		}
	}

	// Output:
	// now at node_ok
	// now at node_trn
	// frame: "42ok"
	// now at root
}

// ExampleParser_Step shows the result of each step while a pattern is matched.
func ExampleParser_Step() {
	b := ssp.NewBuilder()
	b.Node("root").Branch("abc", func(n int) { fmt.Println("matched", n, "bytes") }, "")
	tree, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	p, err := ssp.New(tree.Root())
	if err != nil {
		log.Fatal(err)
	}

	for _, c := range []byte("xabbc") {
		fmt.Printf("%c: %s\n", c, p.Step(c))
	}

	// Output:
	// x: unmatch
	// a: search_started
	// b: search_continues
	// b: duplicate_char
	// matched 3 bytes
	// c: match
}

// ExampleHooks counts node transitions with an observer.
func ExampleHooks() {
	b := ssp.NewBuilder()
	b.Node("idle").Branch("RING", nil, "ringing")
	b.Node("ringing").Branch("NO CARRIER", nil, "idle")
	tree, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	hooks := ssp.Hooks{
		OnNodeChange: func(from, to *ssp.Node) {
			fmt.Printf("%s -> %s\n", from.Name(), to.Name())
		},
	}
	p, err := ssp.New(tree.Root(), ssp.WithObserver(hooks))
	if err != nil {
		log.Fatal(err)
	}

	if _, err := p.Write([]byte("\r\nRING\r\n\r\nNO CARRIER\r\n")); err != nil {
		log.Fatal(err)
	}

	// Output:
	// idle -> ringing
	// ringing -> idle
}
