// Package ssp implements a string search parser: an automaton that
// recognizes byte patterns, such as modem or AT command responses, arriving
// one byte at a time.
//
// The patterns are described by a Tree of nodes connected by branches. Each
// branch is labeled with a byte pattern, may carry an action invoked when
// the pattern matches, and may lead to another node. A Parser keeps a
// cursor into the tree and advances it with Step.
//
// # Building a Tree
//
// Trees are assembled once with a Builder and never change afterwards.
// Branch targets are given by node name and may refer to nodes declared
// later, including the node itself or its ancestors:
//
//	b := ssp.NewBuilder()
//	b.Node("root").
//	    Branch("ok", nil, "node_ok").
//	    Branch("no", nil, "node_no")
//	b.Node("node_ok").
//	    Branch("frm", startFrame, "node_trn").
//	    Branch("error", nil, "")
//	b.Transparent("node_trn", collect).
//	    Branch("ok", frameDone, "root").
//	    Branch("+", nil, "root")
//	b.Node("node_no").
//	    Branch("+", nil, "root").
//	    Branch("-", startFrame, "node_trn")
//	tree, err := b.Build()
//
// A transparent node hands every byte received while it is current to its
// deliver action, whether or not the byte matches a branch. This is how
// free-form payloads between two known patterns are collected.
//
// # Parsing
//
//	p, err := ssp.New(tree.Root())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range []byte("\r\nno-abc+") {
//	    switch p.Step(c) {
//	    case ssp.Match:
//	        fmt.Println("now at", p.Node().Name())
//	    }
//	}
//
// A Parser also implements io.Writer, and Feed drains an io.Reader into
// it. Bytes that match nothing leave the parser where it is, so garbage
// before a known pattern needs no reset.
//
// # Observers
//
// Tracing and metrics hook in through the Observer interface, installed
// with WithObserver or WithLogger. See the [treefile] package for YAML
// tree descriptions.
package ssp
