package treefile_test

import (
	"fmt"
	"log"

	"github.com/sspkit/ssp-go/pkg/ssp"
	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

// Example compiles an in-memory tree file and runs it over some input.
func Example() {
	tf, err := treefile.LoadBytes([]byte(`version: 1
nodes:
  - name: idle
    branches:
      - {pattern: "RING", action: ring, target: ringing}
  - name: ringing
    branches:
      - {pattern: "NO CARRIER", action: hangup, target: idle}
`))
	if err != nil {
		log.Fatal(err)
	}

	tree, err := treefile.Compile(tf, treefile.Actions{
		Match: map[string]ssp.MatchFunc{
			"ring":   func(int) { fmt.Println("incoming call") },
			"hangup": func(int) { fmt.Println("call ended") },
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	p, err := ssp.New(tree.Root())
	if err != nil {
		log.Fatal(err)
	}
	if _, err := p.Write([]byte("\r\nRING\r\n\r\nNO CARRIER\r\n")); err != nil {
		log.Fatal(err)
	}

	// Output:
	// incoming call
	// call ended
}

// ExampleLoad inspects a tree file without compiling it.
func ExampleLoad() {
	tf, err := treefile.Load("testdata/modem.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Version: %d\n", tf.Version)
	fmt.Printf("Root: %s\n", tf.RootName())
	fmt.Printf("Nodes: %d\n", len(tf.Nodes))
	fmt.Printf("Branches: %d\n", tf.BranchCount())
	// Output:
	// Version: 1
	// Root: root
	// Nodes: 4
	// Branches: 8
}
