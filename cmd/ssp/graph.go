package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

var graphCmd = &cobra.Command{
	Use:   "graph TREE",
	Short: "Export the tree as a Mermaid diagram",
	Long: `Load a tree description file and output a Mermaid flowchart.

Transparent nodes are drawn as stadiums and the root as a circle, or a
double circle when the root is transparent. Edge labels show the pattern
and, after a slash, the action name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := treefile.Load(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), GenerateMermaid(tf))
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

// GenerateMermaid renders a validated tree file as a Mermaid flowchart.
// Branches without a target loop back to their own node.
func GenerateMermaid(tf *treefile.TreeFile) string {
	ids := make(map[string]string, len(tf.Nodes))
	for i, n := range tf.Nodes {
		ids[n.Name] = fmt.Sprintf("n%d", i)
	}
	root := tf.RootName()

	var sb strings.Builder
	sb.WriteString("graph LR\n")
	for _, n := range tf.Nodes {
		opener, closer := "[", "]"
		switch {
		case n.Name == root && n.Transparent():
			opener, closer = "(((", ")))"
		case n.Name == root:
			opener, closer = "((", "))"
		case n.Transparent():
			opener, closer = "([", "])"
		}
		label := n.Name
		if n.Deliver != "" {
			label += " <br/> " + n.Deliver
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", ids[n.Name], opener, mermaidText(label), closer)
	}
	for _, n := range tf.Nodes {
		for _, b := range n.Branches {
			to := n.Name
			if b.Target != "" {
				to = b.Target
			}
			label := patternLabel(b.Pattern)
			if b.Action != "" {
				label += " / " + b.Action
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", ids[n.Name], mermaidText(label), ids[to])
		}
	}
	return sb.String()
}

// patternLabel shows control bytes of a pattern as Go escapes.
func patternLabel(p string) string {
	q := strconv.Quote(p)
	return q[1 : len(q)-1]
}

func mermaidText(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
