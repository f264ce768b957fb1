package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

var validateCmd = &cobra.Command{
	Use:   "validate TREE",
	Short: "Check a tree description file",
	Long: `Load and validate a tree description file and print a summary.

Action names are not resolved, so files referring to plugin exports
validate without the plugin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := treefile.Load(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d branches, root %q\n",
			len(tf.Nodes), tf.BranchCount(), tf.RootName())
		return err
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
