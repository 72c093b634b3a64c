package main

import (
	"fmt"
	"io"

	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/spf13/cobra"
)

func newTreeCmd(opts *rootOptions) *cobra.Command {
	var collapsed bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the story tree",
		Long: `The tree command fetches stories for the selected project and prints them.

Example:
  storytree tree
  storytree tree --collapsed
  STORYTREE_GROUP_BY_EPIC=true storytree tree --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context(), opts, cmd.ErrOrStderr(), writerNotifier{w: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer s.Close()

			nodes, err := s.app.Supplier.Children(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("failed to fetch stories: %w", err)
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), s.app.Supplier.Snapshot())
			}
			return printTree(cmd, s.app.Supplier, nodes, !collapsed)
		},
	}
	cmd.Flags().BoolVar(&collapsed, "collapsed", false, "Do not list stories under epics")
	return cmd
}

func printTree(cmd *cobra.Command, supplier *tree.Supplier, nodes []tree.Node, expand bool) error {
	out := cmd.OutOrStdout()
	if len(nodes) == 0 {
		fmt.Fprintln(out, "No stories.")
		return nil
	}
	for _, n := range nodes {
		writeNode(out, n, 0)
		if !n.Collapsible || !expand {
			continue
		}
		children, err := supplier.Children(cmd.Context(), &n)
		if err != nil {
			return err
		}
		for _, child := range children {
			writeNode(out, child, 1)
		}
	}
	return nil
}

func writeNode(w io.Writer, n tree.Node, depth int) {
	marker := "-"
	if n.Collapsible {
		marker = "+"
	}
	fmt.Fprintf(w, "%*s%s %s\n", depth*2, "", marker, n.Label)
}
