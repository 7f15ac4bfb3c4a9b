package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "print node/edge counts for a demo graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eco, _, countInst, doubleInst := buildDemo(cfg)

			stats := eco.GraphStats()
			fmt.Fprintf(cmd.OutOrStdout(), "nodes: %d\nedges: %d\n", stats.Nodes, stats.Edges)
			fmt.Fprintf(cmd.OutOrStdout(), "double -> count edge: %v\n", eco.GraphEdgeExists(doubleInst.ID(), countInst.ID()))
			return nil
		},
	}
}
