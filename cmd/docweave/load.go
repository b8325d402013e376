package main

import (
	"fmt"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/spf13/cobra"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <graph.json>",
		Short: "Import a code graph document into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.store.InitSchema(ctx); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
			if _, err := graph.LoadFile(ctx, s.store, args[0]); err != nil {
				return err
			}
			stats, err := s.store.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s: %d nodes, %d edges, %d artifacts in store\n",
				args[0], stats.NodeCount, stats.EdgeCount, stats.ArtifactCount)
			return nil
		},
	}
}
