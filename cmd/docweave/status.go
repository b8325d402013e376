package main

import (
	"github.com/dusk-indust/docweave/internal/status"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var undocumented int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show documentation coverage by node kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := status.Build(cmd.Context(), s.store, status.Options{MaxUndocumented: undocumented})
			if err != nil {
				return err
			}
			return status.Render(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().IntVar(&undocumented, "undocumented", 0,
		"list up to this many undocumented node ids")
	return cmd
}
