package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dusk-indust/docweave/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
		opts   export.Options
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the documentation as markdown, json or a mermaid diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := writeExport(cmd, w, s, format, opts); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, json or mermaid")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&opts.RootID, "root", "", "limit the export to this node's subgraph")
	cmd.Flags().BoolVar(&opts.DocumentedOnly, "documented-only", false, "skip nodes without documentation")
	return cmd
}

func writeExport(cmd *cobra.Command, w io.Writer, s *session, format string, opts export.Options) error {
	ctx := cmd.Context()
	switch strings.ToLower(format) {
	case "markdown", "md":
		return export.WriteMarkdown(ctx, w, s.store, opts)
	case "json":
		return export.WriteJSON(ctx, w, s.store, opts)
	case "mermaid":
		diagram, err := export.GenerateMermaid(ctx, s.store, opts)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, diagram)
		return err
	default:
		return fmt.Errorf("unsupported format %q: use markdown, json or mermaid", format)
	}
}
