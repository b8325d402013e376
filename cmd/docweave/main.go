// Command docweave documents a code graph bottom-up with a language model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{openStore: openGraphStore}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "docweave",
		Short: "Generate documentation for a code graph, leaves first",
		Long: `docweave walks a code graph of folders, files, classes and functions
from the leaves up, asking a language model to describe each element with
the descriptions of its children as context. Call cycles are broken by
documenting their functions with partial context.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&a.dir, "dir", ".",
		"project directory holding docweave.yml and the graph store")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"enable debug logging on stderr")

	root.AddCommand(
		newInitCmd(),
		newLoadCmd(a),
		newRunCmd(a),
		newStatusCmd(a),
		newExportCmd(a),
		newServeMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docweave version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
