package main

import (
	"github.com/dusk-indust/docweave/internal/mcptools"
	"github.com/dusk-indust/docweave/internal/orchestrator"
	"github.com/spf13/cobra"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var (
		httpAddr    string
		dryRun      bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run as an MCP server on stdio, or over HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			sy, err := s.synthesizer(dryRun)
			if err != nil {
				return err
			}
			sch, err := orchestrator.NewScheduler(s.store, sy, s.cfg.Scheduler.Orchestrator(),
				orchestrator.WithLogger(s.logger))
			if err != nil {
				return err
			}
			defer sch.Close()

			if metricsAddr == "" {
				metricsAddr = s.cfg.MetricsAddr
			}
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, s.logger)
				defer stop()
			}

			server := mcptools.NewDocsMCPServer(mcptools.NewDocsService(s.store, sch, s.logger))
			if httpAddr != "" {
				s.logger.Info("serving MCP over HTTP", "addr", httpAddr)
				return mcptools.RunHTTP(cmd.Context(), server, httpAddr)
			}
			return mcptools.RunStdio(cmd.Context(), server)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "describe nodes structurally without calling the model")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}
