package main

import (
	"fmt"
	"io"

	"github.com/dusk-indust/docweave/internal/orchestrator"
	"github.com/spf13/cobra"
)

type runOptions struct {
	workers     int
	batchSize   int
	overwrite   bool
	dryRun      bool
	quiet       bool
	metricsAddr string
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <root-id>",
		Short: "Document every node reachable from root-id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDocs(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 0,
		"concurrent synthesis calls (default from docweave.yml, then 16)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0,
		"nodes fetched per round (default from docweave.yml, then 50)")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false,
		"regenerate documentation that already exists (overrides docweave.yml either way)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false,
		"describe nodes structurally without calling the model")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false,
		"do not print per-node progress")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address during the run")
	return cmd
}

func (a *app) runDocs(cmd *cobra.Command, rootID string, opts runOptions) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.Close()

	sy, err := s.synthesizer(opts.dryRun)
	if err != nil {
		return err
	}
	sch, err := orchestrator.NewScheduler(s.store, sy, s.cfg.Scheduler.Orchestrator(),
		orchestrator.WithLogger(s.logger))
	if err != nil {
		return err
	}

	addr := opts.metricsAddr
	if addr == "" {
		addr = s.cfg.MetricsAddr
	}
	if addr != "" {
		stop := serveMetrics(addr, s.logger)
		defer stop()
	}

	events := sch.Progress()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if !opts.quiet {
				fmt.Fprintln(cmd.ErrOrStderr(), orchestrator.FormatProgress(ev))
			}
		}
	}()

	req := orchestrator.RunRequest{
		RootID:     rootID,
		MaxWorkers: opts.workers,
		BatchSize:  opts.batchSize,
	}
	if cmd.Flags().Changed("overwrite") {
		req.Overwrite = &opts.overwrite
	}
	res, runErr := sch.Run(cmd.Context(), req)
	sch.Close()
	<-done

	if res != nil {
		printRunResult(cmd.OutOrStdout(), res)
	}
	return runErr
}

func printRunResult(w io.Writer, res *orchestrator.RunResult) {
	fmt.Fprintf(w, "Run %s: %d nodes documented (%d leaves, %d parents, %d forced)\n",
		res.RunID, res.NodesProcessed, res.Leaves, res.Parents, res.Forced)
	fmt.Fprintf(w, "  errors: %d  timed out: %d  partial: %d  stall breaks: %d\n",
		res.Errors, res.TimedOut, res.Partial, res.StallBreaks)
	if res.RootSkipped {
		fmt.Fprintln(w, "  root was already documented (use --overwrite to regenerate)")
	}
	if res.Warning != "" {
		fmt.Fprintf(w, "  warning: %s\n", res.Warning)
	}
}
