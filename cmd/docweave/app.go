package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dusk-indust/docweave/internal/config"
	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/synth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app carries the global flags and the store factory shared by all
// subcommands.
type app struct {
	dir     string
	verbose bool

	openStore func(path string) (graph.Store, error)
}

// session is what a subcommand works with: the loaded config, a logger and
// an open store. Close must be called when done.
type session struct {
	cfg    *config.ProjectConfig
	logger *slog.Logger
	store  graph.Store
}

func (s *session) Close() error {
	return s.store.Close()
}

func (a *app) open() (*session, error) {
	cfg, err := config.Load(a.dir)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if a.verbose || cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := a.openStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open graph store %s: %w", cfg.Store.Path, err)
	}
	logger.Debug("graph store opened", "path", cfg.Store.Path)
	return &session{cfg: cfg, logger: logger, store: store}, nil
}

// synthesizer returns the model client, or the structural summarizer
// when dryRun is set.
func (s *session) synthesizer(dryRun bool) (synth.Synthesizer, error) {
	if dryRun {
		return synth.Static{}, nil
	}
	c, err := synth.NewOpenAIClient(s.cfg.LLM.OpenAI(s.logger))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// function is called.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
