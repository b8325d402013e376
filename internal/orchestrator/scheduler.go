package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/synth"
	"github.com/dusk-indust/docweave/internal/tracker"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ Runner = (*Scheduler)(nil)

// Scheduler documents a code graph bottom-up. It drives the run from a
// single coordinating goroutine and fans each round out to a bounded
// worker pool. All run state lives in the gateway, scoped by run id, so
// one Scheduler may serve concurrent runs.
type Scheduler struct {
	gw       graph.Gateway
	synth    synth.Synthesizer
	cfg      Config
	logger   *slog.Logger
	progress *ProgressReporter
	tracker  *tracker.Tracker
	newRunID func() string
	now      func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress replaces the default progress reporter.
func WithProgress(pr *ProgressReporter) Option {
	return func(s *Scheduler) {
		if pr != nil {
			s.progress = pr
		}
	}
}

// WithTracker shares a dependency tracker with the caller.
func WithTracker(t *tracker.Tracker) Option {
	return func(s *Scheduler) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithRunIDFunc overrides run id generation.
func WithRunIDFunc(f func() string) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.newRunID = f
		}
	}
}

// WithClock overrides the artifact timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler validates cfg and returns a Scheduler reading and writing
// through gw and describing nodes with sy.
func NewScheduler(gw graph.Gateway, sy synth.Synthesizer, cfg Config, opts ...Option) (*Scheduler, error) {
	if gw == nil {
		return nil, fmt.Errorf("%w: gateway is required", ErrInvalidConfig)
	}
	if sy == nil {
		return nil, fmt.Errorf("%w: synthesizer is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		gw:       gw,
		synth:    sy,
		cfg:      cfg.withDefaults(),
		logger:   slog.New(slog.DiscardHandler),
		progress: NewProgressReporter(0),
		tracker:  tracker.New(),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Progress returns the channel progress events are emitted on.
func (s *Scheduler) Progress() <-chan ProgressEvent {
	return s.progress.Subscribe()
}

// InFlight returns "runID:nodeID" -> worker id for nodes being synthesized
// right now, across all runs.
func (s *Scheduler) InFlight() map[string]string {
	return s.tracker.InFlight()
}

// Close closes the progress channel. The Scheduler must not be used
// afterwards.
func (s *Scheduler) Close() {
	s.progress.Close()
}

// run carries the state of one Run call.
type run struct {
	id     string
	cfg    Config
	res    *RunResult
	fan    *fanOut
	logger *slog.Logger
}

// Run processes every node reachable from req.RootID: leaves first, then
// parents whose children are done, forcing call cycles open when no
// parent is ready, and the root last. The returned error is non-nil only
// when the store fails (clearing the run's bookkeeping included), the
// request is invalid, or ctx ends; the result is returned in every case
// once a run id has been assigned.
func (s *Scheduler) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	cfg, err := req.resolve(s.cfg)
	if err != nil {
		return nil, err
	}

	r := &run{
		id:  s.newRunID(),
		cfg: cfg,
	}
	r.res = &RunResult{RunID: r.id, RootID: req.RootID}
	r.logger = s.logger.With("run_id", r.id, "root", req.RootID)
	r.fan = &fanOut{
		synth:   s.synth,
		tracker: s.tracker,
		workers: cfg.MaxWorkers,
		timeout: cfg.NodeTimeout,
		emit:    s.progress.Emit,
		logger:  r.logger,
		keyFn:   func(nodeID string) string { return graph.ArtifactID(r.id, nodeID) },
	}

	start := time.Now()
	r.logger.Info("run started", "workers", cfg.MaxWorkers, "batch_size", cfg.BatchSize, "overwrite", cfg.Overwrite)

	err = s.execute(ctx, r, req.RootID)
	if cerr := s.clear(ctx, r); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		r.res.Error = err.Error()
		r.logger.Error("run failed", "error", err, "processed", r.res.NodesProcessed)
		s.emitPhase(r, PhaseRoot, ProgressFailed, err.Error())
		return r.res, err
	}

	r.logger.Info("run finished",
		"processed", r.res.NodesProcessed,
		"errors", r.res.Errors,
		"timed_out", r.res.TimedOut,
		"partial", r.res.Partial,
		"stall_breaks", r.res.StallBreaks,
		"elapsed", time.Since(start))
	return r.res, nil
}

// execute runs phases A through D.
func (s *Scheduler) execute(ctx context.Context, r *run, rootID string) error {
	pending, err := s.gw.InitRun(ctx, rootID, r.id, r.cfg.Overwrite)
	if err != nil {
		return fmt.Errorf("orchestrator: init run: %w", err)
	}
	r.res.Initialized = pending
	r.logger.Debug("run initialized", "pending", pending)

	if err := s.leaves(ctx, r); err != nil {
		return err
	}
	if err := s.parents(ctx, r); err != nil {
		return err
	}
	return s.root(ctx, r, rootID)
}

// leaves is phase A. Leaf rounds always make progress, so the loop ends
// when the gateway runs dry.
func (s *Scheduler) leaves(ctx context.Context, r *run) error {
	s.emitPhase(r, PhaseLeaves, ProgressWorking, "")
	for {
		items, err := s.gw.PendingLeaves(ctx, r.id, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("orchestrator: pending leaves: %w", err)
		}
		if len(items) == 0 {
			break
		}
		r.res.LeafBatches++
		r.res.Leaves += len(items)
		if err := s.round(ctx, r, PhaseLeaves, items); err != nil {
			return err
		}
	}
	s.emitPhase(r, PhaseLeaves, ProgressComplete, fmt.Sprintf("%d leaves in %d batches", r.res.Leaves, r.res.LeafBatches))
	return nil
}

// parents alternates phase B with the phase C stall breaker until nothing
// is pending or the iteration ceiling is hit.
func (s *Scheduler) parents(ctx context.Context, r *run) error {
	s.emitPhase(r, PhaseReadyParents, ProgressWorking, "")
	idle := 0
	for iter := 0; ; iter++ {
		if iter >= r.cfg.MaxIterations {
			r.res.Warning = fmt.Sprintf("iteration ceiling of %d rounds reached with nodes still pending", r.cfg.MaxIterations)
			r.logger.Warn("iteration ceiling reached", "max_iterations", r.cfg.MaxIterations)
			break
		}
		r.res.Rounds++

		items, err := s.gw.ReadyParents(ctx, r.id, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("orchestrator: ready parents: %w", err)
		}
		if len(items) > 0 {
			idle = 0
			r.res.Parents += len(items)
			if err := s.round(ctx, r, PhaseReadyParents, items); err != nil {
				return err
			}
			continue
		}

		pending, err := s.gw.HasPending(ctx, r.id)
		if err != nil {
			return fmt.Errorf("orchestrator: has pending: %w", err)
		}
		if !pending {
			break
		}
		idle++
		if idle < r.cfg.StallRounds {
			continue
		}

		r.logger.Warn("stall detected, forcing pending functions",
			"idle_rounds", idle, "has_pending", pending, "batch_size", r.cfg.BatchSize)
		forced, err := s.gw.RemainingPendingFunctions(ctx, r.id, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("orchestrator: remaining pending functions: %w", err)
		}
		if len(forced) == 0 {
			r.res.Warning = "pending nodes remain but none can be forced"
			r.logger.Warn("stall breaker found no functions", "has_pending", pending)
			break
		}
		idle = 0
		r.res.StallBreaks++
		r.res.Forced += len(forced)
		stallBreakerTotal.Inc()
		s.emitPhase(r, PhaseStallBreaker, ProgressWorking, fmt.Sprintf("forcing %d nodes", len(forced)))
		if err := s.round(ctx, r, PhaseStallBreaker, forced); err != nil {
			return err
		}
	}
	s.emitPhase(r, PhaseReadyParents, ProgressComplete, fmt.Sprintf("%d parents, %d forced", r.res.Parents, r.res.Forced))
	return nil
}

// root is phase D.
func (s *Scheduler) root(ctx context.Context, r *run, rootID string) error {
	item, err := s.gw.RootItem(ctx, r.id, rootID)
	if err != nil {
		return fmt.Errorf("orchestrator: root item: %w", err)
	}
	if item.Documented && !r.cfg.Overwrite {
		r.res.RootSkipped = true
		r.logger.Debug("root already documented, skipping")
		return nil
	}
	s.emitPhase(r, PhaseRoot, ProgressWorking, "")
	if err := s.round(ctx, r, PhaseRoot, []graph.WorkItem{*item}); err != nil {
		return err
	}
	s.emitPhase(r, PhaseRoot, ProgressComplete, "")
	return nil
}

// round synthesizes one batch and saves all its artifacts in one write.
func (s *Scheduler) round(ctx context.Context, r *run, phase Phase, items []graph.WorkItem) error {
	start := time.Now()
	outcomes := r.fan.run(ctx, r.id, phase, items)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("orchestrator: %s round: %w", phase, err)
	}

	now := s.now()
	artifacts := make([]graph.Artifact, 0, len(outcomes))
	for _, o := range outcomes {
		a := assemble(r.id, phase, o, now)
		artifacts = append(artifacts, a)

		result := outcomeOK
		switch {
		case o.timedOut:
			result = outcomeTimeout
			r.res.TimedOut++
		case o.err != nil:
			result = outcomeError
			r.res.Errors++
		}
		if a.Metadata.PartialContext {
			r.res.Partial++
		}
		nodesProcessed.WithLabelValues(phase.String(), result).Inc()
	}

	written, err := s.gw.SaveArtifacts(ctx, r.id, artifacts)
	r.res.NodesProcessed += written
	if err != nil {
		return fmt.Errorf("orchestrator: save %s round: %w", phase, err)
	}
	roundDuration.WithLabelValues(phase.String()).Observe(time.Since(start).Seconds())
	r.logger.Debug("round saved", "phase", phase.String(), "items", len(items), "written", written)
	return nil
}

// clear drops the run's bookkeeping. It runs even when ctx is done.
func (s *Scheduler) clear(ctx context.Context, r *run) error {
	if stale := s.tracker.Release(graph.ArtifactID(r.id, "")); stale > 0 {
		r.logger.Warn("released stale in-flight entries", "count", stale)
	}
	n, err := s.gw.ClearRun(context.WithoutCancel(ctx), r.id)
	if err != nil {
		return fmt.Errorf("orchestrator: clear run: %w", err)
	}
	r.logger.Debug("run cleared", "marks", n)
	return nil
}

func (s *Scheduler) emitPhase(r *run, phase Phase, status ProgressStatus, msg string) {
	s.progress.Emit(ProgressEvent{RunID: r.id, Phase: phase, Status: status, Message: msg})
}
