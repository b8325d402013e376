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
	"golang.org/x/sync/errgroup"
)

// errSynthPanic wraps a recovered panic from a Synthesizer.
var errSynthPanic = errors.New("synthesizer panicked")

// outcome is the harvested result of one dispatched node.
type outcome struct {
	item     graph.WorkItem
	req      synth.Request
	content  string
	err      error
	timedOut bool
	elapsed  time.Duration
}

// fanOut runs one round of synthesis calls on a bounded worker pool.
// Workers share nothing; each result is sent back over a channel and
// harvested by the caller as soon as it is ready.
type fanOut struct {
	synth   synth.Synthesizer
	tracker *tracker.Tracker
	workers int
	timeout time.Duration
	emit    func(ProgressEvent)
	logger  *slog.Logger

	// keyFn maps a node id to its tracker key, so concurrent runs over
	// the same graph do not collide.
	keyFn func(nodeID string) string
}

// run dispatches every item and returns the outcomes in completion order.
// Node failures never cancel sibling calls.
func (f *fanOut) run(ctx context.Context, runID string, phase Phase, items []graph.WorkItem) []outcome {
	if len(items) == 0 {
		return nil
	}
	workers := min(f.workers, len(items))

	slots := make(chan int, workers)
	for i := range workers {
		slots <- i
	}
	results := make(chan outcome, len(items))

	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		for _, item := range items {
			f.emit(ProgressEvent{RunID: runID, Phase: phase, NodeID: item.Node.ID, Status: ProgressPending})
			g.Go(func() error {
				slot := <-slots
				defer func() { slots <- slot }()

				worker := fmt.Sprintf("worker-%d", slot)
				key := f.keyFn(item.Node.ID)
				f.tracker.RegisterProcessor(key, worker)
				defer f.tracker.UnregisterProcessor(key)

				f.emit(ProgressEvent{RunID: runID, Phase: phase, NodeID: item.Node.ID, Status: ProgressWorking, Message: worker})
				results <- f.one(ctx, item, buildRequest(item, phase))
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	out := make([]outcome, 0, len(items))
	for r := range results {
		ev := ProgressEvent{RunID: runID, Phase: phase, NodeID: r.item.Node.ID, Status: ProgressComplete}
		switch {
		case r.timedOut:
			ev.Status = ProgressFailed
			ev.Message = "timed out after " + f.timeout.String()
		case r.err != nil:
			ev.Status = ProgressFailed
			ev.Message = r.err.Error()
		}
		f.emit(ev)
		out = append(out, r)
	}
	return out
}

// one performs a single synthesis call under the per-node timeout. The
// call runs in its own goroutine so that a synthesizer ignoring its
// context cannot hold the worker slot past the deadline.
func (f *fanOut) one(ctx context.Context, item graph.WorkItem, req synth.Request) outcome {
	start := time.Now()
	nctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("%w: %v", errSynthPanic, r)}
			}
		}()
		text, err := f.synth.Synthesize(nctx, req)
		done <- reply{text: text, err: err}
	}()

	res := outcome{item: item, req: req}
	select {
	case r := <-done:
		res.content, res.err = r.text, r.err
		if r.err != nil && ctx.Err() == nil && errors.Is(nctx.Err(), context.DeadlineExceeded) {
			res.err, res.timedOut = nil, true
		}
	case <-nctx.Done():
		if err := ctx.Err(); err != nil {
			res.err = err
		} else {
			res.timedOut = true
		}
	}
	res.elapsed = time.Since(start)
	synthesisDuration.Observe(res.elapsed.Seconds())

	if res.timedOut {
		f.logger.Warn("synthesis timed out", "node", item.Node.ID, "timeout", f.timeout)
	} else if res.err != nil && ctx.Err() == nil {
		f.logger.Warn("synthesis failed", "node", item.Node.ID, "error", res.err)
	}
	return res
}
