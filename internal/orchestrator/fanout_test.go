package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/synth"
	"github.com/dusk-indust/docweave/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog collects progress events from concurrent emitters.
type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) emit(ev ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ProgressEvent(nil), l.events...)
}

func newTestFan(s synth.Synthesizer, workers int, timeout time.Duration) (*fanOut, *eventLog) {
	log := &eventLog{}
	return &fanOut{
		synth:   s,
		tracker: tracker.New(),
		workers: workers,
		timeout: timeout,
		emit:    log.emit,
		logger:  slog.New(slog.DiscardHandler),
		keyFn:   func(id string) string { return graph.ArtifactID("run-1", id) },
	}, log
}

func makeItems(n int) []graph.WorkItem {
	items := make([]graph.WorkItem, n)
	for i := range items {
		id := fmt.Sprintf("pkg/f.go:fn%d", i)
		items[i] = graph.WorkItem{Node: graph.Node{ID: id, Name: fmt.Sprintf("fn%d", i), Kind: graph.NodeKindFunction, Path: "pkg/f.go"}}
	}
	return items
}

func byNode(outcomes []outcome) map[string]outcome {
	m := make(map[string]outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.item.Node.ID] = o
	}
	return m
}

func TestFanOut_AllSucceed(t *testing.T) {
	fan, _ := newTestFan(synth.Func(func(_ context.Context, req synth.Request) (string, error) {
		return "doc " + req.Node.Name, nil
	}), 4, time.Second)

	outcomes := fan.run(context.Background(), "run-1", PhaseLeaves, makeItems(5))
	require.Len(t, outcomes, 5)
	for id, o := range byNode(outcomes) {
		assert.NoError(t, o.err, id)
		assert.False(t, o.timedOut, id)
		assert.Equal(t, "doc "+o.item.Node.Name, o.content)
	}
	assert.Empty(t, fan.tracker.InFlight(), "every processor is unregistered after the round")
}

func TestFanOut_EmptyRound(t *testing.T) {
	fan, log := newTestFan(synth.Static{}, 4, time.Second)
	assert.Nil(t, fan.run(context.Background(), "run-1", PhaseLeaves, nil))
	assert.Empty(t, log.snapshot())
}

func TestFanOut_FailureDoesNotCancelSiblings(t *testing.T) {
	boom := errors.New("model unavailable")
	fan, _ := newTestFan(synth.Func(func(ctx context.Context, req synth.Request) (string, error) {
		if req.Node.Name == "fn1" {
			return "", boom
		}
		time.Sleep(10 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "ok", nil
	}), 3, time.Second)

	outcomes := byNode(fan.run(context.Background(), "run-1", PhaseReadyParents, makeItems(3)))
	require.Len(t, outcomes, 3)
	assert.ErrorIs(t, outcomes["pkg/f.go:fn1"].err, boom)
	assert.NoError(t, outcomes["pkg/f.go:fn0"].err)
	assert.NoError(t, outcomes["pkg/f.go:fn2"].err)
}

func TestFanOut_RecoversPanic(t *testing.T) {
	fan, _ := newTestFan(synth.Func(func(context.Context, synth.Request) (string, error) {
		panic("nil map write")
	}), 2, time.Second)

	outcomes := fan.run(context.Background(), "run-1", PhaseLeaves, makeItems(2))
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.ErrorIs(t, o.err, errSynthPanic)
		assert.Contains(t, o.err.Error(), "nil map write")
	}
}

func TestFanOut_TimeoutReleasesSlot(t *testing.T) {
	// The synthesizer ignores its context; the harvest must not wait for it.
	fan, log := newTestFan(synth.Func(func(context.Context, synth.Request) (string, error) {
		time.Sleep(300 * time.Millisecond)
		return "late", nil
	}), 1, 20*time.Millisecond)

	start := time.Now()
	outcomes := fan.run(context.Background(), "run-1", PhaseLeaves, makeItems(3))
	elapsed := time.Since(start)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.timedOut)
		assert.NoError(t, o.err)
		assert.Empty(t, o.content)
	}
	assert.Less(t, elapsed, 250*time.Millisecond, "three timeouts on one slot should take about 60ms")

	failed := 0
	for _, ev := range log.snapshot() {
		if ev.Status == ProgressFailed {
			failed++
			assert.Contains(t, ev.Message, "timed out")
		}
	}
	assert.Equal(t, 3, failed)
}

func TestFanOut_ContextDeadlineErrorCountsAsTimeout(t *testing.T) {
	fan, _ := newTestFan(synth.Func(func(ctx context.Context, _ synth.Request) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("request: %w", ctx.Err())
	}), 2, 20*time.Millisecond)

	outcomes := fan.run(context.Background(), "run-1", PhaseLeaves, makeItems(2))
	for _, o := range outcomes {
		assert.True(t, o.timedOut)
		assert.NoError(t, o.err)
	}
}

func TestFanOut_BoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	fan, _ := newTestFan(nil, 3, time.Second)
	fan.synth = synth.Func(func(context.Context, synth.Request) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		assert.LessOrEqual(t, len(fan.tracker.InFlight()), 3)
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})

	outcomes := fan.run(context.Background(), "run-1", PhaseLeaves, makeItems(20))
	require.Len(t, outcomes, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestFanOut_RegistersProcessorPerNode(t *testing.T) {
	seen := make(chan map[string]string, 1)
	fan, _ := newTestFan(nil, 1, time.Second)
	fan.synth = synth.Func(func(_ context.Context, req synth.Request) (string, error) {
		seen <- fan.tracker.InFlight()
		return "ok", nil
	})

	fan.run(context.Background(), "run-1", PhaseLeaves, makeItems(1))
	inFlight := <-seen
	assert.Equal(t, map[string]string{"run-1:pkg/f.go:fn0": "worker-0"}, inFlight)
}

func TestFanOut_ContextCancellation(t *testing.T) {
	started := make(chan struct{}, 3)
	fan, _ := newTestFan(synth.Func(func(ctx context.Context, _ synth.Request) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	}), 3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan []outcome, 1)
	go func() {
		ch <- fan.run(ctx, "run-1", PhaseLeaves, makeItems(3))
	}()

	<-started
	cancel()

	select {
	case outcomes := <-ch:
		require.Len(t, outcomes, 3)
		for _, o := range outcomes {
			assert.ErrorIs(t, o.err, context.Canceled)
			assert.False(t, o.timedOut, "cancellation is not a timeout")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fanOut.run did not return after context cancellation within 5s")
	}
}

func TestFanOut_ProgressEventsEmitted(t *testing.T) {
	fan, log := newTestFan(synth.Static{}, 2, time.Second)
	items := makeItems(3)

	outcomes := fan.run(context.Background(), "run-1", PhaseReadyParents, items)
	require.Len(t, outcomes, 3)

	statuses := make(map[string]map[ProgressStatus]bool)
	for _, ev := range log.snapshot() {
		assert.Equal(t, PhaseReadyParents, ev.Phase)
		assert.Equal(t, "run-1", ev.RunID)
		if statuses[ev.NodeID] == nil {
			statuses[ev.NodeID] = make(map[ProgressStatus]bool)
		}
		statuses[ev.NodeID][ev.Status] = true
	}
	for _, item := range items {
		st, ok := statuses[item.Node.ID]
		require.True(t, ok, "no progress events for %q", item.Node.ID)
		assert.True(t, st[ProgressPending], "missing Pending event for %q", item.Node.ID)
		assert.True(t, st[ProgressWorking], "missing Working event for %q", item.Node.ID)
		assert.True(t, st[ProgressComplete], "missing Complete event for %q", item.Node.ID)
	}
}
