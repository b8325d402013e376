package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/synth"
	"github.com/dusk-indust/docweave/internal/tracker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphBuilder assembles a graph.Document from ids shaped "path:name".
type graphBuilder struct {
	doc graph.Document
}

func (b *graphBuilder) node(id string, kind graph.NodeKind) *graphBuilder {
	path, name := id, id
	if i := strings.IndexByte(id, ':'); i >= 0 {
		path, name = id[:i], id[i+1:]
	}
	b.doc.Nodes = append(b.doc.Nodes, graph.Node{ID: id, Name: name, Kind: kind, Path: path})
	return b
}

func (b *graphBuilder) contains(parent string, children ...string) *graphBuilder {
	for _, c := range children {
		b.doc.Edges = append(b.doc.Edges, graph.Edge{SourceID: parent, TargetID: c, Kind: graph.EdgeKindContains})
	}
	return b
}

func (b *graphBuilder) calls(from, to string) *graphBuilder {
	b.doc.Edges = append(b.doc.Edges, graph.Edge{SourceID: from, TargetID: to, Kind: graph.EdgeKindCalls})
	return b
}

func (b *graphBuilder) store(t *testing.T) *graph.MemStore {
	t.Helper()
	m := graph.NewMemStore()
	require.NoError(t, graph.Load(context.Background(), m, b.doc))
	return m
}

// recorder is a Synthesizer that records every request it receives.
type recorder struct {
	mu    sync.Mutex
	reqs  map[string]synth.Request
	calls atomic.Int32
	fn    func(ctx context.Context, req synth.Request) (string, error)
}

func newRecorder(fn func(ctx context.Context, req synth.Request) (string, error)) *recorder {
	return &recorder{reqs: make(map[string]synth.Request), fn: fn}
}

func (r *recorder) Synthesize(ctx context.Context, req synth.Request) (string, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.reqs[req.Node.ID] = req
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, req)
	}
	return "Documentation of " + req.Node.Name + ".", nil
}

func (r *recorder) request(id string) (synth.Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	return req, ok
}

func newTestScheduler(t *testing.T, gw graph.Gateway, s synth.Synthesizer, cfg Config, opts ...Option) *Scheduler {
	t.Helper()
	sch, err := NewScheduler(gw, s, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(sch.Close)
	return sch
}

func artifact(t *testing.T, m *graph.MemStore, id string) graph.Artifact {
	t.Helper()
	a, err := m.GetArtifact(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a, "no artifact for %s", id)
	return *a
}

// requireAllDocumented asserts that every node in m has an artifact from runID.
func requireAllDocumented(t *testing.T, m *graph.MemStore, runID string) {
	t.Helper()
	nodes, err := m.Nodes(context.Background())
	require.NoError(t, err)
	for _, n := range nodes {
		a := artifact(t, m, n.ID)
		assert.Equal(t, runID, a.RunID, "artifact for %s comes from another run", n.ID)
	}
}

// cycleGraph is three functions calling each other in a ring.
func cycleGraph() *graphBuilder {
	return (&graphBuilder{}).
		node("ring.go:A", graph.NodeKindFunction).
		node("ring.go:B", graph.NodeKindFunction).
		node("ring.go:C", graph.NodeKindFunction).
		calls("ring.go:A", "ring.go:B").
		calls("ring.go:B", "ring.go:C").
		calls("ring.go:C", "ring.go:A")
}

// layeredGraph is pkg ⊃ pkg/a.go ⊃ {f, g, h} with f -> g -> h.
func layeredGraph() *graphBuilder {
	return (&graphBuilder{}).
		node("pkg", graph.NodeKindFolder).
		node("pkg/a.go", graph.NodeKindFile).
		node("pkg/a.go:f", graph.NodeKindFunction).
		node("pkg/a.go:g", graph.NodeKindFunction).
		node("pkg/a.go:h", graph.NodeKindFunction).
		contains("pkg", "pkg/a.go").
		contains("pkg/a.go", "pkg/a.go:f", "pkg/a.go:g", "pkg/a.go:h").
		calls("pkg/a.go:f", "pkg/a.go:g").
		calls("pkg/a.go:g", "pkg/a.go:h")
}

// treeGraph is one folder holding files x funcs functions, no calls.
func treeGraph(files, funcs int) *graphBuilder {
	b := (&graphBuilder{}).node("src", graph.NodeKindFolder)
	for i := range files {
		file := fmt.Sprintf("src/f%02d.go", i)
		b.node(file, graph.NodeKindFile).contains("src", file)
		for j := range funcs {
			fn := fmt.Sprintf("%s:fn%02d", file, j)
			b.node(fn, graph.NodeKindFunction).contains(file, fn)
		}
	}
	return b
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(nil, synth.Static{}, Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewScheduler(graph.NewMemStore(), nil, Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewScheduler(graph.NewMemStore(), synth.Static{}, Config{MaxWorkers: -3})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_RunRequiresRoot(t *testing.T) {
	sch := newTestScheduler(t, graph.NewMemStore(), synth.Static{}, Config{})
	res, err := sch.Run(context.Background(), RunRequest{})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, res)
}

func TestScheduler_UnknownRoot(t *testing.T) {
	m := layeredGraph().store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "nope"})
	require.ErrorIs(t, err, graph.ErrNodeNotFound)
	require.NotNil(t, res)
	assert.Contains(t, res.Error, "init run")
	assert.Empty(t, m.ActiveRuns())
}

// Scenario 1: a pure call cycle completes and is flagged partial.
func TestScheduler_PureCycle(t *testing.T) {
	m := cycleGraph().store(t)
	rec := newRecorder(nil)
	sch := newTestScheduler(t, m, rec, Config{MaxWorkers: 4})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "ring.go:A"})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 3, res.NodesProcessed)
	assert.Equal(t, 2, res.Initialized)
	assert.Equal(t, 1, res.StallBreaks)
	assert.Equal(t, 2, res.Forced)
	requireAllDocumented(t, m, res.RunID)

	partial := 0
	for _, id := range []string{"ring.go:A", "ring.go:B", "ring.go:C"} {
		if artifact(t, m, id).Metadata.PartialContext {
			partial++
		}
	}
	assert.GreaterOrEqual(t, partial, 1)

	b := artifact(t, m, "ring.go:B")
	assert.Equal(t, graph.InfoParentPartial, b.InfoType)
	assert.Equal(t, graph.ReasonCallCycle, b.Metadata.Reason)
	assert.Equal(t, PhaseStallBreaker.String(), b.Metadata.Phase)

	root := artifact(t, m, "ring.go:A")
	assert.Equal(t, graph.InfoRoot, root.InfoType)
	assert.Equal(t, []string{"ring.go:B"}, root.Metadata.ChildIDs)
	assert.False(t, root.Metadata.PartialContext)
}

func TestScheduler_CycleUnderFile(t *testing.T) {
	m := cycleGraph().node("ring.go", graph.NodeKindFile).
		contains("ring.go", "ring.go:A", "ring.go:B", "ring.go:C").
		store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "ring.go"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.NodesProcessed)
	assert.Equal(t, 3, res.Forced)
	requireAllDocumented(t, m, res.RunID)

	file := artifact(t, m, "ring.go")
	assert.Equal(t, graph.InfoRoot, file.InfoType)
	assert.ElementsMatch(t, []string{"ring.go:A", "ring.go:B", "ring.go:C"}, file.Metadata.ChildIDs)
}

// Scenario 2: 100 leaves with batch size 10 take exactly 10 leaf batches,
// and every parent sees exactly its children.
func TestScheduler_TreeBatches(t *testing.T) {
	b := treeGraph(10, 10)
	m := b.store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{BatchSize: 10})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "src"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.LeafBatches)
	assert.Equal(t, 100, res.Leaves)
	assert.Equal(t, 10, res.Parents)
	assert.Equal(t, 111, res.NodesProcessed)
	assert.Zero(t, res.Partial)
	assert.Zero(t, res.StallBreaks)
	requireAllDocumented(t, m, res.RunID)

	children := map[string][]string{}
	for _, e := range b.doc.Edges {
		children[e.SourceID] = append(children[e.SourceID], e.TargetID)
	}
	for parent, want := range children {
		a := artifact(t, m, parent)
		assert.ElementsMatch(t, want, a.Metadata.ChildIDs, "child context of %s", parent)
		assert.Equal(t, len(want), a.ChildCount)
	}
}

// Scenario 3: an isolated function is documented alone with no context.
func TestScheduler_IsolatedLeaf(t *testing.T) {
	m := (&graphBuilder{}).node("lone.go:solo", graph.NodeKindFunction).store(t)
	rec := newRecorder(nil)
	sch := newTestScheduler(t, m, rec, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "lone.go:solo"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NodesProcessed)
	assert.Equal(t, int32(1), rec.calls.Load())

	a := artifact(t, m, "lone.go:solo")
	assert.False(t, a.Metadata.PartialContext)
	assert.Empty(t, a.Metadata.ChildIDs)
	assert.Zero(t, a.ChildCount)
	assert.Equal(t, "Documentation of solo.", a.Content)

	req, ok := rec.request("lone.go:solo")
	require.True(t, ok)
	assert.Empty(t, req.Children)
	assert.False(t, req.Partial)
}

// Scenario 4: one failing node among 50 yields an error artifact and the
// run still succeeds.
func TestScheduler_SynthesisFailure(t *testing.T) {
	b := (&graphBuilder{}).node("svc.go", graph.NodeKindFile)
	for i := range 49 {
		fn := fmt.Sprintf("svc.go:fn%02d", i)
		b.node(fn, graph.NodeKindFunction).contains("svc.go", fn)
	}
	m := b.store(t)
	rec := newRecorder(func(_ context.Context, req synth.Request) (string, error) {
		if req.Node.ID == "svc.go:fn17" {
			return "", errors.New("upstream returned 500")
		}
		return "ok " + req.Node.Name, nil
	})
	sch := newTestScheduler(t, m, rec, Config{MaxWorkers: 8})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "svc.go"})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, 50, res.NodesProcessed)
	assert.Equal(t, 1, res.Errors)

	arts, err := m.Artifacts(context.Background())
	require.NoError(t, err)
	require.Len(t, arts, 50)
	errorsSeen := 0
	for _, a := range arts {
		if a.InfoType == graph.InfoError {
			errorsSeen++
			assert.Equal(t, "svc.go:fn17", a.SourceID)
			assert.Contains(t, a.Metadata.Error, "upstream returned 500")
		}
	}
	assert.Equal(t, 1, errorsSeen)
}

func TestScheduler_RecoversPanickingSynthesizer(t *testing.T) {
	m := layeredGraph().store(t)
	sch := newTestScheduler(t, m, synth.Func(func(_ context.Context, req synth.Request) (string, error) {
		if req.Node.Name == "g" {
			panic("index out of range")
		}
		return "ok", nil
	}), Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	requireAllDocumented(t, m, res.RunID)

	g := artifact(t, m, "pkg/a.go:g")
	assert.Equal(t, graph.InfoError, g.InfoType)
	assert.Contains(t, g.Metadata.Error, "index out of range")
}

func TestScheduler_TimeoutFallback(t *testing.T) {
	m := layeredGraph().store(t)
	sch := newTestScheduler(t, m, synth.Func(func(ctx context.Context, req synth.Request) (string, error) {
		if req.Node.Name == "g" {
			time.Sleep(300 * time.Millisecond)
		}
		return "ok " + req.Node.Name, nil
	}), Config{NodeTimeout: 30 * time.Millisecond})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TimedOut)
	assert.Zero(t, res.Errors)
	requireAllDocumented(t, m, res.RunID)

	g := artifact(t, m, "pkg/a.go:g")
	assert.Equal(t, graph.PathFallback, g.Metadata.Path)
	assert.Equal(t, graph.ReasonTimeout, g.Metadata.Reason)
	assert.True(t, g.Metadata.PartialContext)
	assert.True(t, strings.HasPrefix(g.Content, "function g in pkg/a.go."), g.Content)
	assert.Contains(t, g.Content, "- h: ok h")

	f := artifact(t, m, "pkg/a.go:f")
	assert.Equal(t, graph.InfoParent, f.InfoType, "the fallback unblocks the caller")
	assert.Equal(t, []string{"pkg/a.go:g"}, f.Metadata.ChildIDs)
}

func TestScheduler_LeafFirst(t *testing.T) {
	b := layeredGraph()
	m := b.store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{})

	_, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.NoError(t, err)

	for _, e := range b.doc.Edges {
		assert.Less(t, m.SaveBatch(e.TargetID), m.SaveBatch(e.SourceID),
			"%s must be saved before its parent %s", e.TargetID, e.SourceID)
	}
	assert.Equal(t, 1, m.SaveBatch("pkg/a.go:h"), "the only leaf goes first")
}

// Call cycles at high worker counts must never deadlock.
func TestScheduler_NoDeadlockWithManyWorkers(t *testing.T) {
	b := (&graphBuilder{}).node("mod", graph.NodeKindFolder)
	const files, funcs = 20, 10
	for i := range files {
		file := fmt.Sprintf("mod/f%02d.go", i)
		b.node(file, graph.NodeKindFile).contains("mod", file)
		for j := range funcs {
			fn := fmt.Sprintf("%s:fn%d", file, j)
			b.node(fn, graph.NodeKindMethod).contains(file, fn)
		}
	}
	for i := range files {
		for j := range funcs {
			b.calls(fmt.Sprintf("mod/f%02d.go:fn%d", i, j), fmt.Sprintf("mod/f%02d.go:fn%d", i, (j+1)%funcs))
		}
		b.calls(fmt.Sprintf("mod/f%02d.go:fn0", i), fmt.Sprintf("mod/f%02d.go:fn5", (i+1)%files))
	}
	m := b.store(t)

	var active, peak atomic.Int32
	sy := synth.Func(func(ctx context.Context, req synth.Request) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-time.After(time.Duration(rand.IntN(3)) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "doc", nil
	})
	sch := newTestScheduler(t, m, sy, Config{MaxWorkers: 100, BatchSize: 80})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := sch.Run(ctx, RunRequest{RootID: "mod"})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 1+files+files*funcs, res.NodesProcessed)
	assert.Positive(t, res.StallBreaks)
	assert.LessOrEqual(t, peak.Load(), int32(100))
	requireAllDocumented(t, m, res.RunID)
	assert.Empty(t, m.ActiveRuns())
	assert.Empty(t, sch.InFlight())
}

func TestScheduler_ExactlyOnceAndRerun(t *testing.T) {
	m := layeredGraph().store(t)
	rec := newRecorder(nil)
	sch := newTestScheduler(t, m, rec, Config{})
	ctx := context.Background()

	first, err := sch.Run(ctx, RunRequest{RootID: "pkg"})
	require.NoError(t, err)
	_, err = uuid.Parse(first.RunID)
	require.NoError(t, err, "run ids are UUIDs")
	assert.Equal(t, 5, first.NodesProcessed)
	assert.Equal(t, 5, m.Writes(), "one write per node")
	assert.Equal(t, int32(5), rec.calls.Load())

	second, err := sch.Run(ctx, RunRequest{RootID: "pkg"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Zero(t, second.NodesProcessed)
	assert.Zero(t, second.Initialized)
	assert.True(t, second.RootSkipped)
	assert.Equal(t, 5, m.Writes(), "a re-run without overwrite writes nothing")
	assert.Equal(t, int32(5), rec.calls.Load())

	overwrite := true
	third, err := sch.Run(ctx, RunRequest{RootID: "pkg", Overwrite: &overwrite})
	require.NoError(t, err)
	assert.Equal(t, 5, third.NodesProcessed)
	assert.Equal(t, 10, m.Writes())
	requireAllDocumented(t, m, third.RunID)
}

func TestScheduler_IncrementalRun(t *testing.T) {
	m := layeredGraph().store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{})
	ctx := context.Background()

	_, err := sch.Run(ctx, RunRequest{RootID: "pkg"})
	require.NoError(t, err)

	require.NoError(t, m.AddNode(ctx, graph.Node{ID: "pkg/a.go:k", Name: "k", Kind: graph.NodeKindFunction, Path: "pkg/a.go"}))
	require.NoError(t, m.AddEdge(ctx, graph.Edge{SourceID: "pkg/a.go", TargetID: "pkg/a.go:k", Kind: graph.EdgeKindContains}))

	res, err := sch.Run(ctx, RunRequest{RootID: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Initialized)
	assert.Equal(t, 1, res.NodesProcessed, "only the new function is documented")
	assert.Equal(t, res.RunID, artifact(t, m, "pkg/a.go:k").RunID)
}

// failingGateway fails the n-th SaveArtifacts call.
type failingGateway struct {
	*graph.MemStore
	failOn int32
	saves  atomic.Int32
}

var errDiskFull = errors.New("disk full")

func (f *failingGateway) SaveArtifacts(ctx context.Context, runID string, arts []graph.Artifact) (int, error) {
	if f.saves.Add(1) == f.failOn {
		return 0, errDiskFull
	}
	return f.MemStore.SaveArtifacts(ctx, runID, arts)
}

func TestScheduler_StoreFailureAbortsRun(t *testing.T) {
	m := layeredGraph().store(t)
	gw := &failingGateway{MemStore: m, failOn: 2}
	sch := newTestScheduler(t, gw, synth.Static{}, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.ErrorIs(t, err, errDiskFull)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.NodesProcessed, "the leaf round was persisted before the failure")
	assert.Contains(t, res.Error, "disk full")
	assert.Empty(t, m.ActiveRuns(), "bookkeeping is cleared on failure")

	h, err := m.GetArtifact(context.Background(), "pkg/a.go:h")
	require.NoError(t, err)
	assert.NotNil(t, h)
}

// clearFailingGateway cannot drop run bookkeeping.
type clearFailingGateway struct {
	*graph.MemStore
}

var errConnReset = errors.New("connection reset")

func (clearFailingGateway) ClearRun(context.Context, string) (int, error) {
	return 0, errConnReset
}

func TestScheduler_ClearFailureIsReported(t *testing.T) {
	m := layeredGraph().store(t)
	sch := newTestScheduler(t, clearFailingGateway{MemStore: m}, synth.Static{}, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.ErrorIs(t, err, errConnReset)
	require.NotNil(t, res)
	assert.Equal(t, 5, res.NodesProcessed, "the documentation itself was saved")
	assert.Contains(t, res.Error, "clear run")
	assert.Equal(t, []string{res.RunID}, m.ActiveRuns())
}

// clearAndSaveFailing fails a SaveArtifacts call and every ClearRun.
type clearAndSaveFailing struct {
	*failingGateway
}

func (clearAndSaveFailing) ClearRun(context.Context, string) (int, error) {
	return 0, errConnReset
}

func TestScheduler_ClearFailureJoinsRunError(t *testing.T) {
	m := layeredGraph().store(t)
	gw := clearAndSaveFailing{&failingGateway{MemStore: m, failOn: 1}}
	sch := newTestScheduler(t, gw, synth.Static{}, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.ErrorIs(t, err, errDiskFull)
	require.ErrorIs(t, err, errConnReset)
	require.NotNil(t, res)
	assert.Contains(t, res.Error, "disk full")
	assert.Contains(t, res.Error, "connection reset")
}

func TestScheduler_ReleasesStaleTrackerEntries(t *testing.T) {
	m := layeredGraph().store(t)
	tr := tracker.New()
	tr.RegisterProcessor("run-x:pkg/a.go:ghost", "worker-9")
	tr.RegisterProcessor("other:pkg/a.go:f", "worker-1")
	sch := newTestScheduler(t, m, synth.Static{}, Config{},
		WithTracker(tr), WithRunIDFunc(func() string { return "run-x" }))

	_, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"other:pkg/a.go:f": "worker-1"}, sch.InFlight())
}

// A child reached over several edges, such as one CALLS edge per call site
// or a nested function that is also called, is one child of its parent.
func TestScheduler_DuplicateEdgesCountOnce(t *testing.T) {
	m := (&graphBuilder{}).
		node("a.go:f", graph.NodeKindFunction).
		node("a.go:g", graph.NodeKindFunction).
		node("a.go:outer", graph.NodeKindFunction).
		node("a.go:inner", graph.NodeKindFunction).
		node("a.go", graph.NodeKindFile).
		contains("a.go", "a.go:f", "a.go:outer").
		calls("a.go:f", "a.go:g").
		calls("a.go:f", "a.go:g").
		contains("a.go:outer", "a.go:inner").
		calls("a.go:outer", "a.go:inner").
		store(t)
	rec := newRecorder(nil)
	sch := newTestScheduler(t, m, rec, Config{})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "a.go"})
	require.NoError(t, err)
	assert.Zero(t, res.Partial)

	for parent, child := range map[string]string{"a.go:f": "a.go:g", "a.go:outer": "a.go:inner"} {
		a := artifact(t, m, parent)
		assert.Equal(t, 1, a.ChildCount, parent)
		assert.Equal(t, []string{child}, a.Metadata.ChildIDs, parent)
		assert.False(t, a.Metadata.PartialContext, parent)

		req, ok := rec.request(parent)
		require.True(t, ok)
		require.Len(t, req.Children, 1, parent)
		assert.Zero(t, req.MissingChildren, parent)
	}
}

func TestScheduler_CancellationClearsRun(t *testing.T) {
	m := treeGraph(3, 5).store(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sch := newTestScheduler(t, m, synth.Func(func(ctx context.Context, _ synth.Request) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}), Config{})

	res, err := sch.Run(ctx, RunRequest{RootID: "src"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.NodesProcessed)
	assert.Empty(t, m.ActiveRuns())
}

func TestScheduler_IterationCeiling(t *testing.T) {
	m := cycleGraph().node("ring.go", graph.NodeKindFile).
		contains("ring.go", "ring.go:A", "ring.go:B", "ring.go:C").
		store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{MaxIterations: 1})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "ring.go"})
	require.NoError(t, err, "the ceiling is a warning, not a failure")
	assert.Contains(t, res.Warning, "iteration ceiling")
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 1, res.NodesProcessed, "only the root is documented")

	root := artifact(t, m, "ring.go")
	assert.Equal(t, graph.InfoRoot, root.InfoType)
	assert.True(t, root.Metadata.PartialContext)
	assert.Equal(t, graph.ReasonMissingChildDocs, root.Metadata.Reason)
	assert.Empty(t, m.ActiveRuns())
}

func TestScheduler_StallWithoutFunctions(t *testing.T) {
	// Two folders containing each other cannot be forced.
	m := (&graphBuilder{}).
		node("r", graph.NodeKindFolder).
		node("x", graph.NodeKindFolder).
		node("y", graph.NodeKindFolder).
		contains("r", "x").contains("x", "y").contains("y", "x").
		store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{StallRounds: 3})

	res, err := sch.Run(context.Background(), RunRequest{RootID: "r"})
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "none can be forced")
	assert.Equal(t, 3, res.Rounds, "the breaker waits for three idle rounds")
	assert.Zero(t, res.StallBreaks)
	assert.Empty(t, m.ActiveRuns())
}

func TestScheduler_ConcurrentRuns(t *testing.T) {
	b := treeGraph(4, 4)
	b.node("lib", graph.NodeKindFolder)
	for i := range 4 {
		fn := fmt.Sprintf("lib:fn%d", i)
		b.node(fn, graph.NodeKindFunction).contains("lib", fn)
	}
	m := b.store(t)
	sch := newTestScheduler(t, m, synth.Static{}, Config{MaxWorkers: 8})

	var wg sync.WaitGroup
	results := make([]*RunResult, 2)
	for i, root := range []string{"src", "lib"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := sch.Run(context.Background(), RunRequest{RootID: root})
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, 21, results[0].NodesProcessed)
	assert.Equal(t, 5, results[1].NodesProcessed)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
	assert.Empty(t, m.ActiveRuns())
}

func TestScheduler_EmitsPhaseProgress(t *testing.T) {
	m := layeredGraph().store(t)
	pr := NewProgressReporter(1024)
	sch := newTestScheduler(t, m, synth.Static{}, Config{},
		WithProgress(pr), WithRunIDFunc(func() string { return "run-fixed" }))

	_, err := sch.Run(context.Background(), RunRequest{RootID: "pkg"})
	require.NoError(t, err)

	var phases []string
	nodes := map[string]bool{}
	for len(sch.Progress()) > 0 {
		ev := <-sch.Progress()
		assert.Equal(t, "run-fixed", ev.RunID)
		if ev.NodeID == "" {
			phases = append(phases, FormatProgress(ev))
			continue
		}
		if ev.Status == ProgressComplete {
			nodes[ev.NodeID] = true
		}
	}
	assert.Len(t, nodes, 5)
	require.NotEmpty(t, phases)
	assert.Equal(t, "[run-fixed] leaves", phases[0])
	assert.Equal(t, "[run-fixed] root", phases[len(phases)-1][:len("[run-fixed] root")])
}
