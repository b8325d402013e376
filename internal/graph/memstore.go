package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]Node
	order []string          // insertion order, keeps batches deterministic
	out   map[string][]Edge // outgoing edges keyed by source id
	edges int
	docs  map[string]Artifact        // current artifact per node id
	runs  map[string]map[string]Status // runID -> nodeID -> status

	saves     int            // number of SaveArtifacts batches
	saveBatch map[string]int // nodeID -> batch sequence of its latest save
	writes    int            // total artifacts ever written
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:     make(map[string]Node),
		out:       make(map[string][]Edge),
		docs:      make(map[string]Artifact),
		runs:      make(map[string]map[string]Status),
		saveBatch: make(map[string]int),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddNode stores a node keyed by its id.
func (m *MemStore) AddNode(_ context.Context, node Node) error {
	if node.ID == "" {
		return fmt.Errorf("memstore: add node: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[node.ID]; !ok {
		m.order = append(m.order, node.ID)
	}
	m.nodes[node.ID] = node
	return nil
}

// AddEdge records a relationship between two existing nodes.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[edge.SourceID]; !ok {
		return fmt.Errorf("memstore: add edge: %w: %s", ErrNodeNotFound, edge.SourceID)
	}
	if _, ok := m.nodes[edge.TargetID]; !ok {
		return fmt.Errorf("memstore: add edge: %w: %s", ErrNodeNotFound, edge.TargetID)
	}
	switch edge.Kind {
	case EdgeKindContains, EdgeKindCalls:
	default:
		return fmt.Errorf("memstore: unsupported edge kind: %s", edge.Kind)
	}
	m.out[edge.SourceID] = append(m.out[edge.SourceID], edge)
	m.edges++
	return nil
}

// GetNode returns the node with the given id, or nil if not found.
func (m *MemStore) GetNode(_ context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// GetArtifact returns the current artifact for a node, or nil.
func (m *MemStore) GetArtifact(_ context.Context, nodeID string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.docs[nodeID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Nodes returns all nodes in insertion order.
func (m *MemStore) Nodes(_ context.Context) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.nodes[id])
	}
	return out, nil
}

// Edges returns a copy of all edges in the store.
func (m *MemStore) Edges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, 0, m.edges)
	for _, id := range m.order {
		out = append(out, m.out[id]...)
	}
	return out, nil
}

// Artifacts returns every stored artifact sorted by source path and id.
func (m *MemStore) Artifacts(_ context.Context) ([]Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Artifact, 0, len(m.docs))
	for _, a := range m.docs {
		out = append(out, a)
	}
	sortArtifacts(out)
	return out, nil
}

// Stats returns counts of nodes, edges, and artifacts.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		NodeCount:     len(m.nodes),
		EdgeCount:     m.edges,
		ArtifactCount: len(m.docs),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// ---------- Gateway ----------

// InitRun marks the reachable subgraph of rootID for runID.
func (m *MemStore) InitRun(_ context.Context, rootID, runID string, overwrite bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[rootID]; !ok {
		return 0, fmt.Errorf("memstore: init run: %w: %s", ErrNodeNotFound, rootID)
	}
	if _, ok := m.runs[runID]; ok {
		return 0, fmt.Errorf("memstore: init run: run %s already initialized", runID)
	}

	marks := map[string]Status{rootID: StatusInProgress}
	m.runs[runID] = marks

	pending := 0
	queue := []string{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range m.out[cur] {
			if _, seen := marks[e.TargetID]; seen {
				continue
			}
			if _, documented := m.docs[e.TargetID]; documented && !overwrite {
				marks[e.TargetID] = StatusCompleted
			} else {
				marks[e.TargetID] = StatusPending
				pending++
			}
			queue = append(queue, e.TargetID)
		}
	}
	return pending, nil
}

// PendingLeaves returns pending nodes with no outgoing edges.
func (m *MemStore) PendingLeaves(_ context.Context, runID string, limit int) ([]WorkItem, error) {
	return m.claim(runID, limit, func(_ map[string]Status, id string) bool {
		return len(m.out[id]) == 0
	})
}

// ReadyParents returns pending nodes whose children are all settled.
func (m *MemStore) ReadyParents(_ context.Context, runID string, limit int) ([]WorkItem, error) {
	return m.claim(runID, limit, func(marks map[string]Status, id string) bool {
		edges := m.out[id]
		if len(edges) == 0 {
			return false
		}
		for _, e := range edges {
			if !settled(marks, e.TargetID) {
				return false
			}
		}
		return true
	})
}

// RemainingPendingFunctions returns pending function-like nodes without
// checking their children.
func (m *MemStore) RemainingPendingFunctions(_ context.Context, runID string, limit int) ([]WorkItem, error) {
	return m.claim(runID, limit, func(_ map[string]Status, id string) bool {
		return m.nodes[id].Kind.IsFunctionLike()
	})
}

// RootItem returns the root with its available child descriptions.
func (m *MemStore) RootItem(_ context.Context, runID, rootID string) (*WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	marks, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("memstore: root item: unknown run %s", runID)
	}
	n, ok := m.nodes[rootID]
	if !ok {
		return nil, fmt.Errorf("memstore: root item: %w: %s", ErrNodeNotFound, rootID)
	}
	item := m.workItem(marks, n)
	_, item.Documented = m.docs[rootID]
	return &item, nil
}

// SaveArtifacts writes artifacts and marks their sources completed.
// An artifact whose node was already written in this run is skipped.
func (m *MemStore) SaveArtifacts(_ context.Context, runID string, artifacts []Artifact) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	marks, ok := m.runs[runID]
	if !ok {
		return 0, fmt.Errorf("memstore: save artifacts: unknown run %s", runID)
	}
	m.saves++
	written := 0
	for _, a := range artifacts {
		if _, ok := m.nodes[a.SourceID]; !ok {
			return written, fmt.Errorf("memstore: save artifacts: %w: %s", ErrNodeNotFound, a.SourceID)
		}
		if prev, ok := m.docs[a.SourceID]; ok && prev.RunID == runID {
			continue
		}
		m.docs[a.SourceID] = a
		m.saveBatch[a.SourceID] = m.saves
		m.writes++
		written++
		advance(marks, a.SourceID, StatusCompleted)
	}
	return written, nil
}

// HasPending reports whether the run has pending nodes left.
func (m *MemStore) HasPending(_ context.Context, runID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, st := range m.runs[runID] {
		if st == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

// ClearRun drops all bookkeeping for the run.
func (m *MemStore) ClearRun(_ context.Context, runID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.runs[runID])
	delete(m.runs, runID)
	return n, nil
}

// ---------- Test inspection ----------

// Status returns the status of a node within a run.
func (m *MemStore) Status(runID, nodeID string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[runID][nodeID]
}

// ActiveRuns returns the ids of runs that still hold bookkeeping.
func (m *MemStore) ActiveRuns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.runs))
	for id := range m.runs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SaveBatch returns the sequence number of the SaveArtifacts call that
// last wrote the node's artifact, or 0 if it was never written.
func (m *MemStore) SaveBatch(nodeID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveBatch[nodeID]
}

// Writes returns the total number of artifacts written since creation.
func (m *MemStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// ---------- Internal helpers ----------

// claim moves up to limit pending nodes that satisfy pred to in_progress
// and returns them as work items.
func (m *MemStore) claim(runID string, limit int, pred func(map[string]Status, string) bool) ([]WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	marks, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("memstore: unknown run %s", runID)
	}
	if limit <= 0 {
		return nil, nil
	}
	var items []WorkItem
	for _, id := range m.order {
		if len(items) >= limit {
			break
		}
		if marks[id] != StatusPending || !pred(marks, id) {
			continue
		}
		advance(marks, id, StatusInProgress)
		items = append(items, m.workItem(marks, m.nodes[id]))
	}
	return items, nil
}

// workItem builds a WorkItem with descriptions of completed children.
func (m *MemStore) workItem(marks map[string]Status, n Node) WorkItem {
	item := WorkItem{Node: n}
	seen := make(map[string]bool, len(m.out[n.ID]))
	for _, e := range m.out[n.ID] {
		// A child reached by several edges is one child.
		if seen[e.TargetID] {
			continue
		}
		seen[e.TargetID] = true
		item.TotalChildren++
		if !settled(marks, e.TargetID) {
			continue
		}
		doc, ok := m.docs[e.TargetID]
		if !ok {
			continue
		}
		child := m.nodes[e.TargetID]
		item.Children = append(item.Children, ChildDescription{
			ID:          child.ID,
			Name:        child.Name,
			Path:        child.Path,
			Kind:        child.Kind,
			Relation:    e.Kind,
			Description: doc.Content,
		})
	}
	return item
}

// settled reports whether a child no longer blocks its parent: it is
// completed in this run or lies outside the run entirely.
func settled(marks map[string]Status, id string) bool {
	st, inRun := marks[id]
	return !inRun || st == StatusCompleted
}

// advance moves a node's status forward; backward moves are ignored.
func advance(marks map[string]Status, id string, to Status) {
	if to.rank() > marks[id].rank() {
		marks[id] = to
	}
}

// sortArtifacts orders artifacts by source path, then source id.
func sortArtifacts(as []Artifact) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].SourcePath != as[j].SourcePath {
			return as[i].SourcePath < as[j].SourcePath
		}
		return as[i].SourceID < as[j].SourceID
	})
}
