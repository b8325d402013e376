// Package tracker records which worker is producing which node and which
// workers are waiting on which nodes, so that a blocking wait can be
// refused when it would close a cycle.
package tracker

import (
	"sort"
	"strings"
	"sync"
)

// Tracker is safe for concurrent use. All operations take a single mutex;
// RegisterWaiter walks at most one chain per active worker.
type Tracker struct {
	mu         sync.Mutex
	processors map[string]string              // nodeID -> workerID producing it
	waiting    map[string]map[string]struct{} // workerID -> nodeIDs it waits on
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		processors: make(map[string]string),
		waiting:    make(map[string]map[string]struct{}),
	}
}

// RegisterProcessor records workerID as the producer of nodeID.
func (t *Tracker) RegisterProcessor(nodeID, workerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processors[nodeID] = workerID
}

// UnregisterProcessor releases nodeID once its producer is finished.
func (t *Tracker) UnregisterProcessor(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.processors, nodeID)
}

// RegisterWaiter records that workerID wants to block until nodeID is
// produced. It returns false, and records nothing, when the wait would
// deadlock: the node's producer is workerID itself, or the producer is
// (transitively) waiting on a node that workerID produces.
func (t *Tracker) RegisterWaiter(nodeID, workerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if proc, ok := t.processors[nodeID]; ok && t.reaches(proc, workerID) {
		return false
	}
	set, ok := t.waiting[workerID]
	if !ok {
		set = make(map[string]struct{})
		t.waiting[workerID] = set
	}
	set[nodeID] = struct{}{}
	return true
}

// UnregisterWaiter removes a wait once it has ended.
func (t *Tracker) UnregisterWaiter(nodeID, workerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.waiting[workerID]
	if !ok {
		return
	}
	delete(set, nodeID)
	if len(set) == 0 {
		delete(t.waiting, workerID)
	}
}

// reaches follows is-waiting-for -> is-processed-by edges from worker
// from and reports whether target is reached. from == target counts.
// Caller holds t.mu.
func (t *Tracker) reaches(from, target string) bool {
	visited := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if w == target {
			return true
		}
		if visited[w] {
			continue
		}
		visited[w] = true
		for node := range t.waiting[w] {
			if next, ok := t.processors[node]; ok && !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Processor returns the worker producing nodeID, if any.
func (t *Tracker) Processor(nodeID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.processors[nodeID]
	return w, ok
}

// WaitingOn returns the sorted node ids workerID is waiting on.
func (t *Tracker) WaitingOn(workerID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.waiting[workerID]))
	for n := range t.waiting[workerID] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// InFlight returns a snapshot of nodeID -> workerID for nodes currently
// being produced.
func (t *Tracker) InFlight() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.processors))
	for n, w := range t.processors {
		out[n] = w
	}
	return out
}

// Release drops every registration whose node id starts with prefix,
// both as a produced node and as a node being waited on, and returns how
// many producers were dropped. The scheduler calls it with a run's key
// prefix when the run ends.
func (t *Tracker) Release(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for node := range t.processors {
		if strings.HasPrefix(node, prefix) {
			delete(t.processors, node)
			n++
		}
	}
	for worker, set := range t.waiting {
		for node := range set {
			if strings.HasPrefix(node, prefix) {
				delete(set, node)
			}
		}
		if len(set) == 0 {
			delete(t.waiting, worker)
		}
	}
	return n
}
