package graph

import (
	"context"
	"errors"
	"io"
)

// ErrNodeNotFound is returned when a run is started for an unknown root.
var ErrNodeNotFound = errors.New("graph: node not found")

// Gateway is the narrow set of batched operations the documentation
// scheduler performs against the graph store. Every mutable field it
// touches is scoped by a run identifier, so concurrent runs never observe
// each other's partial state.
type Gateway interface {
	// InitRun marks the root and every node reachable from it over CONTAINS
	// or CALLS edges for the run. Descendants become pending, except nodes
	// that are already documented when overwrite is false; those are marked
	// completed. The root itself is reserved (in_progress) until RootItem's
	// artifact is saved. It returns the number of pending nodes.
	InitRun(ctx context.Context, rootID, runID string, overwrite bool) (int, error)

	// PendingLeaves returns up to limit pending nodes without outgoing
	// CONTAINS or CALLS edges and marks them in_progress.
	PendingLeaves(ctx context.Context, runID string, limit int) ([]WorkItem, error)

	// ReadyParents returns up to limit pending nodes whose children are all
	// settled, with the children's descriptions inlined, and marks them
	// in_progress.
	ReadyParents(ctx context.Context, runID string, limit int) ([]WorkItem, error)

	// RemainingPendingFunctions returns up to limit pending function-like
	// nodes regardless of child state, with whatever child descriptions are
	// available, and marks them in_progress.
	RemainingPendingFunctions(ctx context.Context, runID string, limit int) ([]WorkItem, error)

	// RootItem returns the root with its available child descriptions.
	RootItem(ctx context.Context, runID, rootID string) (*WorkItem, error)

	// SaveArtifacts writes the artifacts and marks their source nodes
	// completed in one batched operation. It returns the number written.
	SaveArtifacts(ctx context.Context, runID string, artifacts []Artifact) (int, error)

	// HasPending reports whether any node of the run is still pending.
	HasPending(ctx context.Context, runID string) (bool, error)

	// ClearRun removes all status bookkeeping for the run and returns how
	// many entries were removed.
	ClearRun(ctx context.Context, runID string) (int, error)
}

// Store is the full graph backend: the scheduler gateway plus the load and
// read operations used by the CLI, exporters, and MCP tools.
// Implementations: KuzuStore (production), MemStore (testing).
type Store interface {
	io.Closer
	Gateway

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddNode(ctx context.Context, node Node) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetNode(ctx context.Context, id string) (*Node, error)
	GetArtifact(ctx context.Context, nodeID string) (*Artifact, error)
	Nodes(ctx context.Context) ([]Node, error)
	Edges(ctx context.Context) ([]Edge, error)
	Artifacts(ctx context.Context) ([]Artifact, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}
