package graph

import "time"

// --- Enums ---

// NodeKind classifies nodes in the code graph.
type NodeKind string

const (
	NodeKindFolder   NodeKind = "folder"
	NodeKindFile     NodeKind = "file"
	NodeKindClass    NodeKind = "class"
	NodeKindFunction NodeKind = "function"
	NodeKindMethod   NodeKind = "method"
)

// IsFunctionLike reports whether nodes of this kind carry CALLS edges and
// are eligible for stall-breaker processing.
func (k NodeKind) IsFunctionLike() bool {
	return k == NodeKindFunction || k == NodeKindMethod
}

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	// EdgeKindContains is the hierarchy edge: folder→file→class→function.
	EdgeKindContains EdgeKind = "CONTAINS"
	// EdgeKindCalls is a function→function invocation. Call edges are the
	// only source of cycles.
	EdgeKindCalls EdgeKind = "CALLS"
)

// Status is the per-run processing state of a node. A node with no status
// for a run is unset.
type Status string

const (
	StatusUnset      Status = ""
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// rank orders statuses so that transitions can only move forward.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// InfoType classifies how an artifact was produced.
type InfoType string

const (
	InfoLeaf          InfoType = "leaf"
	InfoParent        InfoType = "parent"
	InfoParentPartial InfoType = "parent_partial"
	InfoRoot          InfoType = "root"
	InfoError         InfoType = "error"
)

// ProductionPath records whether an artifact came from the normal
// bottom-up path or a fallback.
type ProductionPath string

const (
	PathNormal   ProductionPath = "normal"
	PathFallback ProductionPath = "fallback"
)

// Reasons recorded in ArtifactMetadata.Reason.
const (
	ReasonCallCycle        = "call_cycle_stall"
	ReasonTimeout          = "timeout"
	ReasonMissingChildDocs = "missing_child_docs"
	ReasonSynthesisFailed  = "synthesis_failed"
)

// --- Models ---

// Node is a code element produced by the upstream graph builder. Nodes and
// their edges are read-only to the documentation processor.
type Node struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      NodeKind `json:"kind"`
	Labels    []string `json:"labels,omitempty"`
	Path      string   `json:"path"`
	Source    string   `json:"source,omitempty"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
}

// Edge represents a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// ChildDescription is an already-persisted description of one child,
// inlined into a parent's work item.
type ChildDescription struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Kind        NodeKind `json:"kind"`
	Relation    EdgeKind `json:"relation"`
	Description string   `json:"description"`
}

// WorkItem is a node handed out by the gateway for processing, together
// with whatever child descriptions were available at query time.
type WorkItem struct {
	Node Node `json:"node"`

	// Children holds descriptions of children that are completed.
	Children []ChildDescription `json:"children,omitempty"`

	// TotalChildren counts every outgoing CONTAINS and CALLS edge, whether
	// or not a description was available.
	TotalChildren int `json:"totalChildren"`

	// Documented is true when the node already has an artifact from an
	// earlier run. Only populated by RootItem.
	Documented bool `json:"documented,omitempty"`
}

// MissingChildren returns how many children had no description available.
func (w WorkItem) MissingChildren() int {
	if n := w.TotalChildren - len(w.Children); n > 0 {
		return n
	}
	return 0
}

// ArtifactMetadata records how an artifact was produced.
type ArtifactMetadata struct {
	Path           ProductionPath `json:"path"`
	PartialContext bool           `json:"partialContext"`
	Reason         string         `json:"reason,omitempty"`
	Error          string         `json:"error,omitempty"`
	Phase          string         `json:"phase,omitempty"`
	ChildIDs       []string       `json:"childIds,omitempty"`
}

// Artifact is the documentation persisted for one node. It is created once
// per node per run and never mutated afterwards.
type Artifact struct {
	ID           string           `json:"id"`
	RunID        string           `json:"runId"`
	Content      string           `json:"content"`
	SourceID     string           `json:"sourceId"`
	SourcePath   string           `json:"sourcePath"`
	SourceName   string           `json:"sourceName"`
	SourceLabels []string         `json:"sourceLabels,omitempty"`
	InfoType     InfoType         `json:"infoType"`
	ChildCount   int              `json:"childCount"`
	Metadata     ArtifactMetadata `json:"metadata"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ArtifactID is the deterministic artifact identifier for a node within a
// run. It makes a second write for the same node in the same run collide.
func ArtifactID(runID, nodeID string) string {
	return runID + ":" + nodeID
}

// GraphStats summarizes a code graph and its documentation.
type GraphStats struct {
	NodeCount     int `json:"nodeCount"`
	EdgeCount     int `json:"edgeCount"`
	ArtifactCount int `json:"artifactCount"`
}
