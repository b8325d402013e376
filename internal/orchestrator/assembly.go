package orchestrator

import (
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/synth"
)

// buildRequest turns a work item into a synthesis request. Leaves carry
// only the node; parents carry the child descriptions the gateway could
// inline. Function-like nodes get their callees, structural nodes their
// contained members, since those are the only edges they have.
func buildRequest(item graph.WorkItem, phase Phase) synth.Request {
	missing := item.MissingChildren()
	return synth.Request{
		SystemPrompt:    synth.SystemPrompt(item.Node, len(item.Children) > 0),
		Node:            item.Node,
		Children:        item.Children,
		Partial:         phase == PhaseStallBreaker || missing > 0,
		MissingChildren: missing,
	}
}

// assemble builds the artifact for one harvested outcome.
func assemble(runID string, phase Phase, o outcome, now time.Time) graph.Artifact {
	switch {
	case o.timedOut:
		return timeoutArtifact(runID, phase, o, now)
	case o.err != nil:
		return errorArtifact(runID, phase, o, now)
	}

	a := baseArtifact(runID, phase, o.item, now)
	a.Content = o.content
	a.InfoType = infoType(phase, o.item, o.req.Partial)
	a.Metadata.Path = graph.PathNormal
	a.Metadata.PartialContext = o.req.Partial
	a.Metadata.Reason = partialReason(phase, o.item)
	return a
}

// baseArtifact fills the fields shared by every production path.
func baseArtifact(runID string, phase Phase, item graph.WorkItem, now time.Time) graph.Artifact {
	n := item.Node
	a := graph.Artifact{
		ID:           graph.ArtifactID(runID, n.ID),
		RunID:        runID,
		SourceID:     n.ID,
		SourcePath:   n.Path,
		SourceName:   n.Name,
		SourceLabels: n.Labels,
		ChildCount:   len(item.Children),
		CreatedAt:    now.UTC(),
	}
	a.Metadata.Phase = phase.String()
	for _, c := range item.Children {
		a.Metadata.ChildIDs = append(a.Metadata.ChildIDs, c.ID)
	}
	return a
}

func infoType(phase Phase, item graph.WorkItem, partial bool) graph.InfoType {
	switch {
	case phase == PhaseRoot:
		return graph.InfoRoot
	case item.TotalChildren == 0:
		return graph.InfoLeaf
	case partial:
		return graph.InfoParentPartial
	default:
		return graph.InfoParent
	}
}

// partialReason names why a node was described from a subset of its
// children, or returns "" when the context was complete.
func partialReason(phase Phase, item graph.WorkItem) string {
	switch {
	case phase == PhaseStallBreaker:
		return graph.ReasonCallCycle
	case item.MissingChildren() > 0:
		return graph.ReasonMissingChildDocs
	default:
		return ""
	}
}
