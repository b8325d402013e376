package orchestrator

import (
	"fmt"
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/synth"
)

// timeoutArtifact gives a timed-out node a deterministic description built
// from the context that was available, so the node still completes and
// its parents are unblocked.
func timeoutArtifact(runID string, phase Phase, o outcome, now time.Time) graph.Artifact {
	req := o.req
	req.Partial = true
	a := baseArtifact(runID, phase, o.item, now)
	a.Content = synth.Describe(req)
	a.InfoType = infoType(phase, o.item, true)
	a.Metadata.Path = graph.PathFallback
	a.Metadata.PartialContext = true
	a.Metadata.Reason = graph.ReasonTimeout
	return a
}

// errorArtifact records a failed synthesis. The node is still marked
// completed so that the run keeps moving.
func errorArtifact(runID string, phase Phase, o outcome, now time.Time) graph.Artifact {
	a := baseArtifact(runID, phase, o.item, now)
	a.Content = fmt.Sprintf("Documentation could not be generated for %s: %v", o.item.Node.ID, o.err)
	a.InfoType = graph.InfoError
	a.Metadata.Path = graph.PathFallback
	a.Metadata.PartialContext = o.req.Partial
	a.Metadata.Reason = graph.ReasonSynthesisFailed
	a.Metadata.Error = o.err.Error()
	return a
}
