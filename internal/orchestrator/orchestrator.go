package orchestrator

import "context"

// Phase identifies a stage of a processing run.
type Phase int

const (
	PhaseLeaves       Phase = iota // A: nodes without children
	PhaseReadyParents              // B: nodes whose children are all done
	PhaseStallBreaker              // C: forced function nodes on a call cycle
	PhaseRoot                      // D: the run's root
)

func (p Phase) String() string {
	names := [...]string{
		"leaves",
		"ready-parents",
		"stall-breaker",
		"root",
	}
	if int(p) >= 0 && int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// RunResult summarizes a processing run. It is returned even when the run
// fails, so callers always learn how much work was persisted.
type RunResult struct {
	RunID  string `json:"runId"`
	RootID string `json:"rootId"`

	// NodesProcessed counts artifacts written by this run, error artifacts
	// included.
	NodesProcessed int `json:"nodesProcessed"`

	// Initialized is the number of nodes marked pending at run start.
	Initialized int `json:"initialized"`

	Leaves      int  `json:"leaves"`
	Parents     int  `json:"parents"`
	Forced      int  `json:"forced"`
	Errors      int  `json:"errors"`
	TimedOut    int  `json:"timedOut"`
	Partial     int  `json:"partial"`
	LeafBatches int  `json:"leafBatches"`
	Rounds      int  `json:"rounds"`
	StallBreaks int  `json:"stallBreaks"`
	RootSkipped bool `json:"rootSkipped,omitempty"`

	// Warning is set when the run stopped without draining all pending
	// nodes (iteration ceiling, or a stall the breaker could not clear).
	Warning string `json:"warning,omitempty"`

	// Error carries the run-level failure message, if any.
	Error string `json:"error,omitempty"`
}

// ProgressEvent is emitted to the user during a run.
type ProgressEvent struct {
	RunID   string
	Phase   Phase
	NodeID  string // empty for phase-level events
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a node or phase within a run.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Runner is the operation exposed to front ends (CLI, MCP tools).
type Runner interface {
	// Run processes every node reachable from req.RootID.
	Run(ctx context.Context, req RunRequest) (*RunResult, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
