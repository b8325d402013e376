package orchestrator

import "fmt"

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffer of size
// events. Zero selects 256.
func NewProgressReporter(size int) *ProgressReporter {
	if size <= 0 {
		size = 256
	}
	return &ProgressReporter{
		ch: make(chan ProgressEvent, size),
	}
}

// Emit sends a progress event without blocking. If the buffer is full,
// the event is dropped; a slow consumer never stalls a run.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	if event.NodeID == "" {
		return FormatPhaseHeader(event)
	}
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.NodeID)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.NodeID)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", event.NodeID)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.NodeID, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.NodeID)
	}
}

// FormatPhaseHeader formats a phase-level event.
// Returns: "[{runID}] {phase}: {message}"
func FormatPhaseHeader(event ProgressEvent) string {
	if event.Message == "" {
		return fmt.Sprintf("[%s] %s", event.RunID, event.Phase)
	}
	return fmt.Sprintf("[%s] %s: %s", event.RunID, event.Phase, event.Message)
}
