// Package status reports how much of a code graph is documented.
package status

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
)

// kindOrder fixes the row order of a report.
var kindOrder = []graph.NodeKind{
	graph.NodeKindFolder,
	graph.NodeKindFile,
	graph.NodeKindClass,
	graph.NodeKindFunction,
	graph.NodeKindMethod,
}

// KindInfo describes documentation coverage for one node kind.
type KindInfo struct {
	Kind       graph.NodeKind `json:"kind"`
	Total      int            `json:"total"`
	Documented int            `json:"documented"`
}

// Complete reports whether every node of this kind is documented.
func (k KindInfo) Complete() bool {
	return k.Documented == k.Total
}

// RunInfo summarizes the artifacts one run left behind.
type RunInfo struct {
	RunID     string    `json:"runId"`
	Artifacts int       `json:"artifacts"`
	Latest    time.Time `json:"latest"`
}

// Report is the coverage of one store.
type Report struct {
	Kinds      []KindInfo `json:"kinds"`
	Total      int        `json:"total"`
	Documented int        `json:"documented"`

	// Partial counts artifacts written from incomplete child context.
	Partial  int `json:"partial"`
	Errors   int `json:"errors"`
	Fallback int `json:"fallback"`

	// Runs lists the runs whose artifacts are current, newest first.
	Runs []RunInfo `json:"runs,omitempty"`

	// Undocumented holds up to Options.MaxUndocumented node ids without
	// an artifact, in store order.
	Undocumented []string `json:"undocumented,omitempty"`
}

// Coverage returns the documented fraction in [0, 1]. An empty graph is
// fully covered.
func (r *Report) Coverage() float64 {
	if r.Total == 0 {
		return 1
	}
	return float64(r.Documented) / float64(r.Total)
}

// Options tunes Build.
type Options struct {
	// MaxUndocumented caps Report.Undocumented. Zero lists none.
	MaxUndocumented int
}

// Build reads every node and artifact from store and tallies them.
func Build(ctx context.Context, store graph.Store, opts Options) (*Report, error) {
	nodes, err := store.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: list nodes: %w", err)
	}
	artifacts, err := store.Artifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: list artifacts: %w", err)
	}

	documented := make(map[string]bool, len(artifacts))
	runs := map[string]*RunInfo{}
	rep := &Report{}
	for _, a := range artifacts {
		documented[a.SourceID] = true
		if a.Metadata.PartialContext {
			rep.Partial++
		}
		if a.InfoType == graph.InfoError {
			rep.Errors++
		}
		if a.Metadata.Path == graph.PathFallback {
			rep.Fallback++
		}
		ri, ok := runs[a.RunID]
		if !ok {
			ri = &RunInfo{RunID: a.RunID}
			runs[a.RunID] = ri
		}
		ri.Artifacts++
		if a.CreatedAt.After(ri.Latest) {
			ri.Latest = a.CreatedAt
		}
	}

	byKind := map[graph.NodeKind]*KindInfo{}
	for _, k := range kindOrder {
		byKind[k] = &KindInfo{Kind: k}
	}
	for _, n := range nodes {
		ki, ok := byKind[n.Kind]
		if !ok {
			ki = &KindInfo{Kind: n.Kind}
			byKind[n.Kind] = ki
		}
		ki.Total++
		rep.Total++
		if documented[n.ID] {
			ki.Documented++
			rep.Documented++
		} else if len(rep.Undocumented) < opts.MaxUndocumented {
			rep.Undocumented = append(rep.Undocumented, n.ID)
		}
	}

	for _, k := range kindOrder {
		if ki := byKind[k]; ki.Total > 0 {
			rep.Kinds = append(rep.Kinds, *ki)
		}
		delete(byKind, k)
	}
	var extra []KindInfo
	for _, ki := range byKind {
		extra = append(extra, *ki)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Kind < extra[j].Kind })
	rep.Kinds = append(rep.Kinds, extra...)

	for _, ri := range runs {
		rep.Runs = append(rep.Runs, *ri)
	}
	sort.Slice(rep.Runs, func(i, j int) bool {
		if !rep.Runs[i].Latest.Equal(rep.Runs[j].Latest) {
			return rep.Runs[i].Latest.After(rep.Runs[j].Latest)
		}
		return rep.Runs[i].RunID < rep.Runs[j].RunID
	})
	return rep, nil
}

// Render writes the report as a plain-text table.
func Render(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "Documented %d of %d nodes (%.1f%%)\n\n", r.Documented, r.Total, 100*r.Coverage()); err != nil {
		return err
	}
	for _, k := range r.Kinds {
		mark := " "
		if k.Complete() {
			mark = "✓"
		}
		if _, err := fmt.Fprintf(w, "  %s %-9s %5d / %-5d\n", mark, k.Kind, k.Documented, k.Total); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\nPartial context: %d  Fallback: %d  Errors: %d\n", r.Partial, r.Fallback, r.Errors); err != nil {
		return err
	}
	if len(r.Runs) > 0 {
		latest := r.Runs[0]
		if _, err := fmt.Fprintf(w, "Latest run: %s (%d artifacts, %s)\n", latest.RunID, latest.Artifacts, latest.Latest.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if len(r.Undocumented) > 0 {
		if _, err := fmt.Fprintln(w, "\nUndocumented:"); err != nil {
			return err
		}
		for _, id := range r.Undocumented {
			if _, err := fmt.Fprintf(w, "  - %s\n", id); err != nil {
				return err
			}
		}
	}
	return nil
}
