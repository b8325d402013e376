// Package export renders a documented graph for consumption outside the
// store: a JSON dump, a Markdown reference, and a Mermaid diagram.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/docweave/internal/graph"
)

// DocsExport is the top-level JSON export structure.
type DocsExport struct {
	ExportedAt string           `json:"exportedAt"`
	Stats      graph.GraphStats `json:"stats"`
	Nodes      []NodeExport     `json:"nodes"`
}

// NodeExport is one node and, when present, its documentation.
type NodeExport struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Kind          graph.NodeKind  `json:"kind"`
	Path          string          `json:"path"`
	Labels        []string        `json:"labels,omitempty"`
	StartLine     int             `json:"startLine,omitempty"`
	EndLine       int             `json:"endLine,omitempty"`
	Children      []string        `json:"children,omitempty"`
	Documentation *ArtifactExport `json:"documentation,omitempty"`
}

// ArtifactExport is the exported view of a graph.Artifact.
type ArtifactExport struct {
	Content        string         `json:"content"`
	InfoType       graph.InfoType `json:"infoType"`
	RunID          string         `json:"runId"`
	PartialContext bool           `json:"partialContext"`
	Reason         string         `json:"reason,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      string         `json:"createdAt"`
}

// Options narrows an export.
type Options struct {
	// RootID limits the export to nodes reachable from this node. Empty
	// exports the whole store.
	RootID string

	// DocumentedOnly drops nodes without an artifact.
	DocumentedOnly bool
}

// snapshot is the store content an export works from.
type snapshot struct {
	nodes []graph.Node
	out   map[string][]graph.Edge
	docs  map[string]graph.Artifact
}

func load(ctx context.Context, store graph.Store, opts Options) (*snapshot, error) {
	nodes, err := store.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list nodes: %w", err)
	}
	edges, err := store.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list edges: %w", err)
	}
	artifacts, err := store.Artifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list artifacts: %w", err)
	}

	s := &snapshot{
		out:  make(map[string][]graph.Edge),
		docs: make(map[string]graph.Artifact, len(artifacts)),
	}
	for _, e := range edges {
		s.out[e.SourceID] = append(s.out[e.SourceID], e)
	}
	for _, a := range artifacts {
		s.docs[a.SourceID] = a
	}

	keep := func(graph.Node) bool { return true }
	if opts.RootID != "" {
		reach, err := s.reachable(nodes, opts.RootID)
		if err != nil {
			return nil, err
		}
		keep = func(n graph.Node) bool { return reach[n.ID] }
	}
	for _, n := range nodes {
		if !keep(n) {
			continue
		}
		if _, ok := s.docs[n.ID]; opts.DocumentedOnly && !ok {
			continue
		}
		s.nodes = append(s.nodes, n)
	}
	return s, nil
}

// reachable returns the ids reachable from root, root included.
func (s *snapshot) reachable(nodes []graph.Node, root string) (map[string]bool, error) {
	found := false
	for _, n := range nodes {
		if n.ID == root {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("export: %w: %s", graph.ErrNodeNotFound, root)
	}
	seen := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.out[cur] {
			if !seen[e.TargetID] {
				seen[e.TargetID] = true
				queue = append(queue, e.TargetID)
			}
		}
	}
	return seen, nil
}

// BuildJSON assembles a DocsExport from store.
func BuildJSON(ctx context.Context, store graph.Store, opts Options) (*DocsExport, error) {
	s, err := load(ctx, store, opts)
	if err != nil {
		return nil, err
	}
	out := &DocsExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Nodes:      make([]NodeExport, 0, len(s.nodes)),
	}
	for _, n := range s.nodes {
		ne := NodeExport{
			ID:        n.ID,
			Name:      n.Name,
			Kind:      n.Kind,
			Path:      n.Path,
			Labels:    n.Labels,
			StartLine: n.StartLine,
			EndLine:   n.EndLine,
		}
		for _, e := range s.out[n.ID] {
			ne.Children = append(ne.Children, e.TargetID)
		}
		out.Stats.NodeCount++
		out.Stats.EdgeCount += len(ne.Children)
		if a, ok := s.docs[n.ID]; ok {
			out.Stats.ArtifactCount++
			ne.Documentation = &ArtifactExport{
				Content:        a.Content,
				InfoType:       a.InfoType,
				RunID:          a.RunID,
				PartialContext: a.Metadata.PartialContext,
				Reason:         a.Metadata.Reason,
				Error:          a.Metadata.Error,
				CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
			}
		}
		out.Nodes = append(out.Nodes, ne)
	}
	return out, nil
}

// WriteJSON writes an indented export to w.
func WriteJSON(ctx context.Context, w io.Writer, store graph.Store, opts Options) error {
	doc, err := BuildJSON(ctx, store, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}
