package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Document is the interchange format produced by the upstream graph
// builder: a flat list of nodes followed by the edges between them.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// LoadJSON decodes a Document from r and inserts it into store. Nodes are
// inserted before edges so that every edge endpoint exists.
func LoadJSON(ctx context.Context, store Store, r io.Reader) (*GraphStats, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("graph: decode document: %w", err)
	}
	if err := Load(ctx, store, doc); err != nil {
		return nil, err
	}
	return &GraphStats{NodeCount: len(doc.Nodes), EdgeCount: len(doc.Edges)}, nil
}

// LoadFile opens path and loads it with LoadJSON.
func LoadFile(ctx context.Context, store Store, path string) (*GraphStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadJSON(ctx, store, f)
}

// Load inserts the nodes and edges of doc into store.
func Load(ctx context.Context, store Store, doc Document) error {
	for _, n := range doc.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.AddNode(ctx, n); err != nil {
			return fmt.Errorf("graph: load node %s: %w", n.ID, err)
		}
	}
	for _, e := range doc.Edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("graph: load edge %s -%s-> %s: %w", e.SourceID, e.Kind, e.TargetID, err)
		}
	}
	return nil
}
