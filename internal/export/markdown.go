package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/docweave/internal/graph"
)

// WriteMarkdown renders one section per documented node, grouped under
// its source path. Nodes without documentation are listed as such.
func WriteMarkdown(ctx context.Context, w io.Writer, store graph.Store, opts Options) error {
	s, err := load(ctx, store, opts)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("# Code Reference\n")
	lastPath := "\x00"
	for _, n := range s.nodes {
		if n.Path != lastPath {
			lastPath = n.Path
			path := n.Path
			if path == "" {
				path = "(no path)"
			}
			fmt.Fprintf(&sb, "\n## %s\n", path)
		}
		fmt.Fprintf(&sb, "\n### %s `%s`\n\n", n.Kind, displayName(n))
		a, ok := s.docs[n.ID]
		if !ok {
			sb.WriteString("_Not documented yet._\n")
			continue
		}
		sb.WriteString(strings.TrimSpace(a.Content))
		sb.WriteString("\n")
		switch {
		case a.InfoType == graph.InfoError:
			fmt.Fprintf(&sb, "\n> Generation failed: %s\n", a.Metadata.Error)
		case a.Metadata.PartialContext:
			fmt.Fprintf(&sb, "\n> Written from partial context (%s).\n", a.Metadata.Reason)
		}
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("export: write markdown: %w", err)
	}
	return nil
}

func displayName(n graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
