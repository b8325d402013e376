package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/docweave/internal/graph"
)

// Mermaid node classes.
const (
	classDocumented = "documented"
	classPartial    = "partial"
	classError      = "failed"
	classMissing    = "missing"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// CONTAINS edges are solid arrows, CALLS edges dotted. Each node is styled
// by the state of its documentation.
func GenerateMermaid(ctx context.Context, store graph.Store, opts Options) (string, error) {
	s, err := load(ctx, store, opts)
	if err != nil {
		return "", err
	}

	// Mermaid ids must be alphanumeric.
	ids := make(map[string]string, len(s.nodes))
	for i, n := range s.nodes {
		ids[n.ID] = fmt.Sprintf("N%d", i)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, n := range s.nodes {
		fmt.Fprintf(&sb, "  %s[\"%s\"]:::%s\n", ids[n.ID], label(n), nodeClass(s.docs, n.ID))
	}
	for _, n := range s.nodes {
		for _, e := range s.out[n.ID] {
			tgt, ok := ids[e.TargetID]
			if !ok {
				continue
			}
			arrow := "-->"
			if e.Kind == graph.EdgeKindCalls {
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "  %s %s %s\n", ids[n.ID], arrow, tgt)
		}
	}
	sb.WriteString("  classDef " + classDocumented + " fill:#d4edda,stroke:#28a745\n")
	sb.WriteString("  classDef " + classPartial + " fill:#fff3cd,stroke:#ffc107\n")
	sb.WriteString("  classDef " + classError + " fill:#f8d7da,stroke:#dc3545\n")
	sb.WriteString("  classDef " + classMissing + " fill:#eeeeee,stroke:#999999\n")
	return sb.String(), nil
}

func nodeClass(docs map[string]graph.Artifact, id string) string {
	a, ok := docs[id]
	switch {
	case !ok:
		return classMissing
	case a.InfoType == graph.InfoError:
		return classError
	case a.Metadata.PartialContext:
		return classPartial
	default:
		return classDocumented
	}
}

// label is the node name with its kind, truncated and quote-safe.
func label(n graph.Node) string {
	name := displayName(n)
	if len(name) > 40 {
		name = name[:37] + "..."
	}
	name = strings.ReplaceAll(name, `"`, "#quot;")
	return fmt.Sprintf("%s: %s", n.Kind, name)
}
