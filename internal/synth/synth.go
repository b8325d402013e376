// Package synth turns a code node and the descriptions of its children into
// a natural-language description by calling a language model.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/docweave/internal/graph"
)

// Request is one synthesis call. The deadline travels in the context.
type Request struct {
	// SystemPrompt sets the model's role for this kind of node.
	SystemPrompt string

	// Node is the element being described.
	Node graph.Node

	// Children are the descriptions available as context. Empty for leaves.
	Children []graph.ChildDescription

	// Partial is set when Children is a subset of the node's children.
	Partial bool

	// MissingChildren counts children whose descriptions were unavailable.
	MissingChildren int
}

// Synthesizer produces a description for a Request.
// Implementations: OpenAIClient (production), Static (dry runs).
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

// Func adapts an ordinary function to the Synthesizer interface.
type Func func(ctx context.Context, req Request) (string, error)

// Synthesize calls f.
func (f Func) Synthesize(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Static returns a structural summary without calling a model. It backs
// the CLI's --dry-run mode and is the fallback text for timed-out nodes.
type Static struct{}

// Synthesize implements Synthesizer.
func (Static) Synthesize(_ context.Context, req Request) (string, error) {
	return Describe(req), nil
}

// Describe renders a deterministic summary of the node and the child
// descriptions at hand.
func Describe(req Request) string {
	n := req.Node
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", n.Kind, displayName(n))
	if n.Path != "" {
		fmt.Fprintf(&sb, " in %s", n.Path)
	}
	if n.StartLine > 0 && n.EndLine >= n.StartLine {
		fmt.Fprintf(&sb, " (lines %d-%d)", n.StartLine, n.EndLine)
	}
	sb.WriteString(".")

	if len(req.Children) > 0 {
		verb := "Contains"
		if n.Kind.IsFunctionLike() {
			verb = "Calls"
		}
		fmt.Fprintf(&sb, " %s %d documented element(s):", verb, len(req.Children))
		for _, c := range req.Children {
			fmt.Fprintf(&sb, "\n- %s: %s", c.Name, firstLine(c.Description))
		}
	}
	if req.MissingChildren > 0 {
		fmt.Fprintf(&sb, "\n%d related element(s) were not yet documented.", req.MissingChildren)
	}
	return sb.String()
}

func displayName(n graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
