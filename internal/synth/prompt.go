package synth

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/docweave/internal/graph"
)

// maxSourceChars caps how much source text goes into one prompt.
const maxSourceChars = 12000

const (
	leafPrompt = `You are a senior engineer writing reference documentation.
Describe what the given code element does, its inputs and outputs, and any
side effects. Be factual and concise: two to five sentences. Do not restate
the code line by line.`

	functionPrompt = `You are a senior engineer writing reference documentation.
Describe what the given function does. You are also given descriptions of
the functions it calls; use them to explain the overall behavior without
repeating them. Be factual and concise: three to six sentences.`

	structuralPrompt = `You are a senior engineer writing reference documentation.
Summarize the responsibility of the given %s from the descriptions of the
elements it contains. Name the main components and how they fit together.
Be factual and concise: one short paragraph.`

	partialNote = `Some related elements are not described yet, possibly
because they call back into this one. Describe only what the available
context supports.`
)

// SystemPrompt selects the system prompt for a node.
func SystemPrompt(n graph.Node, hasChildren bool) string {
	switch {
	case n.Kind.IsFunctionLike() && hasChildren:
		return functionPrompt
	case n.Kind.IsFunctionLike(), !hasChildren:
		return leafPrompt
	default:
		return fmt.Sprintf(structuralPrompt, n.Kind)
	}
}

// UserPrompt renders the node descriptor and its child context.
func UserPrompt(req Request) string {
	n := req.Node
	var sb strings.Builder
	fmt.Fprintf(&sb, "Element: %s\nKind: %s\nPath: %s\n", displayName(n), n.Kind, n.Path)
	if len(n.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(n.Labels, ", "))
	}
	if n.StartLine > 0 {
		fmt.Fprintf(&sb, "Lines: %d-%d\n", n.StartLine, n.EndLine)
	}

	if src := strings.TrimSpace(n.Source); src != "" {
		if len(src) > maxSourceChars {
			src = src[:maxSourceChars] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, "\nSource:\n```\n%s\n```\n", src)
	}

	if len(req.Children) > 0 {
		heading := "Contained elements"
		if n.Kind.IsFunctionLike() {
			heading = "Called functions"
		}
		fmt.Fprintf(&sb, "\n%s:\n", heading)
		for _, c := range req.Children {
			fmt.Fprintf(&sb, "- %s (%s, %s): %s\n", c.Name, c.Kind, c.Path, strings.TrimSpace(c.Description))
		}
	}
	if req.Partial {
		sb.WriteString("\n")
		sb.WriteString(partialNote)
		sb.WriteString("\n")
	}
	return sb.String()
}
