package mcptools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dusk-indust/docweave/internal/export"
	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/dusk-indust/docweave/internal/orchestrator"
	"github.com/dusk-indust/docweave/internal/status"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DocsService holds the graph store and runner used by MCP tool handlers.
type DocsService struct {
	store  graph.Store
	runner orchestrator.Runner
	logger *slog.Logger
}

// NewDocsService creates a DocsService. A nil logger discards output.
func NewDocsService(store graph.Store, runner orchestrator.Runner, logger *slog.Logger) *DocsService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DocsService{store: store, runner: runner, logger: logger}
}

// LoadGraph imports a graph JSON document into the store.
func (s *DocsService) LoadGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadGraphInput,
) (*mcp.CallToolResult, LoadGraphOutput, error) {
	if input.Path == "" {
		return nil, LoadGraphOutput{}, fmt.Errorf("path is required")
	}
	if err := s.store.InitSchema(ctx); err != nil {
		return nil, LoadGraphOutput{}, fmt.Errorf("init schema: %w", err)
	}
	stats, err := graph.LoadFile(ctx, s.store, input.Path)
	if err != nil {
		return nil, LoadGraphOutput{}, err
	}
	s.logger.Info("graph loaded", "path", input.Path, "nodes", stats.NodeCount, "edges", stats.EdgeCount)
	return nil, LoadGraphOutput{Stats: *stats}, nil
}

// GenerateDocs runs the scheduler on the subgraph of input.RootID. Run
// failures are reported in the output rather than as tool errors, so the
// caller still learns how much was persisted.
func (s *DocsService) GenerateDocs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateDocsInput,
) (*mcp.CallToolResult, GenerateDocsOutput, error) {
	if input.RootID == "" {
		return nil, GenerateDocsOutput{Status: "failed", Message: "rootId is required"}, fmt.Errorf("rootId is required")
	}

	res, err := s.runner.Run(ctx, orchestrator.RunRequest{
		RootID:     input.RootID,
		MaxWorkers: input.MaxWorkers,
		BatchSize:  input.BatchSize,
		Overwrite:  input.Overwrite,
	})
	out := GenerateDocsOutput{Status: "completed"}
	if res != nil {
		out.RunID = res.RunID
		out.NodesProcessed = res.NodesProcessed
		out.Errors = res.Errors
		out.TimedOut = res.TimedOut
		out.Partial = res.Partial
		out.StallBreaks = res.StallBreaks
		out.Warning = res.Warning
	}
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidConfig) {
			return nil, GenerateDocsOutput{Status: "failed", Message: err.Error()}, err
		}
		out.Status = "failed"
		out.Message = err.Error()
	}
	return nil, out, nil
}

// GetDocumentation returns the current documentation of one node.
func (s *DocsService) GetDocumentation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentationInput,
) (*mcp.CallToolResult, GetDocumentationOutput, error) {
	if input.NodeID == "" {
		return nil, GetDocumentationOutput{}, fmt.Errorf("nodeId is required")
	}
	node, err := s.store.GetNode(ctx, input.NodeID)
	if err != nil {
		return nil, GetDocumentationOutput{}, fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return nil, GetDocumentationOutput{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, input.NodeID)
	}

	out := GetDocumentationOutput{
		NodeID: node.ID,
		Name:   node.Name,
		Kind:   string(node.Kind),
		Path:   node.Path,
	}
	a, err := s.store.GetArtifact(ctx, node.ID)
	if err != nil {
		return nil, GetDocumentationOutput{}, fmt.Errorf("get artifact: %w", err)
	}
	if a != nil {
		out.Documented = true
		out.Content = a.Content
		out.InfoType = string(a.InfoType)
		out.PartialContext = a.Metadata.PartialContext
		out.Reason = a.Metadata.Reason
		out.RunID = a.RunID
		out.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}

	if input.IncludeChildren {
		edges, err := s.store.Edges(ctx)
		if err != nil {
			return nil, GetDocumentationOutput{}, fmt.Errorf("list edges: %w", err)
		}
		for _, e := range edges {
			if e.SourceID != node.ID {
				continue
			}
			child := ChildDoc{ID: e.TargetID, Relation: string(e.Kind)}
			ca, err := s.store.GetArtifact(ctx, e.TargetID)
			if err != nil {
				return nil, GetDocumentationOutput{}, fmt.Errorf("get artifact: %w", err)
			}
			if ca != nil {
				child.Documented = true
				child.Summary = firstLine(ca.Content)
			}
			out.Children = append(out.Children, child)
		}
	}
	return nil, out, nil
}

// DocsStatus reports documentation coverage of the whole store.
func (s *DocsService) DocsStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocsStatusInput,
) (*mcp.CallToolResult, DocsStatusOutput, error) {
	rep, err := status.Build(ctx, s.store, status.Options{MaxUndocumented: input.MaxUndocumented})
	if err != nil {
		return nil, DocsStatusOutput{}, err
	}
	out := DocsStatusOutput{
		Total:        rep.Total,
		Documented:   rep.Documented,
		Coverage:     rep.Coverage(),
		Partial:      rep.Partial,
		Errors:       rep.Errors,
		Fallback:     rep.Fallback,
		Kinds:        make([]KindCoverage, 0, len(rep.Kinds)),
		Undocumented: rep.Undocumented,
	}
	for _, k := range rep.Kinds {
		out.Kinds = append(out.Kinds, KindCoverage{Kind: string(k.Kind), Total: k.Total, Documented: k.Documented})
	}
	if len(rep.Runs) > 0 {
		out.LatestRun = rep.Runs[0].RunID
	}
	return nil, out, nil
}

// ExportDocs renders the documentation in the requested format.
func (s *DocsService) ExportDocs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportDocsInput,
) (*mcp.CallToolResult, ExportDocsOutput, error) {
	format := strings.ToLower(input.Format)
	if format == "" {
		format = "markdown"
	}
	opts := export.Options{RootID: input.RootID, DocumentedOnly: input.DocumentedOnly}

	var buf bytes.Buffer
	switch format {
	case "json":
		if err := export.WriteJSON(ctx, &buf, s.store, opts); err != nil {
			return nil, ExportDocsOutput{}, err
		}
	case "markdown", "md":
		format = "markdown"
		if err := export.WriteMarkdown(ctx, &buf, s.store, opts); err != nil {
			return nil, ExportDocsOutput{}, err
		}
	case "mermaid":
		diagram, err := export.GenerateMermaid(ctx, s.store, opts)
		if err != nil {
			return nil, ExportDocsOutput{}, err
		}
		buf.WriteString(diagram)
	default:
		return nil, ExportDocsOutput{}, fmt.Errorf("unsupported format %q: use json, markdown or mermaid", input.Format)
	}
	return nil, ExportDocsOutput{Format: format, Content: buf.String()}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
