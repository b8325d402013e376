package mcptools

import "github.com/dusk-indust/docweave/internal/graph"

// --- MCP Tool Types ---
// The MCP Go SDK derives each tool's JSON schema from these structs.

// LoadGraphInput is the input for the load_graph MCP tool.
type LoadGraphInput struct {
	Path string `json:"path" jsonschema:"path to a graph JSON document with nodes and edges"`
}

// LoadGraphOutput is the result of the load_graph MCP tool.
type LoadGraphOutput struct {
	Stats graph.GraphStats `json:"stats"`
}

// GenerateDocsInput is the input for the generate_docs MCP tool.
type GenerateDocsInput struct {
	RootID     string `json:"rootId" jsonschema:"id of the node whose subgraph should be documented"`
	MaxWorkers int    `json:"maxWorkers,omitempty" jsonschema:"concurrent synthesis calls (default: server config)"`
	BatchSize  int    `json:"batchSize,omitempty" jsonschema:"nodes fetched per round (default: server config)"`
	Overwrite  *bool  `json:"overwrite,omitempty" jsonschema:"regenerate documentation that already exists (default: server config)"`
}

// GenerateDocsOutput is the result of the generate_docs MCP tool.
type GenerateDocsOutput struct {
	RunID          string `json:"runId,omitempty"`
	Status         string `json:"status"` // "completed" or "failed"
	NodesProcessed int    `json:"nodesProcessed"`
	Errors         int    `json:"errors"`
	TimedOut       int    `json:"timedOut"`
	Partial        int    `json:"partial"`
	StallBreaks    int    `json:"stallBreaks"`
	Warning        string `json:"warning,omitempty"`
	Message        string `json:"message,omitempty"`
}

// GetDocumentationInput is the input for the get_documentation MCP tool.
type GetDocumentationInput struct {
	NodeID          string `json:"nodeId" jsonschema:"id of the code element"`
	IncludeChildren bool   `json:"includeChildren,omitempty" jsonschema:"also return the first line of each child's documentation"`
}

// GetDocumentationOutput is the result of the get_documentation MCP tool.
type GetDocumentationOutput struct {
	NodeID         string     `json:"nodeId"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Path           string     `json:"path"`
	Documented     bool       `json:"documented"`
	Content        string     `json:"content,omitempty"`
	InfoType       string     `json:"infoType,omitempty"`
	PartialContext bool       `json:"partialContext,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	RunID          string     `json:"runId,omitempty"`
	CreatedAt      string     `json:"createdAt,omitempty"`
	Children       []ChildDoc `json:"children,omitempty"`
}

// ChildDoc is a one-line view of a child's documentation.
type ChildDoc struct {
	ID         string `json:"id"`
	Relation   string `json:"relation"`
	Documented bool   `json:"documented"`
	Summary    string `json:"summary,omitempty"`
}

// DocsStatusInput is the input for the docs_status MCP tool.
type DocsStatusInput struct {
	MaxUndocumented int `json:"maxUndocumented,omitempty" jsonschema:"list up to this many undocumented node ids (default: 0)"`
}

// DocsStatusOutput is the result of the docs_status MCP tool.
type DocsStatusOutput struct {
	Total        int            `json:"total"`
	Documented   int            `json:"documented"`
	Coverage     float64        `json:"coverage"`
	Partial      int            `json:"partial"`
	Errors       int            `json:"errors"`
	Fallback     int            `json:"fallback"`
	Kinds        []KindCoverage `json:"kinds"`
	LatestRun    string         `json:"latestRun,omitempty"`
	Undocumented []string       `json:"undocumented,omitempty"`
}

// KindCoverage is the coverage of one node kind.
type KindCoverage struct {
	Kind       string `json:"kind"`
	Total      int    `json:"total"`
	Documented int    `json:"documented"`
}

// ExportDocsInput is the input for the export_docs MCP tool.
type ExportDocsInput struct {
	Format         string `json:"format,omitempty" jsonschema:"json, markdown or mermaid (default: markdown)"`
	RootID         string `json:"rootId,omitempty" jsonschema:"limit the export to this node's subgraph"`
	DocumentedOnly bool   `json:"documentedOnly,omitempty" jsonschema:"skip nodes without documentation"`
}

// ExportDocsOutput is the result of the export_docs MCP tool.
type ExportDocsOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}
