package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewDocsMCPServer creates an MCP server with the documentation tools
// registered.
func NewDocsMCPServer(svc *DocsService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docweave",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_graph",
		Description: "Import a code graph (JSON with nodes and CONTAINS/CALLS edges) into the store.",
	}, svc.LoadGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_docs",
		Description: "Document every node reachable from rootId, leaves first, with each parent described from its children's documentation. Call cycles are broken automatically.",
	}, svc.GenerateDocs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_documentation",
		Description: "Return the current documentation of one code element, optionally with one-line summaries of its children.",
	}, svc.GetDocumentation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "docs_status",
		Description: "Report documentation coverage per node kind, with counts of partial, fallback and failed artifacts.",
	}, svc.DocsStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_docs",
		Description: "Render the documentation as json, markdown or a mermaid diagram.",
	}, svc.ExportDocs)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
