package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// docweaveMCPEntry is the MCP server configuration for the docweave binary.
var docweaveMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "docweave",
  "args": ["serve-mcp"]
}`)

// defaultConfig is written to docweave.yml by init.
const defaultConfig = `# docweave project settings.
store:
  path: .docweave/graph.kuzu

scheduler:
  workers: 16
  batchSize: 50
  nodeTimeout: 30s
  stallRounds: 2

llm:
  baseURL: https://api.openai.com/v1
  model: gpt-4o-mini
  apiKeyEnv: OPENAI_API_KEY
  requestsPerSecond: 5
  maxTokens: 512
`

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [project-root]",
		Short: "Write docweave.yml and register the MCP server in .mcp.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runInit(cmd.OutOrStdout(), root, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files and entries")
	return cmd
}

// runInit installs the default configuration and MCP server entry into the
// target project directory.
func runInit(w io.Writer, projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	cfgPath := filepath.Join(abs, "docweave.yml")
	if _, err := os.Stat(cfgPath); err == nil && !force {
		fmt.Fprintf(w, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(abs, cfgPath))
	} else {
		if err := os.WriteFile(cfgPath, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		fmt.Fprintf(w, "  created %s\n", dotRelative(abs, cfgPath))
	}

	if err := mergeMCPConfig(w, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSetup complete. Load a graph with 'docweave load <graph.json>'.")
	return nil
}

// mergeMCPConfig creates or merges the docweave entry into .mcp.json.
func mergeMCPConfig(w io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["docweave"]; exists && !force {
		fmt.Fprintf(w, "  skipped .mcp.json docweave entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["docweave"] = docweaveMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(w, "  %s .mcp.json with docweave MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
