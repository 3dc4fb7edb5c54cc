// Package mcp provides the buildall MCP server, registering the build and
// inspect tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/efineberg19/buildall"
	"github.com/efineberg19/buildall/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex // serialises builds and guards workspace
	workspace string     // default root; relative roots resolve against it
	store     report.Store
	log       *zap.Logger
}

// NewServer creates an MCP server with all buildall tools registered.
func NewServer(workspace string, store report.Store, log *zap.Logger) *mcp.Server {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{
		workspace: workspace,
		store:     store,
		log:       log,
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "buildall", Version: buildall.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "build_all",
		Description: `Rebuild every project bundle under a root directory.

Walks the tree depth-first, runs the configured build tool once per bundle in a fixed order,
and reports every command issued followed by a completion line. Individual build failures do
not stop the run. Results are stored for drill-down via build_inspect.`,
	}, h.buildHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "build_inspect",
		Description: `Show the outcome of each build from an earlier build_all run.

Use the run_id from the build_all output. Optionally narrow the result with bundle, a
substring of the bundle path relative to the root.`,
	}, h.inspectHandler)

	return s
}

// updateWorkspaceFromRoots asks the client for its roots and, when the first
// one is a local directory, uses it as the default build root.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	h.mu.Lock()
	h.workspace = u.Path
	h.mu.Unlock()
	h.log.Debug("workspace set from client roots", zap.String("workspace", u.Path))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
