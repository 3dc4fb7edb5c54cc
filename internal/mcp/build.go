package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/efineberg19/buildall/internal/config"
	"github.com/efineberg19/buildall/internal/report"
	"github.com/efineberg19/buildall/internal/runner"
	"github.com/efineberg19/buildall/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type buildParams struct {
	Root   string `json:"root,omitempty" jsonschema:"directory to search for project bundles, absolute or relative to the workspace. Defaults to the workspace."`
	DryRun bool   `json:"dry_run,omitempty" jsonschema:"list the build commands without running them"`
}

func (h *handler) buildHandler(ctx context.Context, req *mcp.CallToolRequest, params buildParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	root := params.Root
	if root == "" {
		root = h.workspace
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(h.workspace, root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return errorResult(fmt.Sprintf("build_all failed: %v", err))
	}

	// Build output is captured, never streamed: stdout carries the protocol.
	r := &runner.Runner{
		Workspace: root,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}
	eng, err := workflow.NewEngine(cfg, root, r)
	if err != nil {
		return errorResult(fmt.Sprintf("build_all failed: %v", err))
	}
	var transcript strings.Builder
	eng.Console = &transcript
	eng.DryRun = params.DryRun
	eng.Logger = h.log.Named("engine")

	result, err := eng.Run(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("build_all failed: %v", err))
	}

	// Save results for build_inspect.
	if err := h.store.Save(result); err != nil {
		h.log.Warn("saving run failed", zap.String("run_id", result.ID), zap.Error(err))
	}

	return textResult(formatBuild(result, transcript.String()))
}

func formatBuild(result *report.RunResult, transcript string) string {
	var b strings.Builder

	fmt.Fprint(&b, transcript)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Run: %s\n", result.ID)
	fmt.Fprintf(&b, "Root: %s\n", result.Root)
	fmt.Fprintf(&b, "Builds issued: %d\n", len(result.Invocations))
	for _, s := range result.Skipped {
		fmt.Fprintf(&b, "Skipped unreadable directory: %s (%s)\n", s.Path, s.Error)
	}
	if len(result.Invocations) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Inspect with build_inspect(run_id=%q, bundle=\"<bundle path substring>\").\n", result.ID)
	}

	return b.String()
}
