package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/efineberg19/buildall/internal/report"
	"github.com/efineberg19/buildall/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a build_all result"`
	Bundle string `json:"bundle,omitempty" jsonschema:"substring of the bundle path relative to the root (e.g. sub/App.xcodeproj). Empty selects every build."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	invocations := report.ByBundle(result, params.Bundle)
	if len(invocations) == 0 {
		if params.Bundle == "" {
			return textResult(fmt.Sprintf("Run %s issued no builds.", params.RunID))
		}
		return textResult(fmt.Sprintf("No builds matching %q in run %s.", params.Bundle, params.RunID))
	}

	return textResult(formatInspectOutput(result, invocations))
}

func formatInspectOutput(result *report.RunResult, invocations []report.Invocation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", result.ID)
	fmt.Fprintf(&b, "Root: %s\n", result.Root)
	if result.DryRun {
		fmt.Fprintln(&b, "Dry run: no commands were executed.")
	}

	for _, inv := range invocations {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s: %s\n", inv.Bundle, inv.Status())
		fmt.Fprintf(&b, "  $ %s\n", workflow.FormatCommand(inv.Argv))
		if inv.Error != "" {
			fmt.Fprintf(&b, "  %s\n", inv.Error)
		}
		if out := strings.TrimRight(inv.Output, "\n"); out != "" {
			for _, line := range strings.Split(out, "\n") {
				fmt.Fprintf(&b, "  | %s\n", line)
			}
		}
		if inv.Truncated {
			fmt.Fprintln(&b, "  (output truncated)")
		}
	}

	return b.String()
}
