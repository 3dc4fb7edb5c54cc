package mcp

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/efineberg19/buildall/internal/config"
	"github.com/efineberg19/buildall/internal/report"
	"github.com/efineberg19/buildall/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setup creates a full buildall MCP server + client over in-memory transports.
func setup(t *testing.T, workspaceDir string) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	t.Setenv("TMPDIR", t.TempDir())
	store := report.NewLRUStore(5, report.NewDiskStore())
	server := NewServer(workspaceDir, store, nil)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

// fixture lays out a tree with two bundles and a stub build tool that
// prints its arguments and fails for bundle B.
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"A.xcodeproj", filepath.Join("sub", "B.xcodeproj"), "plainDir"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	tool := filepath.Join(t.TempDir(), "fakebuild")
	script := "#!/bin/sh\necho \"building $2\"\ncase \"$2\" in *B.xcodeproj) echo 'error: missing scheme' >&2; exit 65;; esac\n"
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "tool: " + tool + "\n"
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var runIDPattern = regexp.MustCompile(`Run: ([0-9a-f-]{36})`)

func extractRunID(t *testing.T, text string) string {
	t.Helper()
	m := runIDPattern.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no run ID in output:\n%s", text)
	}
	return m[1]
}

func TestListTools(t *testing.T) {
	cs := setup(t, t.TempDir())
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"build_all", "build_inspect"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

// --- build_all ---

func TestBuildAll(t *testing.T) {
	root := fixture(t)
	cs := setup(t, root)

	res := callTool(t, cs, "build_all", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}

	if strings.Count(text, "running: ") != 2 {
		t.Errorf("expected 2 running lines, got:\n%s", text)
	}
	a := strings.Index(text, "-project A.xcodeproj")
	b := strings.Index(text, "-project "+filepath.Join("sub", "B.xcodeproj"))
	done := strings.Index(text, workflow.CompletionLine)
	if a < 0 || b < 0 || done < 0 || !(a < b && b < done) {
		t.Errorf("expected A, then B, then completion line, got:\n%s", text)
	}
	if strings.Contains(text, "plainDir") {
		t.Errorf("plainDir should not be built:\n%s", text)
	}
	// Build output is captured for build_inspect, not echoed into the transcript.
	if strings.Contains(text, "building ") {
		t.Errorf("build output leaked into transcript:\n%s", text)
	}
	if !strings.Contains(text, "Builds issued: 2") {
		t.Errorf("expected build count, got:\n%s", text)
	}
}

func TestBuildAll_RelativeRoot(t *testing.T) {
	workspace := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workspace, "ios", "App.xcodeproj"), 0o755); err != nil {
		t.Fatal(err)
	}
	cs := setup(t, workspace)

	res := callTool(t, cs, "build_all", map[string]any{"root": "ios", "dry_run": true})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "running: xcodebuild -project App.xcodeproj -alltargets") {
		t.Errorf("expected App.xcodeproj dry-run command, got:\n%s", text)
	}
}

func TestBuildAll_MissingRoot(t *testing.T) {
	cs := setup(t, t.TempDir())

	res := callTool(t, cs, "build_all", map[string]any{"root": "does-not-exist"})
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected error result, got:\n%s", text)
	}
	if !strings.Contains(text, "not accessible") {
		t.Errorf("expected root access error, got:\n%s", text)
	}
	if strings.Contains(text, workflow.CompletionLine) {
		t.Errorf("completion line must not appear for a missing root:\n%s", text)
	}
}

func TestBuildAll_EmptyRoot(t *testing.T) {
	cs := setup(t, t.TempDir())

	res := callTool(t, cs, "build_all", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if strings.Contains(text, "running:") {
		t.Errorf("expected no builds, got:\n%s", text)
	}
	if !strings.Contains(text, workflow.CompletionLine) {
		t.Errorf("expected completion line, got:\n%s", text)
	}
}

// --- build_inspect ---

func TestBuildInspect(t *testing.T) {
	root := fixture(t)
	cs := setup(t, root)

	runID := extractRunID(t, resultText(callTool(t, cs, "build_all", nil)))

	res := callTool(t, cs, "build_inspect", map[string]any{"run_id": runID})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "A.xcodeproj: ok") {
		t.Errorf("expected A to be ok, got:\n%s", text)
	}
	if !strings.Contains(text, "B.xcodeproj: exited 65") {
		t.Errorf("expected B to exit 65, got:\n%s", text)
	}
	if !strings.Contains(text, "| error: missing scheme") {
		t.Errorf("expected captured stderr, got:\n%s", text)
	}
}

func TestBuildInspect_BundleFilter(t *testing.T) {
	root := fixture(t)
	cs := setup(t, root)

	runID := extractRunID(t, resultText(callTool(t, cs, "build_all", nil)))

	text := resultText(callTool(t, cs, "build_inspect", map[string]any{"run_id": runID, "bundle": "sub"}))
	if strings.Contains(text, "A.xcodeproj:") {
		t.Errorf("filter should exclude A, got:\n%s", text)
	}
	if !strings.Contains(text, "B.xcodeproj:") {
		t.Errorf("filter should include B, got:\n%s", text)
	}

	text = resultText(callTool(t, cs, "build_inspect", map[string]any{"run_id": runID, "bundle": "Nope"}))
	if !strings.Contains(text, "No builds matching") {
		t.Errorf("expected no-match message, got:\n%s", text)
	}
}

func TestBuildInspect_MissingRunID(t *testing.T) {
	cs := setup(t, t.TempDir())
	res := callTool(t, cs, "build_inspect", map[string]any{"run_id": ""})
	if !res.IsError {
		t.Fatalf("expected error result, got:\n%s", resultText(res))
	}
}

func TestBuildInspect_UnknownRun(t *testing.T) {
	cs := setup(t, t.TempDir())
	res := callTool(t, cs, "build_inspect", map[string]any{"run_id": "00000000-0000-0000-0000-000000000000"})
	if !res.IsError {
		t.Fatalf("expected error result, got:\n%s", resultText(res))
	}
}
