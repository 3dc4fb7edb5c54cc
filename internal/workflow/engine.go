// Package workflow provides the build-all engine: it walks a directory
// tree, picks out project bundles by name and issues one build command per
// bundle, in a fixed order, then announces completion. It is consumed by
// both the CLI and the MCP server.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/efineberg19/buildall/internal/bundle"
	"github.com/efineberg19/buildall/internal/config"
	"github.com/efineberg19/buildall/internal/report"
	"github.com/efineberg19/buildall/internal/runner"
	"go.uber.org/zap"
)

// CompletionLine is written once, after every bundle has been handled.
const CompletionLine = "buildall complete."

// ErrRootAccess is returned when the root cannot be traversed at all.
// The underlying filesystem error is wrapped alongside it.
var ErrRootAccess = errors.New("root directory is not accessible")

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) (*runner.Result, error)
}

// Observer is notified of every build invocation and every skipped subtree.
// It sees outcomes the engine itself deliberately ignores.
type Observer interface {
	Started(inv report.Invocation)
	Finished(inv report.Invocation)
	Skipped(dir report.SkippedDir)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) Started(report.Invocation)  {}
func (NopObserver) Finished(report.Invocation) {}
func (NopObserver) Skipped(report.SkippedDir)  {}

// Engine holds everything one build-all run needs.
type Engine struct {
	Root           string          // directory to traverse
	Matcher        *bundle.Matcher // bundle name pattern
	Tool           string          // build tool binary
	Args           []string        // argument template; config.ProjectPlaceholder is substituted
	DescendBundles bool            // also look for bundles inside matched bundles
	SkipHidden     bool            // ignore directories whose name starts with "."
	DryRun         bool            // announce commands without running them

	Runner   CommandRunner
	Console  io.Writer // receives the announcement and completion lines
	Observer Observer
	Logger   *zap.Logger
}

// NewEngine builds an Engine for root from cfg.
func NewEngine(cfg *config.Config, root string, r CommandRunner) (*Engine, error) {
	m, err := bundle.Compile(cfg.BundlePattern())
	if err != nil {
		return nil, err
	}
	args := cfg.BuildArgs()
	if !hasPlaceholder(args) {
		return nil, fmt.Errorf("build arguments %q do not contain %s", args, config.ProjectPlaceholder)
	}
	return &Engine{
		Root:           root,
		Matcher:        m,
		Tool:           cfg.BuildTool(),
		Args:           args,
		DescendBundles: cfg.DescendBundles,
		SkipHidden:     cfg.SkipHidden,
		Runner:         r,
	}, nil
}

// Command returns the argv that builds the bundle at path.
func (e *Engine) Command(path string) []string {
	argv := make([]string, 0, len(e.Args)+1)
	argv = append(argv, e.Tool)
	for _, a := range e.Args {
		argv = append(argv, strings.ReplaceAll(a, config.ProjectPlaceholder, path))
	}
	return argv
}

// FormatCommand renders argv for display, quoting arguments the way a
// POSIX shell would need them.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = quoteArg(a)
	}
	return strings.Join(parts, " ")
}

func quoteArg(a string) string {
	if a == "" {
		return "''"
	}
	if !strings.ContainsAny(a, " \t\n'\"\\$`;&|<>()*?[]{}#~!") {
		return a
	}
	return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
}

func hasPlaceholder(args []string) bool {
	for _, a := range args {
		if strings.Contains(a, config.ProjectPlaceholder) {
			return true
		}
	}
	return false
}

func (e *Engine) console() io.Writer {
	if e.Console == nil {
		return io.Discard
	}
	return e.Console
}

func (e *Engine) observer() Observer {
	if e.Observer == nil {
		return NopObserver{}
	}
	return e.Observer
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
