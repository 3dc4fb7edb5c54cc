package workflow

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/efineberg19/buildall/internal/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run traverses the tree under e.Root and builds every bundle it finds.
//
// Traversal is depth-first. Within a directory, children are taken in
// lexical order: matching bundles are built first, then the remaining
// directories are descended into. Matched bundles are not descended into
// unless DescendBundles is set. Symlinks to directories can be matched but
// are never followed for descent.
//
// Only a root that cannot be read is an error (wrapping ErrRootAccess).
// Unreadable subtrees are skipped and build failures are recorded but
// otherwise ignored. The completion line is written only when traversal
// finishes; a cancelled context stops the run without it.
func (e *Engine) Run(ctx context.Context) (*report.RunResult, error) {
	root, entries, err := openRoot(e.Root)
	if err != nil {
		return nil, err
	}

	rr := &report.RunResult{
		ID:        uuid.New().String(),
		Root:      root,
		Pattern:   e.Matcher.String(),
		DryRun:    e.DryRun,
		StartedAt: time.Now(),
	}
	log := e.logger().With(zap.String("run_id", rr.ID), zap.String("root", root))
	log.Debug("run started", zap.String("pattern", rr.Pattern), zap.Bool("dry_run", e.DryRun))
	if !e.DryRun {
		// Missing tools are not fatal: each build will fail to start and be recorded.
		if err := CheckTool(e.Tool); err != nil {
			log.Warn("build tool unavailable", zap.Error(err))
		}
	}

	w := &walker{engine: e, root: root, result: rr, log: log}
	if err := w.visit(ctx, root, entries); err != nil {
		log.Warn("run interrupted", zap.Error(err), zap.Int("builds", len(rr.Invocations)))
		return rr, err
	}

	rr.Complete = true
	fmt.Fprintln(e.console(), CompletionLine)
	log.Info("run complete",
		zap.Int("builds", len(rr.Invocations)),
		zap.Int("skipped", len(rr.Skipped)),
	)
	return rr, nil
}

// openRoot resolves root to an absolute path and lists it.
func openRoot(root string) (string, []fs.DirEntry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrRootAccess, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrRootAccess, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is not a directory", ErrRootAccess, abs)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrRootAccess, err)
	}
	return abs, entries, nil
}

// walker carries the traversal cursor for a single run.
type walker struct {
	engine *Engine
	root   string
	result *report.RunResult
	log    *zap.Logger
}

func (w *walker) visit(ctx context.Context, dir string, entries []fs.DirEntry) error {
	e := w.engine

	var bundles, descend []string
	for _, entry := range entries {
		name := entry.Name()
		if e.SkipHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		realDir := entry.IsDir()
		if !realDir && !isDirSymlink(entry, path) {
			continue
		}

		if e.Matcher.Match(name) {
			bundles = append(bundles, path)
			if realDir && e.DescendBundles {
				descend = append(descend, path)
			}
			continue
		}
		if realDir {
			descend = append(descend, path)
		}
	}

	for _, path := range bundles {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.build(ctx, path)
	}

	for _, path := range descend {
		if err := ctx.Err(); err != nil {
			return err
		}
		children, err := os.ReadDir(path)
		if err != nil {
			w.skip(path, err)
			continue
		}
		if err := w.visit(ctx, path, children); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) build(ctx context.Context, path string) {
	e := w.engine
	rel := w.rel(path)
	argv := e.Command(rel)

	fmt.Fprintf(e.console(), "running: %s\n", FormatCommand(argv))

	inv := report.Invocation{Bundle: rel, Argv: argv}
	e.observer().Started(inv)

	if !e.DryRun {
		res, err := e.Runner.Run(ctx, argv, w.root)
		if err != nil {
			inv.ExitCode = -1
			inv.Error = err.Error()
			w.log.Warn("build not started", zap.String("bundle", rel), zap.Error(err))
		} else {
			inv.RunID = res.RunID
			inv.ExitCode = res.ExitCode
			inv.Output = string(res.Output)
			inv.Truncated = res.Truncated
			inv.Duration = res.Duration
			w.log.Debug("build finished",
				zap.String("bundle", rel),
				zap.Int("exit_code", res.ExitCode),
				zap.Duration("duration", res.Duration),
			)
		}
	}

	w.result.Invocations = append(w.result.Invocations, inv)
	e.observer().Finished(inv)
}

func (w *walker) skip(path string, err error) {
	sd := report.SkippedDir{Path: w.rel(path), Error: err.Error()}
	w.result.Skipped = append(w.result.Skipped, sd)
	w.log.Warn("skipping unreadable directory", zap.String("path", sd.Path), zap.Error(err))
	w.engine.observer().Skipped(sd)
}

func (w *walker) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

// isDirSymlink reports whether entry is a symlink whose target is a directory.
func isDirSymlink(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
