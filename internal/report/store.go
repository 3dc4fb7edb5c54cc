// Package report records what a build-all run did: every build command it
// issued, in order, and every subtree it had to skip. Runs are kept so that
// an earlier run can be inspected by ID.
package report

import (
	"strconv"
	"strings"
	"time"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult is the record of one traversal.
type RunResult struct {
	ID          string       `json:"id"`
	Root        string       `json:"root"`
	Pattern     string       `json:"pattern"`
	DryRun      bool         `json:"dry_run,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	Invocations []Invocation `json:"invocations,omitempty"`
	Skipped     []SkippedDir `json:"skipped,omitempty"`
	Complete    bool         `json:"complete"`
}

// Invocation is one build command as issued, with whatever was observed
// about its outcome. The default policy never acts on the outcome.
type Invocation struct {
	RunID     string        `json:"run_id,omitempty"` // empty for dry runs and launch failures
	Bundle    string        `json:"bundle"`           // bundle path relative to the root
	Argv      []string      `json:"argv"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"` // launch failure, if any
	Output    string        `json:"output,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Status is a one-word summary for display.
func (i *Invocation) Status() string {
	switch {
	case i.Error != "":
		return "not started"
	case i.RunID == "":
		return "dry run"
	case i.ExitCode != 0:
		return "exited " + strconv.Itoa(i.ExitCode)
	default:
		return "ok"
	}
}

// SkippedDir is a subtree that could not be read during traversal.
type SkippedDir struct {
	Path  string `json:"path"` // relative to the root
	Error string `json:"error"`
}

// ByBundle returns the invocations whose bundle path contains substr.
// An empty substr matches every invocation.
func ByBundle(result *RunResult, substr string) []Invocation {
	var out []Invocation
	for _, inv := range result.Invocations {
		if strings.Contains(inv.Bundle, substr) {
			out = append(out, inv)
		}
	}
	return out
}
