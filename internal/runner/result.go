package runner

import "time"

// Result holds the outcome of one command execution.
type Result struct {
	RunID     string        // unique identifier for this invocation
	ExitCode  int           // process exit code
	Output    []byte        // captured stdout+stderr; empty when streamed
	Truncated bool          // true if captured output exceeded the size cap
	Duration  time.Duration // wall time from start to exit
}
