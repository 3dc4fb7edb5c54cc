// Command buildall rebuilds every project bundle found under a directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/efineberg19/buildall"
	"github.com/efineberg19/buildall/internal/config"
	"github.com/efineberg19/buildall/internal/logging"
	buildmcp "github.com/efineberg19/buildall/internal/mcp"
	"github.com/efineberg19/buildall/internal/report"
	"github.com/efineberg19/buildall/internal/runner"
	"github.com/efineberg19/buildall/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 {
		switch args[0] {
		case "run", "mcp", "version", "help", "-h", "--help":
			cmd = args[0]
			args = args[1:]
		}
	}

	var err error
	switch cmd {
	case "run":
		err = runMain(args, stdout, stderr)
	case "mcp":
		err = mcpMain(args, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, buildall.Version)
	case "help", "-h", "--help":
		usage(stdout)
	}

	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "buildall: %v\n", err)
		usage(stderr)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "buildall: %v\n", err)
		return exitError
	}
}

// usageError marks errors caused by bad command-line input.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage: buildall [run] [flags] [root]
       buildall <command> [flags]

Rebuilds every project bundle (default *.xcodeproj) under root, which
defaults to the current directory.

Commands:
  run         Build every bundle under root (default)
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "buildall <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pattern := fs.StringP("pattern", "p", "", "bundle name glob (default "+config.DefaultPattern+")")
	tool := fs.String("tool", "", "build tool binary (default "+config.DefaultTool+")")
	toolArgs := fs.StringArray("arg", nil, "build tool argument, repeatable; replaces the default template ("+config.ProjectPlaceholder+" is the bundle path)")
	dryRun := fs.BoolP("dry-run", "n", false, "print the build commands without running them")
	descend := fs.Bool("descend-bundles", false, "also search inside matched bundles")
	skipHidden := fs.Bool("skip-hidden", false, "ignore directories whose name starts with a dot")
	timeout := fs.Duration("timeout", 0, "per-build timeout (e.g. 30m); 0 means none")
	logLevel := fs.String("log-level", "", "diagnostic log level: debug, info, warn, error")
	logFile := fs.String("log-file", "", "also write JSON logs to this file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError{err}
	}
	if fs.NArg() > 1 {
		return usageError{fmt.Errorf("expected at most one root, got %d", fs.NArg())}
	}

	root := "."
	if fs.NArg() == 1 {
		root = fs.Arg(0)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	cfg := &config.Config{}
	if isDir(absRoot) {
		cfg, err = config.Load(absRoot)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	if fs.Changed("pattern") {
		cfg.Pattern = *pattern
	}
	if fs.Changed("tool") {
		cfg.Tool = *tool
	}
	if fs.Changed("arg") {
		cfg.Args = *toolArgs
	}
	if fs.Changed("descend-bundles") {
		cfg.DescendBundles = *descend
	}
	if fs.Changed("skip-hidden") {
		cfg.SkipHidden = *skipHidden
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if fs.Changed("log-file") {
		cfg.Log.File = *logFile
	}

	logs, err := logging.NewManager(logging.Config{
		Level:    cfg.LogLevel(),
		Console:  stderr,
		FilePath: cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logs.Close() }()

	buildTimeout := cfg.Timeout()
	if *timeout > 0 {
		buildTimeout = *timeout
	}

	r := &runner.Runner{
		Workspace: absRoot,
		Timeout:   buildTimeout,
		Stdout:    stdout,
		Stderr:    stderr,
	}
	eng, err := workflow.NewEngine(cfg, absRoot, r)
	if err != nil {
		return err
	}
	eng.Console = stdout
	eng.DryRun = *dryRun
	eng.Logger = logs.For("engine")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = eng.Run(ctx)
	return err
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// --- mcp ---

func mcpMain(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	logLevel := fs.String("log-level", config.DefaultLogLevel, "diagnostic log level: debug, info, warn, error")
	logFile := fs.String("log-file", "", "also write JSON logs to this file")
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError{err}
	}

	if *instructions {
		fmt.Fprint(stdout, buildmcp.Instructions)
		return nil
	}

	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}

	// Logs go to stderr; stdout carries the stdio transport.
	logs, err := logging.NewManager(logging.Config{
		Level:    *logLevel,
		Console:  stderr,
		FilePath: *logFile,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logs.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := report.NewLRUStore(10, report.NewDiskStore())
	server := buildmcp.NewServer(workspace, store, logs.For("mcp"))

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr, logs.For("http"))
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
