// Package logging builds the zap loggers used for diagnostics. Human
// readable lines go to the console stream; when a file is configured, JSON
// lines are also written to it with size-based rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds configuration for the Manager.
type Config struct {
	Level      string    // Minimum log level (debug, info, warn, error)
	Console    io.Writer // Console destination (default os.Stderr)
	FilePath   string    // Optional JSON log file
	MaxSizeMB  int       // Max size in MB before rotation
	MaxBackups int       // Max number of old log files to keep
	MaxAgeDays int       // Max days to keep old log files
}

// Manager owns the base logger and the rotating file writer, if any.
type Manager struct {
	base       *zap.Logger
	fileWriter *lumberjack.Logger
}

// NewManager creates a log manager with the given configuration.
// An unrecognised level falls back to info.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 7
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	consoleCfg.CallerKey = ""
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.AddSync(cfg.Console),
		level,
	)

	m := &Manager{}
	core := consoleCore

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		m.fileWriter = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}

		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "ts"
		fileCfg.EncodeTime = zapcore.EpochTimeEncoder
		fileCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(m.fileWriter),
			level,
		)
		core = zapcore.NewTee(consoleCore, fileCore)
	}

	m.base = zap.New(core)
	return m, nil
}

// NewNop returns a Manager whose loggers discard everything.
func NewNop() *Manager {
	return &Manager{base: zap.NewNop()}
}

// For returns a logger named after the given component.
func (m *Manager) For(scope string) *zap.Logger {
	return m.base.Named(scope)
}

// Close flushes buffered entries and closes the log file.
func (m *Manager) Close() error {
	_ = m.base.Sync()
	if m.fileWriter != nil {
		return m.fileWriter.Close()
	}
	return nil
}
