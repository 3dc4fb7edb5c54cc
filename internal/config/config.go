// Package config loads and validates the optional .buildall YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/efineberg19/buildall/internal/bundle"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up in the root.
const FileName = ".buildall"

// ProjectPlaceholder is replaced with the bundle path in each build argument.
const ProjectPlaceholder = "{project}"

// Default values.
const (
	DefaultPattern   = bundle.DefaultPattern
	DefaultTool      = "xcodebuild"
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultLogLevel  = "info"
)

// DefaultArgs is the argument template used when none is configured.
var DefaultArgs = []string{"-project", ProjectPlaceholder, "-alltargets"}

// Config holds the parsed .buildall configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Pattern        string    `yaml:"pattern"` // bundle glob, e.g. "*.xcodeproj"
	Tool           string    `yaml:"tool"`    // build tool binary
	Args           []string  `yaml:"args"`    // argument template containing {project}
	DescendBundles bool      `yaml:"descend_bundles"`
	SkipHidden     bool      `yaml:"skip_hidden"`
	RawTimeout     string    `yaml:"timeout"`    // e.g. "30m"; empty means none
	RawMaxOutput   int       `yaml:"max_output"` // bytes
	Log            LogConfig `yaml:"log"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // rotating JSON log file; empty disables it
}

// BundlePattern returns the configured bundle glob or the default.
func (c *Config) BundlePattern() string {
	if c.Pattern != "" {
		return c.Pattern
	}
	return DefaultPattern
}

// BuildTool returns the configured build tool or the default.
func (c *Config) BuildTool() string {
	if c.Tool != "" {
		return c.Tool
	}
	return DefaultTool
}

// BuildArgs returns the configured argument template or the default.
func (c *Config) BuildArgs() []string {
	if len(c.Args) > 0 {
		return c.Args
	}
	return DefaultArgs
}

// Timeout returns the configured per-build timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured capture cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return DefaultLogLevel
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.RawTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout %q: must not be negative", c.RawTimeout)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("invalid max_output %d: must not be negative", c.RawMaxOutput)
	}
	return nil
}

// Load reads the .buildall file from root. If no file exists, a default
// Config is returned.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", FileName, err)
	}
	return cfg, nil
}
