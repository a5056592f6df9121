// Package config handles application configuration and command-line argument parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"gopkg.in/yaml.v2"

	"github.com/joe/twinpane/pkg/vfs"
	"github.com/joe/twinpane/pkg/vfs/local"
	"github.com/joe/twinpane/pkg/vfs/memory"
)

// Exported constants.
const (
	DefaultTimeout = 30 * time.Second
	DefaultWorkers = 4
	DefaultLogSize = 200
)

// LogFormat is the encoding of the diagnostics log.
type LogFormat int

// Log formats.
const (
	LogFormatJSON LogFormat = iota
	LogFormatConsole
)

// String returns the string representation of LogFormat
func (f LogFormat) String() string {
	switch f {
	case LogFormatJSON:
		return "json"
	case LogFormatConsole:
		return "console"
	default:
		return "unknown"
	}
}

// ParseLogFormat parses a string into a LogFormat
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON, nil
	case "console", "text":
		return LogFormatConsole, nil
	default:
		return LogFormatJSON, fmt.Errorf("invalid log format: %s (valid: json, console)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (f *LogFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseLogFormat(string(text))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}

// Config holds the application configuration
type Config struct {
	ProfilesPath string        `arg:"-p,--profiles" help:"YAML file declaring source profiles"`
	Left         string        `arg:"--left" help:"Profile shown in the left pane (default: first profile)"`
	Right        string        `arg:"--right" help:"Profile shown in the right pane (default: second profile)"`
	Timeout      time.Duration `arg:"--timeout" help:"Timeout for each backend call"`
	Workers      int           `arg:"-w,--workers" help:"Number of items processed concurrently"`
	LogFile      string        `arg:"--log-file" help:"Write diagnostics to this file"`
	LogLevel     string        `arg:"--log-level" help:"Diagnostics level: debug|info|warn|error"`
	LogFormat    LogFormat     `arg:"--log-format" help:"Diagnostics encoding: json|console"`
	LogSize      int           `arg:"--log-size" help:"Number of command log entries kept"`
	MetricsAddr  string        `arg:"--metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090)"`

	// Profiles is filled from ProfilesPath, or defaults, by PostProcessConfig.
	Profiles []vfs.Profile `arg:"-"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "A dual-pane file manager for local folders, remote hosts, buckets and databases"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "twinpane 1.0.0"
}

// ParseFlags parses command-line flags and returns configuration
func ParseFlags() (*Config, error) {
	cfg := defaults()

	arg.MustParse(cfg)

	return PostProcessConfig(cfg)
}

// ParseArgs parses args (without the program name) and returns configuration.
func ParseArgs(args []string) (*Config, error) {
	cfg := defaults()

	parser, err := arg.NewParser(arg.Config{Program: "twinpane"}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build argument parser: %w", err)
	}

	if err := parser.Parse(args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	return PostProcessConfig(cfg)
}

// PostProcessConfig validates a parsed config, loads the profiles and picks the panes.
func PostProcessConfig(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ProfilesPath != "" {
		profiles, err := LoadProfiles(cfg.ProfilesPath)
		if err != nil {
			return nil, err
		}

		cfg.Profiles = profiles
	} else if len(cfg.Profiles) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot determine working directory: %w", err)
		}

		cfg.Profiles = DefaultProfiles(cwd)
	}

	if err := cfg.pickPanes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the numeric settings.
func (cfg *Config) Validate() error {
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	if cfg.LogSize < 1 {
		return fmt.Errorf("log size must be at least 1, got %d", cfg.LogSize)
	}

	return nil
}

func (cfg *Config) pickPanes() error {
	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("no profiles declared")
	}

	ids := make(map[string]bool, len(cfg.Profiles))
	for _, profile := range cfg.Profiles {
		ids[profile.ID] = true
	}

	if cfg.Left == "" {
		cfg.Left = cfg.Profiles[0].ID
	}

	if cfg.Right == "" {
		cfg.Right = cfg.Profiles[min(1, len(cfg.Profiles)-1)].ID
	}

	for _, id := range []string{cfg.Left, cfg.Right} {
		if !ids[id] {
			return fmt.Errorf("unknown profile %q", id)
		}
	}

	return nil
}

type profilesFile struct {
	Profiles []vfs.Profile `yaml:"profiles"`
}

// LoadProfiles reads a YAML profiles file. Environment variables in config values are
// expanded.
func LoadProfiles(path string) ([]vfs.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read profiles file: %w", err)
	}

	return ParseProfiles(data)
}

// ParseProfiles decodes YAML profile declarations.
func ParseProfiles(data []byte) ([]vfs.Profile, error) {
	var file profilesFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("invalid profiles file: %w", err)
	}

	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profiles file declares no profiles")
	}

	for i := range file.Profiles {
		profile := &file.Profiles[i]
		if profile.DisplayName == "" {
			profile.DisplayName = profile.ID
		}

		for key, value := range profile.Config {
			profile.Config[key] = os.ExpandEnv(value)
		}
	}

	return file.Profiles, nil
}

// DefaultProfiles returns the profiles used without a profiles file: the working
// directory plus two in-memory demo sources.
func DefaultProfiles(cwd string) []vfs.Profile {
	return []vfs.Profile{
		{
			ID:          "L",
			DisplayName: "L: (Local)",
			BackendID:   local.ID,
			Config:      map[string]string{local.RootKey: cwd},
		},
		{
			ID:          "D",
			DisplayName: "D: (Demo)",
			BackendID:   memory.ID,
			Config:      map[string]string{memory.FixtureKey: memory.FixtureDemo},
		},
		{
			ID:          "B",
			DisplayName: "B: (Buckets)",
			BackendID:   memory.ID,
			Config:      map[string]string{memory.FixtureKey: memory.FixtureBuckets},
		},
	}
}

func defaults() *Config {
	return &Config{
		Timeout:   DefaultTimeout,
		Workers:   DefaultWorkers,
		LogLevel:  "info",
		LogFormat: LogFormatJSON,
		LogSize:   DefaultLogSize,
	}
}
