package rrp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/packserve"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Config is the process-wide configuration, built once at start and handed
// to New. Nothing in the module reads configuration from globals.
//
// Example YAML:
//
//	threads: 4
//	dump_assets: true
//	debug_performance: false
//	log_level: info
//	pack:
//	  format: 15
//	server:
//	  addr: 127.0.0.1:8089
type Config struct {
	// Threads sizes the shared worker pool. Zero uses half the CPUs.
	Threads int `json:"threads,omitempty" yaml:"threads,omitempty"`

	// QueueSize preallocates the pool's pending task queue.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`

	// DumpAssets exports every registered pack to Pack.DumpDir on Close.
	DumpAssets bool `json:"dump_assets" yaml:"dump_assets"`

	// DebugPerformance adds timing events for resolution, export and
	// pre-generation.
	DebugPerformance bool `json:"debug_performance" yaml:"debug_performance"`

	// Observer names the registered observer for runtime and pack events,
	// or a comma-separated list of them.
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`

	// LogLevel drops runtime and pack events below this severity:
	// verbose, info, warning or error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	Pack   pack.Config      `json:"pack" yaml:"pack"`
	Server packserve.Config `json:"server" yaml:"server"`
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	w := worker.DefaultConfig()
	return Config{
		Threads:   w.Threads,
		QueueSize: w.QueueSize,
		Observer:  "slog",
		LogLevel:  "info",
		Pack:      pack.DefaultConfig(),
		Server:    packserve.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Threads > 0 {
		c.Threads = source.Threads
	}
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}
	if source.DumpAssets {
		c.DumpAssets = true
	}
	if source.DebugPerformance {
		c.DebugPerformance = true
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	c.Pack.Merge(&source.Pack)
	c.Server.Merge(&source.Server)
}

// WorkerConfig returns the pool configuration.
func (c *Config) WorkerConfig() worker.Config {
	return worker.Config{Threads: c.Threads, QueueSize: c.QueueSize}
}

// PackConfig returns the configuration of packs created by the runtime,
// with the process-wide flags folded in.
func (c *Config) PackConfig() pack.Config {
	cfg := c.Pack
	if c.DumpAssets {
		cfg.Dump = true
	}
	if c.DebugPerformance {
		cfg.DebugPerformance = true
	}
	if cfg.Observer == "" || cfg.Observer == pack.DefaultConfig().Observer {
		cfg.Observer = c.Observer
	}
	return cfg
}

// Validate reports values no default can repair.
func (c *Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("%w: threads must not be negative", ErrInvalidConfig)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue_size must not be negative", ErrInvalidConfig)
	}
	if _, err := observability.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.Pack.Format < 0 {
		return fmt.Errorf("%w: pack.format must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads filename and merges it over DefaultConfig. Files ending
// in .json are decoded as JSON, anything else as YAML.
//
// A missing or malformed file is not fatal: the defaults are written back
// to filename and returned with the second result true. The error is non-nil only
// when persisting the defaults failed; the returned Config is usable either
// way.
func LoadConfig(filename string) (*Config, bool, error) {
	cfg := DefaultConfig()

	loaded, err := readConfig(filename)
	if err == nil {
		err = loaded.Validate()
	}
	if err != nil {
		if saveErr := SaveConfig(filename, &cfg); saveErr != nil {
			return &cfg, true, errors.Join(err, saveErr)
		}
		return &cfg, true, nil
	}

	cfg.Merge(loaded)
	return &cfg, false, nil
}

// SaveConfig writes cfg to filename in the format implied by its extension.
func SaveConfig(filename string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isJSON(filename) {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func readConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, filename)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if isJSON(filename) {
		err = json.Unmarshal(data, &loaded)
	} else {
		err = yaml.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &loaded, nil
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}
