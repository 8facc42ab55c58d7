// Package config provides configuration management for the bridge. It
// handles loading, parsing, and defaulting the YAML configuration file
// the host's external loader supplies alongside the offsets file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QueueConfig controls the RequestQueue's backpressure policy (spec §5's
// "implementers may bound the queue" refinement).
type QueueConfig struct {
	Capacity int `yaml:"capacity,omitempty"` // 0 = unbounded (spec default)
}

// DiagnosticsConfig controls the loopback-only health/metrics HTTP
// surface. It has no effect on the wire protocol the controller speaks.
type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"` // loopback bind address, e.g. "127.0.0.1:9191"
}

// Config is the bridge's full runtime configuration, loaded once at
// startup alongside the OffsetsTable (spec §6.2, §6.3).
type Config struct {
	PipeName    string            `yaml:"pipe_name,omitempty"`
	OffsetsPath string            `yaml:"offsets_path"`
	Queue       QueueConfig       `yaml:"queue,omitempty"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty"`
}

// UnmarshalYAML applies defaults the same way the teacher's gateway
// config does: decode into a default-seeded alias type so a Config can
// never exist without its baseline values, then patch any field the
// source left zero.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig Config
	raw := rawConfig{
		PipeName: defaultPipeName,
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.PipeName == "" {
		raw.PipeName = defaultPipeName
	}
	if raw.Diagnostics.Enabled && raw.Diagnostics.Addr == "" {
		raw.Diagnostics.Addr = defaultDiagnosticsAddr
	}

	*c = Config(raw)
	return nil
}

const (
	defaultPipeName       = `\\.\pipe\WowInjectPipe`
	defaultDiagnosticsAddr = "127.0.0.1:9191"
)

// Load reads and parses a YAML configuration file, returning a defaulted
// Config. An empty or whitespace-only file yields the default Config
// rather than an error, matching the teacher's LoadConfig leniency for
// first-run setups.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if len(strings.TrimSpace(string(data))) == 0 {
		cfg.PipeName = defaultPipeName
		return &cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.OffsetsPath == "" {
		return nil, fmt.Errorf("config: offsets_path is required")
	}

	return &cfg, nil
}
