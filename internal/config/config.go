// Package config loads the YAML configuration for the replay binary.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowscope/pgtrace/internal/pipeline"
)

// Config is the top-level configuration.
type Config struct {
	SelfTelemetry pipeline.SelfTelemetryConfig `yaml:"selfTelemetry"`

	Decoders struct {
		// MaxFlows caps live decoder instances.
		MaxFlows int `yaml:"max_flows"`
	} `yaml:"decoders"`

	Correlator struct {
		MaxPending int    `yaml:"max_pending"`
		TTLStr     string `yaml:"ttl"`
	} `yaml:"correlator"`

	Replay struct {
		// Input is the segment capture log to replay; "-" means
		// stdin.
		Input string `yaml:"input"`
	} `yaml:"replay"`
}

// TTL parses the correlator TTL, falling back to the default on a bad
// or missing value.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.Correlator.TTLStr)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Pipeline translates the decoder and correlator sections into the
// pipeline's config.
func (c *Config) Pipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.Decoders.MaxFlows > 0 {
		cfg.MaxFlows = c.Decoders.MaxFlows
	}
	if c.Correlator.MaxPending > 0 {
		cfg.MaxPending = c.Correlator.MaxPending
	}
	cfg.PendingTTL = c.TTL()
	return cfg
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SelfTelemetry = pipeline.DefaultSelfTelemetryConfig()
	cfg.Replay.Input = "-"
	return cfg
}

// Load reads and parses the configuration file, applying defaults for
// anything unset.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Replay.Input == "" {
		cfg.Replay.Input = "-"
	}
	return cfg, nil
}
