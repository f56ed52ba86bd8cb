// Package config loads the boot configuration. Defaults always work; a YAML
// file, when present, overlays them and is then clamped back into sane
// ranges. A missing or unreadable file is not an error.
package config

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors ember.yaml.
type Config struct {
	TickHz       int    `yaml:"tick_hz"`
	QuantumTicks int    `yaml:"quantum_ticks"`
	BlinkTicks   int    `yaml:"blink_ticks"`
	Spinners     int    `yaml:"spinners"`
	NetSink      bool   `yaml:"netsink"`
	ConsoleEvery int    `yaml:"console_every"`
	TracePath    string `yaml:"trace_path"`
}

func defaultConfig() Config {
	return Config{
		TickHz:       60,
		QuantumTicks: 10,
		BlinkTicks:   50,
		Spinners:     2,
		NetSink:      true,
		ConsoleEvery: 10,
	}
}

// Load reads YAML over the defaults; an empty path or a missing file yields
// defaults only. A file that exists but fails to parse is reported.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return clamp(cfg), nil
}

func clamp(cfg Config) Config {
	if cfg.TickHz <= 0 {
		cfg.TickHz = 60
	}
	if cfg.TickHz > 1000 {
		cfg.TickHz = 1000
	}
	if cfg.QuantumTicks <= 0 {
		cfg.QuantumTicks = 10
	}
	if cfg.BlinkTicks <= 0 {
		cfg.BlinkTicks = 50
	}
	if cfg.Spinners < 0 {
		cfg.Spinners = 0
	}
	if cfg.Spinners > 8 {
		cfg.Spinners = 8
	}
	if cfg.ConsoleEvery <= 0 {
		cfg.ConsoleEvery = 10
	}
	return cfg
}
