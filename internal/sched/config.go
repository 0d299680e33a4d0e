package sched

import (
	"os"

	yaml "github.com/goccy/go-yaml"

	"krunq/internal/policy"
)

// Config mirrors config.yml.
type Config struct {
	TickMS     int    `yaml:"tick_ms"`     // 0 = no periodic clock, ticks are injected
	SliceTicks int64  `yaml:"slice_ticks"` // round-robin quantum
	Policy     string `yaml:"policy"`      // fifo | rr | wfair
	CPUs       int    `yaml:"cpus"`        // scheduling domains
	StackBytes int    `yaml:"stack_bytes"` // per-task stack region
	LogLevel   string `yaml:"log_level"`   // debug | info | warn | error
	LogFormat  string `yaml:"log_format"`  // text | json
}

// If the config file is not found, we use default values.
func defaultConfig() Config {
	return Config{
		TickMS:     5,
		SliceTicks: 5,
		Policy:     string(policy.WeightedFair),
		CPUs:       1,
		StackBytes: 16 * 1024,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.TickMS < 0 {
		cfg.TickMS = 0
	}
	if cfg.SliceTicks <= 0 {
		cfg.SliceTicks = 5
	}
	if cfg.Policy == "" {
		cfg.Policy = string(policy.WeightedFair)
	}
	if cfg.CPUs <= 0 {
		cfg.CPUs = 1
	}
	if cfg.StackBytes <= 0 {
		cfg.StackBytes = 16 * 1024
	} else if cfg.StackBytes < 1024 {
		cfg.StackBytes = 1024
	}

	return cfg
}
