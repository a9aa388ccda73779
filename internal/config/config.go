// Package config loads the YAML configuration the demo binary uses to
// pick a protocol variant, the BSGS bound, and the registered user set.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Variant selects which protocol flavor a run exercises.
type Variant string

const (
	SemiHonest Variant = "semi-honest"
	Malicious  Variant = "malicious"
)

// Config is the demo binary's top-level configuration.
type Config struct {
	LogLevel string `yaml:"logLevel"`

	Variant   Variant `yaml:"variant"`
	MaxPoints uint64  `yaml:"maxPoints"`

	Users []struct {
		Barcode uint64 `yaml:"barcode"`
	} `yaml:"users"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{LogLevel: "info", Variant: Malicious, MaxPoints: 100000}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if cfg.Variant != SemiHonest && cfg.Variant != Malicious {
		return nil, fmt.Errorf("config: unknown variant %q", cfg.Variant)
	}
	if cfg.MaxPoints == 0 {
		return nil, fmt.Errorf("config: maxPoints must be positive")
	}
	if len(cfg.Users) < 2 {
		return nil, fmt.Errorf("config: at least 2 users are required to run a transaction")
	}

	return cfg, nil
}
