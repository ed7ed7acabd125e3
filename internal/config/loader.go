package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if MENAGERIE_CONFIG is set
//  3. env (prefix MENAGERIE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MENAGERIE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: MENAGERIE_ADDR, MENAGERIE_HUTCH_CAPACITY, ...
	// Map env keys like MENAGERIE_HUTCH_CAPACITY -> hutch_capacity (flat
	// keys). Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MENAGERIE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "menagerie_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.GameAddr == "" {
		return nil, errors.New("game_addr must not be empty")
	}
	if cfg.RosterCapacity <= 0 || cfg.HutchCapacity <= 0 || cfg.InventoryCapacity <= 0 {
		return nil, errors.New("capacities must be positive")
	}
	if cfg.AbilityLogCapacity <= 0 {
		return nil, errors.New("ability_log_capacity must be positive")
	}
	return &cfg, nil
}
