package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CONFETTI_CONFIG is set
//  3. env (prefix CONFETTI_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CONFETTI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, WrapKind("config.load", ErrLoadConfig, err)
		}
	}

	// Environment variables: CONFETTI_ADDR, CONFETTI_SLACK_WEBHOOK_URL, ...
	// Map env keys like CONFETTI_SHARD_COUNT -> shard_count (flat keys).
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("CONFETTI_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "confetti_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, WrapKind("config.load", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, WrapKind("config.load", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	const op = "config.validate"
	if c.Addr == "" {
		return NewKind(op, ErrInvalidConfig, "addr must not be empty")
	}
	switch c.Store {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return NewKind(op, ErrInvalidConfig, "postgres store requires postgres_dsn")
		}
	default:
		return NewKind(op, ErrInvalidConfig, "store must be \"memory\" or \"postgres\"")
	}
	return nil
}
