// Package config loads client configuration from an optional YAML file and
// PLATEFRONT_-prefixed environment variables, env taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PLATEFRONT_"

// Config is a thin wrapper over koanf with the defaults this client needs.
type Config struct {
	k *koanf.Koanf
}

// Defaults applied before any file or env value.
var defaults = map[string]any{
	"server.base_url":   "http://localhost:5000",
	"nats.url":          "nats://localhost:4222",
	"forms.debounce_ms": 800,
	"log.level":         "info",
	"log.format":        "text",
}

// Load reads path (ignored when empty or absent) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("cannot set default %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("cannot load config file %s: %w", path, err)
			}
		}
	}

	// PLATEFRONT_SERVER__BASE_URL -> server.base_url
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot load environment: %w", err)
	}

	return &Config{k: k}, nil
}

// String returns the value at key, or def when unset or empty.
func (c *Config) String(key, def string) string {
	if v := c.k.String(key); v != "" {
		return v
	}
	return def
}

// Int returns the value at key, or def when unset.
func (c *Config) Int(key string, def int) int {
	if c.k.Exists(key) {
		return c.k.Int(key)
	}
	return def
}

// DurationMS interprets the integer at key as milliseconds.
func (c *Config) DurationMS(key string, def time.Duration) time.Duration {
	if c.k.Exists(key) {
		return time.Duration(c.k.Int(key)) * time.Millisecond
	}
	return def
}
