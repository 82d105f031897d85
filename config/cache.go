package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/prodcal/core/factory"
)

// CacheConfig selects the rendered view cache: "memory", "redis" or "none".
// Conf is passed to the cache factory, e.g. addr, db and key_prefix for
// redis.
type CacheConfig struct {
	Type       string         `json:"type"`
	TTLSeconds int            `json:"ttl_seconds"`
	Conf       map[string]any `json:"conf"`
}

func (c *CacheConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "memory"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 300
	}
}

func (c CacheConfig) Validate() error {
	switch c.Type {
	case "memory", "redis", "none":
		return nil
	default:
		return fmt.Errorf("cache: unknown type %s", c.Type)
	}
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// Module converts the section for cache.New.
func (c CacheConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}
