// Package config loads the service configuration from a YAML or JSON file
// with K_ prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/prodcal/core/layout"
	"github.com/kilianp07/prodcal/core/metrics"
	"github.com/kilianp07/prodcal/infra/mqtt"
)

type Config struct {
	Backend BackendConfig  `json:"backend"`
	Layout  layout.Config  `json:"layout"`
	View    ViewConfig     `json:"view"`
	API     APIConfig      `json:"api"`
	RunLog  RunLogConfig   `json:"runlog"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Cache   CacheConfig    `json:"cache"`
	Sentry  SentryConfig   `json:"sentry"`
}

// Load reads path and applies environment overrides such as
// K_BACKEND__URL=http://scheduler:8000. An empty path loads defaults and
// the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Backend.SetDefaults()
	c.Layout.SetDefaults()
	c.View.SetDefaults()
	c.API.SetDefaults()
	c.RunLog.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Cache.SetDefaults()
}

// Validate checks every section and reports all failures at once.
func (c Config) Validate() error {
	return errors.Join(
		c.Backend.Validate(),
		c.Layout.Validate(),
		c.View.Validate(),
		c.RunLog.Validate(),
		c.Metrics.Validate(),
		c.MQTT.Validate(),
		c.Cache.Validate(),
	)
}
