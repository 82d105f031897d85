// Package cache stores encoded calendar views so repeated requests for the
// same view and schedule revision skip layout.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/factory"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// DefaultTTL applies when a factory config leaves ttl unset.
const DefaultTTL = 5 * time.Minute

// Key derives the cache key of a view. revision identifies the loaded
// schedule, so a new fetch never serves an older layout.
func Key(p calendar.Params, revision string) string {
	parts := []string{
		string(p.Mode),
		p.Date.Format(calendar.DateLayout),
		p.Machine,
		strings.Join(p.Machines, ","),
		strconv.Itoa(p.MachineOffset),
		revision,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("view:%s:%s", strings.ToLower(string(p.Mode)), hex.EncodeToString(sum[:])[:24])
}

var registry = factory.NewRegistry[Cache]()

func init() {
	_ = registry.Register("none", func(map[string]any) (Cache, error) { return Null{}, nil })
	_ = registry.Register("memory", func(conf map[string]any) (Cache, error) {
		var c struct {
			MaxEntries int `json:"max_entries"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMemory(c.MaxEntries), nil
	})
	_ = registry.Register("redis", func(conf map[string]any) (Cache, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRedis(context.Background(), c)
	})
}

// New creates the cache named by cfg.Type. An empty type disables caching.
func New(cfg factory.ModuleConfig) (Cache, error) {
	if cfg.Type == "" {
		return Null{}, nil
	}
	return registry.Create(cfg)
}

// Null never stores anything.
type Null struct{}

func (Null) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Null) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Null) Close() error                                             { return nil }
