// Package runlog persists one record per schedule fetch for the log console.
package runlog

import (
	"context"
	"fmt"
	"time"
)

// Record statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Record captures one schedule fetch.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	View       string    `json:"view"`
	Machine    string    `json:"machine,omitempty"`
	Date       string    `json:"date"`
	Origin     time.Time `json:"origin"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Logs       []string  `json:"logs"`
	Blocks     int       `json:"blocks"`
	Dropped    int       `json:"dropped"`
	DurationMS int64     `json:"duration_ms"`
}

// Query filters records. Zero values match everything. Limit keeps the
// most recent records.
type Query struct {
	Start     time.Time
	End       time.Time
	Status    string
	RequestID string
	Limit     int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Options configures NewStore.
type Options struct {
	// Backend is "jsonl" or "sqlite".
	Backend string
	Path    string
	// Rotation settings for the jsonl backend. MaxSizeMB 0 disables rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewStore opens the configured backend.
func NewStore(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "jsonl":
		if opts.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
		}
		return NewJSONLStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("unknown run log backend %q", opts.Backend)
	}
}
