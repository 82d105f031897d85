package metrics

import "time"

// Fetch statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// FetchEvent describes one completed schedule fetch.
type FetchEvent struct {
	RequestID string
	View      string
	Machine   string
	Status    string
	Blocks    int
	Dropped   int
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records schedule fetches for observability purposes.
type MetricsSink interface {
	RecordFetch(ev FetchEvent) error
}

// LayoutEvent describes one rendered calendar view.
type LayoutEvent struct {
	View    string
	Columns int
	Blocks  int
	// Utilization is the mean column utilization in [0,1].
	Utilization float64
	Time        time.Time
}

// LayoutRecorder is implemented by sinks able to record rendered views.
type LayoutRecorder interface {
	RecordLayout(ev LayoutEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordFetch(FetchEvent) error   { return nil }
func (NopSink) RecordLayout(LayoutEvent) error { return nil }
