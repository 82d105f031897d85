package schedule

import (
	"time"

	"github.com/kilianp07/prodcal/core/calendar"
)

// Event is published by the Loader after every non-superseded load.
type Event interface {
	eventName() string
}

// LoadedEvent reports a successful load.
type LoadedEvent struct {
	RequestID string
	Params    calendar.Params
	Origin    time.Time
	Blocks    int
	Dropped   int
	Logs      []string
	Duration  time.Duration
	At        time.Time
}

// FailedEvent reports a load that returned an error.
type FailedEvent struct {
	RequestID string
	Params    calendar.Params
	Origin    time.Time
	Err       error
	Duration  time.Duration
	At        time.Time
}

func (LoadedEvent) eventName() string { return "loaded" }
func (FailedEvent) eventName() string { return "failed" }

// EventPublisher receives loader events. eventbus.Bus[Event] implements it.
type EventPublisher interface {
	Publish(Event)
}
