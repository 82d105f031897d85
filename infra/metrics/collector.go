package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/prodcal/core/metrics"
	"github.com/kilianp07/prodcal/core/schedule"
	"github.com/kilianp07/prodcal/infra/logger"
)

// Subscriber is the part of eventbus.Bus used by the collector.
type Subscriber interface {
	Subscribe() <-chan schedule.Event
	Unsubscribe(<-chan schedule.Event)
}

// FetchEventFrom converts a loader event into a FetchEvent. ok is false for
// unknown events.
func FetchEventFrom(ev schedule.Event) (coremetrics.FetchEvent, bool) {
	switch e := ev.(type) {
	case schedule.LoadedEvent:
		return coremetrics.FetchEvent{
			RequestID: e.RequestID,
			View:      string(e.Params.Mode),
			Machine:   e.Params.Machine,
			Status:    coremetrics.StatusOK,
			Blocks:    e.Blocks,
			Dropped:   e.Dropped,
			Duration:  e.Duration,
			Time:      e.At,
		}, true
	case schedule.FailedEvent:
		return coremetrics.FetchEvent{
			RequestID: e.RequestID,
			View:      string(e.Params.Mode),
			Machine:   e.Params.Machine,
			Status:    coremetrics.StatusError,
			Duration:  e.Duration,
			Time:      e.At,
		}, true
	default:
		return coremetrics.FetchEvent{}, false
	}
}

// StartEventCollector subscribes to the bus and records a fetch metric for
// every loader event. It stops when ctx is canceled or the bus is closed.
// The returned channel is closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus Subscriber, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				fe, ok := FetchEventFrom(ev)
				if !ok {
					continue
				}
				if err := sink.RecordFetch(fe); err != nil {
					log.Warnf("record fetch %s: %v", fe.RequestID, err)
				}
			}
		}
	}()
	return done
}
