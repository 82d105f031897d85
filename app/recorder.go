package app

import (
	"context"
	"time"

	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/logger"
	"github.com/kilianp07/prodcal/core/monitoring"
	"github.com/kilianp07/prodcal/core/runlog"
	"github.com/kilianp07/prodcal/core/schedule"
	inframetrics "github.com/kilianp07/prodcal/infra/metrics"
)

// RecordFrom converts a loader event into a run log record.
func RecordFrom(ev schedule.Event) (runlog.Record, bool) {
	switch e := ev.(type) {
	case schedule.LoadedEvent:
		return runlog.Record{
			Timestamp:  e.At,
			RequestID:  e.RequestID,
			View:       string(e.Params.Mode),
			Machine:    e.Params.Machine,
			Date:       e.Params.Date.Format(calendar.DateLayout),
			Origin:     e.Origin,
			Status:     runlog.StatusOK,
			Logs:       e.Logs,
			Blocks:     e.Blocks,
			Dropped:    e.Dropped,
			DurationMS: e.Duration.Milliseconds(),
		}, true
	case schedule.FailedEvent:
		return runlog.Record{
			Timestamp:  e.At,
			RequestID:  e.RequestID,
			View:       string(e.Params.Mode),
			Machine:    e.Params.Machine,
			Date:       e.Params.Date.Format(calendar.DateLayout),
			Origin:     e.Origin,
			Status:     runlog.StatusError,
			Error:      schedule.HumanMessage(e.Err),
			Logs:       []string{},
			DurationMS: e.Duration.Milliseconds(),
		}, true
	default:
		return runlog.Record{}, false
	}
}

// StartRunRecorder appends a record for every loader event and reports
// failed fetches to the monitor. The returned channel is closed once the
// recorder has stopped.
func StartRunRecorder(ctx context.Context, bus inframetrics.Subscriber, store runlog.Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
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
				if f, ok := ev.(schedule.FailedEvent); ok {
					monitoring.CaptureException(f.Err, map[string]string{
						"view":    string(f.Params.Mode),
						"machine": f.Params.Machine,
					})
				}
				rec, ok := RecordFrom(ev)
				if !ok {
					continue
				}
				appendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := store.Append(appendCtx, rec); err != nil {
					log.Errorf("append run record %s: %v", rec.RequestID, err)
				}
				cancel()
			}
		}
	}()
	return done
}
