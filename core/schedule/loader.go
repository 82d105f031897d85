// Package schedule fetches the raw schedule from the scheduler service and
// turns it into normalized blocks.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/logger"
	"github.com/kilianp07/prodcal/core/model"
	"github.com/kilianp07/prodcal/core/normalize"
)

// DefaultOriginHour is the hour of the selected day used as schedule origin.
const DefaultOriginHour = 8

// Fetcher posts a request to the scheduler.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (normalize.Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (normalize.Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (normalize.Response, error) {
	return f(ctx, req)
}

// Result is the outcome of one load. Blocks is never nil; it is empty when
// Err is set.
type Result struct {
	RequestID string
	Params    calendar.Params
	Origin    time.Time
	Blocks    []model.Block
	Logs      []string
	Summary   normalize.RawSummary
	Stats     normalize.Stats
	Err       error
}

// Loader runs fetches for the calendar. When loads overlap, only the most
// recently started one yields a usable result; older ones return
// ErrSuperseded. A load commits its result and event under commitMu and only
// while no newer load has started, so Last and the published events never
// go back to older parameters.
type Loader struct {
	Fetcher    Fetcher
	Template   Request
	OriginHour int
	Location   *time.Location
	Log        logger.Logger
	Events     EventPublisher

	gen      atomic.Uint64
	commitMu sync.Mutex
	last     atomic.Pointer[Result]
	now      func() time.Time
}

// NewLoader returns a Loader with the default origin hour.
func NewLoader(f Fetcher, template Request, loc *time.Location, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NopLogger{}
	}
	if template == nil {
		template = Request{}
	}
	return &Loader{Fetcher: f, Template: template, OriginHour: DefaultOriginHour, Location: loc, Log: log}
}

// OriginFor returns the schedule origin for a calendar date.
func (l *Loader) OriginFor(date time.Time) time.Time {
	loc := l.Location
	if loc == nil {
		loc = time.Local
	}
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), l.OriginHour, 0, 0, 0, loc)
}

// Load fetches and normalizes the schedule for p.
func (l *Loader) Load(ctx context.Context, p calendar.Params) Result {
	gen := l.gen.Add(1)
	log := l.logger()
	now := l.clock()
	started := now()
	res := Result{RequestID: uuid.NewString(), Params: p, Blocks: []model.Block{}}
	res.Origin = l.OriginFor(p.Date)

	req := l.Template.WithOrigin(res.Origin)
	resp, err := l.Fetcher.Fetch(ctx, req)
	elapsed := now().Sub(started)
	if err != nil {
		res.Err = err
		committed := l.commit(gen, func() {
			log.Warnf("schedule fetch %s failed: %v", res.RequestID, err)
			l.publish(FailedEvent{RequestID: res.RequestID, Params: p, Origin: res.Origin, Err: err, Duration: elapsed, At: now()})
		})
		if !committed {
			return l.superseded(res)
		}
		return res
	}
	if l.gen.Load() != gen {
		return l.superseded(res)
	}

	blocks, st := normalize.NormalizeResponse(resp, res.Origin)
	for _, d := range st.Drops {
		log.Debugw("dropped raw item", map[string]any{
			"request_id": res.RequestID,
			"index":      d.Index,
			"type":       d.Type,
			"machine":    d.Machine,
			"reason":     d.Reason,
		})
	}
	res.Blocks = blocks
	res.Stats = st
	res.Summary = resp.Summary
	res.Logs = resp.Logs
	if res.Logs == nil {
		res.Logs = []string{}
	}
	committed := l.commit(gen, func() {
		stored := res
		l.last.Store(&stored)
		log.Infof("schedule %s loaded: %d blocks, %d dropped", res.RequestID, len(blocks), st.Dropped())
		l.publish(LoadedEvent{
			RequestID: res.RequestID,
			Params:    p,
			Origin:    res.Origin,
			Blocks:    len(blocks),
			Dropped:   st.Dropped(),
			Logs:      res.Logs,
			Duration:  elapsed,
			At:        now(),
		})
	})
	if !committed {
		return l.superseded(res)
	}
	return res
}

// commit runs fn under commitMu when gen is still the newest load.
func (l *Loader) commit(gen uint64, fn func()) bool {
	l.commitMu.Lock()
	defer l.commitMu.Unlock()
	if l.gen.Load() != gen {
		return false
	}
	fn()
	return true
}

func (l *Loader) superseded(res Result) Result {
	l.logger().Debugf("discarding schedule %s: superseded", res.RequestID)
	res.Err = ErrSuperseded
	res.Blocks = []model.Block{}
	res.Logs = nil
	res.Stats = normalize.Stats{}
	res.Summary = normalize.RawSummary{}
	return res
}

// Last returns the most recent successful, non-superseded result.
func (l *Loader) Last() (Result, bool) {
	r := l.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

func (l *Loader) publish(e Event) {
	if l.Events != nil {
		l.Events.Publish(e)
	}
}

func (l *Loader) logger() logger.Logger {
	if l.Log == nil {
		return logger.NopLogger{}
	}
	return l.Log
}

func (l *Loader) clock() func() time.Time {
	if l.now == nil {
		return time.Now
	}
	return l.now
}
