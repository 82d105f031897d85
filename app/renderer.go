package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	calendarapi "github.com/kilianp07/prodcal/api/calendar"
	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/logger"
	coremetrics "github.com/kilianp07/prodcal/core/metrics"
	"github.com/kilianp07/prodcal/core/schedule"
	"github.com/kilianp07/prodcal/infra/cache"
)

// ScheduleLoader is implemented by schedule.Loader.
type ScheduleLoader interface {
	Load(ctx context.Context, p calendar.Params) schedule.Result
	Last() (schedule.Result, bool)
}

type loadedDay struct {
	res schedule.Result
	at  time.Time
}

// Renderer loads the schedule of a day once per MaxAge and lays out views
// from it. Encoded views are cached per schedule load.
type Renderer struct {
	Loader  ScheduleLoader
	Builder *calendar.Builder
	Cache   cache.Cache
	TTL     time.Duration
	// MaxAge is how long a loaded day is reused. Zero reloads on every call.
	MaxAge time.Duration
	// Machines is the default daily selection.
	Machines []string
	Metrics  coremetrics.MetricsSink
	Log      logger.Logger

	now func() time.Time

	mu   sync.Mutex
	days map[string]loadedDay
}

// Render implements calendarapi.Renderer.
func (r *Renderer) Render(ctx context.Context, p calendar.Params) (calendarapi.Rendered, error) {
	if p.Mode == calendar.ViewDaily && len(p.Machines) == 0 {
		p.Machines = r.Machines
	}
	res, err := r.schedule(ctx, p, false)
	if err != nil {
		return calendarapi.Rendered{}, err
	}
	return r.render(ctx, res, p)
}

// Refresh reloads the day of p before rendering it.
func (r *Renderer) Refresh(ctx context.Context, p calendar.Params) (calendarapi.Rendered, error) {
	if p.Mode == calendar.ViewDaily && len(p.Machines) == 0 {
		p.Machines = r.Machines
	}
	res, err := r.schedule(ctx, p, true)
	if err != nil {
		return calendarapi.Rendered{}, err
	}
	return r.render(ctx, res, p)
}

// AvailableMachines returns the configured machines, or those of the last
// loaded schedule when none are configured.
func (r *Renderer) AvailableMachines() []string {
	if len(r.Machines) > 0 {
		return append([]string(nil), r.Machines...)
	}
	if res, ok := r.Loader.Last(); ok {
		return calendar.MachineIDs(res.Blocks)
	}
	return []string{}
}

// schedule returns the loaded schedule for the day of p. Loads are
// serialized so concurrent requests never supersede each other.
func (r *Renderer) schedule(ctx context.Context, p calendar.Params, force bool) (schedule.Result, error) {
	day := p.Date.Format(calendar.DateLayout)
	now := r.clock()()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.days == nil {
		r.days = make(map[string]loadedDay)
	}
	if d, ok := r.days[day]; ok && !force && now.Sub(d.at) < r.MaxAge {
		return d.res, nil
	}
	res := r.Loader.Load(ctx, p)
	if res.Err != nil {
		return res, res.Err
	}
	for k, d := range r.days {
		if now.Sub(d.at) >= r.MaxAge {
			delete(r.days, k)
		}
	}
	r.days[day] = loadedDay{res: res, at: now}
	return res, nil
}

func (r *Renderer) render(ctx context.Context, res schedule.Result, p calendar.Params) (calendarapi.Rendered, error) {
	log := r.logger()
	c := r.Cache
	if c == nil {
		c = cache.Null{}
	}
	key := cache.Key(p, res.RequestID)
	if raw, ok, err := c.Get(ctx, key); err != nil {
		log.Warnf("view cache get: %v", err)
	} else if ok {
		var v calendar.View
		if err := json.Unmarshal(raw, &v); err == nil {
			return calendarapi.Rendered{View: v, Raw: raw, RequestID: res.RequestID, Cached: true}, nil
		}
		log.Warnf("discarding undecodable cached view %s", key)
	}

	v := r.Builder.Build(res.Blocks, p)
	raw, err := json.Marshal(v)
	if err != nil {
		return calendarapi.Rendered{}, err
	}
	if err := c.Set(ctx, key, raw, r.TTL); err != nil {
		log.Warnf("view cache set: %v", err)
	}
	r.recordLayout(v)
	return calendarapi.Rendered{View: v, Raw: raw, RequestID: res.RequestID}, nil
}

func (r *Renderer) recordLayout(v calendar.View) {
	rec, ok := r.Metrics.(coremetrics.LayoutRecorder)
	if !ok {
		return
	}
	ev := coremetrics.LayoutEvent{View: string(v.Mode), Columns: len(v.Columns), Blocks: v.BlockCount(), Time: r.clock()()}
	if len(v.Columns) > 0 {
		utils := make([]float64, len(v.Columns))
		for i, c := range v.Columns {
			utils[i] = c.Stats.Utilization
		}
		ev.Utilization = stat.Mean(utils, nil)
	}
	if err := rec.RecordLayout(ev); err != nil {
		r.logger().Warnf("record layout: %v", err)
	}
}

func (r *Renderer) logger() logger.Logger {
	if r.Log == nil {
		return logger.NopLogger{}
	}
	return r.Log
}

func (r *Renderer) clock() func() time.Time {
	if r.now == nil {
		return time.Now
	}
	return r.now
}
