// Package app wires the calendar service together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendarapi "github.com/kilianp07/prodcal/api/calendar"
	"github.com/kilianp07/prodcal/config"
	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/layout"
	coremetrics "github.com/kilianp07/prodcal/core/metrics"
	"github.com/kilianp07/prodcal/core/monitoring"
	"github.com/kilianp07/prodcal/core/runlog"
	"github.com/kilianp07/prodcal/core/schedule"
	"github.com/kilianp07/prodcal/core/visibility"
	"github.com/kilianp07/prodcal/infra/backend"
	"github.com/kilianp07/prodcal/infra/cache"
	"github.com/kilianp07/prodcal/infra/logger"
	inframetrics "github.com/kilianp07/prodcal/infra/metrics"
	inframon "github.com/kilianp07/prodcal/infra/monitoring"
	"github.com/kilianp07/prodcal/infra/mqtt"
	"github.com/kilianp07/prodcal/internal/eventbus"
)

// ViewPublisher is implemented by mqtt.Publisher and mqtt.MemoryPublisher.
type ViewPublisher interface {
	PublishView(ctx context.Context, v calendar.View) error
}

// Service serves the calendar API and keeps published views fresh.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	bus       *eventbus.Bus[schedule.Event]
	sink      coremetrics.MetricsSink
	store     runlog.Store
	cache     cache.Cache
	publisher ViewPublisher
	renderer  *Renderer
	handler   http.Handler
}

// NewRenderer builds the fetch and layout pipeline from cfg. events may be
// nil.
func NewRenderer(cfg *config.Config, events schedule.EventPublisher, c cache.Cache, sink coremetrics.MetricsSink) (*Renderer, error) {
	log := logger.New("renderer")
	engine, err := layout.NewEngine(cfg.Layout)
	if err != nil {
		return nil, err
	}
	tmpl, err := cfg.Backend.Request()
	if err != nil {
		return nil, fmt.Errorf("request template: %w", err)
	}
	client, err := backend.NewClient(backend.Options{
		BaseURL: cfg.Backend.URL,
		Path:    cfg.Backend.Path,
		Timeout: cfg.Backend.Timeout(),
		Auth:    cfg.Backend.OAuth,
	}, logger.New("backend"))
	if err != nil {
		return nil, err
	}
	loc := cfg.View.Location()
	loader := schedule.NewLoader(client, tmpl, loc, logger.New("loader"))
	loader.OriginHour = cfg.Backend.OriginHour
	loader.Events = events

	builder := calendar.NewBuilder(layout.NewMemo(engine, 0), loc)
	builder.WeekDays = cfg.View.WeekDays
	builder.MaxColumns = cfg.View.MaxColumns

	maxAge := cfg.View.RefreshInterval()
	if maxAge <= 0 {
		maxAge = cfg.Cache.TTL()
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Renderer{
		Loader:   loader,
		Builder:  builder,
		Cache:    c,
		TTL:      cfg.Cache.TTL(),
		MaxAge:   maxAge,
		Machines: cfg.View.Machines,
		Metrics:  sink,
		Log:      log,
	}, nil
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	if cfg.Sentry.Enabled() {
		mon, err := inframon.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		monitoring.Init(mon)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.NewStore(cfg.RunLog.Options())
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	c, err := cache.New(cfg.Cache.Module())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("view cache: %w", err)
	}

	var pub ViewPublisher = mqtt.NewMemoryPublisher(cfg.MQTT.TopicPrefix)
	if cfg.MQTT.Enabled {
		p, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			_ = c.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		pub = p
	}

	bus := eventbus.New[schedule.Event]()
	renderer, err := NewRenderer(cfg, bus, c, sink)
	if err != nil {
		_ = store.Close()
		_ = c.Close()
		return nil, err
	}
	handler := calendarapi.NewRouter(calendarapi.Options{
		Renderer: renderer,
		Store:    store,
		Machines: renderer.AvailableMachines,
		Location: cfg.View.Location(),
		Token:    cfg.API.Token,
		Log:      logger.New("api"),
	})
	return &Service{
		cfg:       cfg,
		log:       logg,
		bus:       bus,
		sink:      sink,
		store:     store,
		cache:     c,
		publisher: pub,
		renderer:  renderer,
		handler:   handler,
	}, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves the API and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	collected := inframetrics.StartEventCollector(ctx, s.bus, s.sink)
	recorded := StartRunRecorder(ctx, s.bus, s.store, logger.New("runlog"))
	if s.cfg.Metrics.HasSink("prometheus") {
		monitoring.Go("prom-server", func() {
			if err := inframetrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddress); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}
	if interval := s.cfg.View.RefreshInterval(); interval > 0 {
		monitoring.Go("refresh", func() { s.refreshLoop(ctx, interval) })
	}
	s.log.Infof("serving calendar API on %s", s.cfg.API.Address)
	err := calendarapi.Serve(ctx, s.cfg.API.Address, s.handler)
	<-collected
	<-recorded
	return err
}

func (s *Service) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.RefreshToday(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RefreshToday reloads today's schedule and publishes the daily view and
// one individual view per machine.
func (s *Service) RefreshToday(ctx context.Context) {
	loc := s.cfg.View.Location()
	today := visibility.StartOfDay(time.Now(), loc)
	daily, err := s.renderer.Refresh(ctx, calendar.Params{Date: today, Mode: calendar.ViewDaily})
	if err != nil {
		s.log.Warnf("refresh %s: %s", today.Format(calendar.DateLayout), schedule.HumanMessage(err))
		return
	}
	s.publish(ctx, daily.View)
	for _, m := range s.renderer.AvailableMachines() {
		out, err := s.renderer.Render(ctx, calendar.Params{Date: today, Mode: calendar.ViewIndividual, Machine: m})
		if err != nil {
			s.log.Warnf("render %s: %v", m, err)
			continue
		}
		s.publish(ctx, out.View)
	}
}

func (s *Service) publish(ctx context.Context, v calendar.View) {
	if err := s.publisher.PublishView(ctx, v); err != nil {
		s.log.Errorf("publish view: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if p, ok := s.publisher.(*mqtt.Publisher); ok {
		p.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	monitoring.Flush(2 * time.Second)
	cacheErr := s.cache.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return cacheErr
}
