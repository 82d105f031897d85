package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/prodcal/core/metrics"
)

// PromSink records schedule fetches and rendered views in Prometheus metrics.
type PromSink struct {
	fetches     *prometheus.CounterVec
	dropped     prometheus.Counter
	duration    *prometheus.HistogramVec
	blocks      *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_fetch_total",
			Help: "Schedule fetches by outcome",
		}, []string{"status", "view"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedule_items_dropped_total",
			Help: "Raw schedule items discarded during normalization",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schedule_fetch_duration_seconds",
			Help:    "Time spent waiting for the scheduler",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		blocks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calendar_blocks",
			Help: "Blocks in the last rendered view",
		}, []string{"view"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calendar_utilization_ratio",
			Help: "Mean column utilization of the last rendered view",
		}, []string{"view"}),
	}
	var err error
	if s.fetches, err = register(reg, s.fetches); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, s.dropped); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.blocks, err = register(reg, s.blocks); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordFetch counts the fetch and observes its duration.
func (s *PromSink) RecordFetch(ev coremetrics.FetchEvent) error {
	s.fetches.WithLabelValues(ev.Status, ev.View).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	if ev.Dropped > 0 {
		s.dropped.Add(float64(ev.Dropped))
	}
	return nil
}

// RecordLayout sets the gauges of the rendered view.
func (s *PromSink) RecordLayout(ev coremetrics.LayoutEvent) error {
	s.blocks.WithLabelValues(ev.View).Set(float64(ev.Blocks))
	s.utilization.WithLabelValues(ev.View).Set(ev.Utilization)
	return nil
}
