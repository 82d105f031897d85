package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/prodcal/core/factory"
)

type recordSink struct {
	fetches int
	layouts int
	err     error
}

func (r *recordSink) RecordFetch(FetchEvent) error {
	r.fetches++
	return r.err
}

func (r *recordSink) RecordLayout(LayoutEvent) error {
	r.layouts++
	return nil
}

type fetchOnly struct{ n int }

func (f *fetchOnly) RecordFetch(FetchEvent) error { f.n++; return nil }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{err: errors.New("down")}
	s3 := &fetchOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordFetch(FetchEvent{Status: StatusOK}); err == nil {
		t.Fatalf("expected joined error")
	}
	if err := m.RecordLayout(LayoutEvent{View: "DAILY"}); err != nil {
		t.Fatalf("record layout: %v", err)
	}
	if s1.fetches != 1 || s2.fetches != 1 || s3.n != 1 {
		t.Fatalf("fetch not forwarded to every sink")
	}
	if s1.layouts != 1 || s2.layouts != 1 {
		t.Fatalf("layout not forwarded")
	}
}

func TestNewMetricsSink(t *testing.T) {
	_ = RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) {
		return &recordSink{}, nil
	})
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink got %T", s)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if _, ok := s.(*recordSink); !ok {
		t.Fatalf("expected recordSink got %T", s)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "test-record"}})
	if err != nil {
		t.Fatalf("multi: %v", err)
	}
	if m, ok := s.(*MultiSink); !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink of 2 got %T", s)
	}
	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatalf("expected unknown sink error")
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.PrometheusAddress != ":9100" {
		t.Fatalf("default address %q", c.PrometheusAddress)
	}
	c.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	if !c.HasSink("prometheus") || c.HasSink("influx") {
		t.Fatalf("HasSink mismatch")
	}
	if err := (Config{Sinks: []factory.ModuleConfig{{}}}).Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}
