package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/prodcal/core/metrics"
	"github.com/kilianp07/prodcal/infra/logger"
)

// InfluxSink writes fetch and layout points to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// FetchPoint builds the schedule_fetch point for ev.
func FetchPoint(ev coremetrics.FetchEvent) *write.Point {
	p := write.NewPointWithMeasurement("schedule_fetch").
		AddTag("status", ev.Status).
		AddTag("view", ev.View)
	if ev.Machine != "" {
		p.AddTag("machine", ev.Machine)
	}
	return p.AddField("request_id", ev.RequestID).
		AddField("blocks", ev.Blocks).
		AddField("dropped", ev.Dropped).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
}

// LayoutPoint builds the calendar_layout point for ev.
func LayoutPoint(ev coremetrics.LayoutEvent) *write.Point {
	return write.NewPointWithMeasurement("calendar_layout").
		AddTag("view", ev.View).
		AddField("columns", ev.Columns).
		AddField("blocks", ev.Blocks).
		AddField("utilization", round3(ev.Utilization)).
		SetTime(ev.Time)
}

// RecordFetch writes a schedule_fetch point.
func (s *InfluxSink) RecordFetch(ev coremetrics.FetchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, FetchPoint(ev))
}

// RecordLayout writes a calendar_layout point.
func (s *InfluxSink) RecordLayout(ev coremetrics.LayoutEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, LayoutPoint(ev))
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
