package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/prodcal/app"
	"github.com/kilianp07/prodcal/config"
	"github.com/kilianp07/prodcal/core/factory"
	"github.com/kilianp07/prodcal/core/runlog"
	"github.com/kilianp07/prodcal/test/util"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestServiceServesCalendarAndRecordsRuns(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"schedule": [
				{"machine": "L1", "type": "PRODUCTION", "id": "P1", "start": 0, "end": 3, "ot_ids": ["OT1"]},
				{"machine": "L1", "type": "SETUP", "start": 3, "end": 4, "format": "B"},
				{"machine": "L2", "type": "OT", "id": "OT2", "start": 1, "end": 2, "qty": 10},
				{"machine": "L2", "type": "MAINTENANCE", "start": 1, "end": 2}
			],
			"summary": {"atrasos": [{"ot_id": "OT1", "atraso_horas": 2}]},
			"logs": ["solver finished"]
		}`))
	}))
	defer backend.Close()

	cfg := &config.Config{}
	cfg.Backend.URL = backend.URL
	cfg.View.Timezone = "UTC"
	cfg.API.Address = freeAddr(t)
	cfg.API.Token = "tok"
	cfg.RunLog.Backend = "sqlite"
	cfg.RunLog.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.Metrics.PrometheusAddress = freeAddr(t)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	base := "http://" + cfg.API.Address
	readyCtx, readyCancel := context.WithTimeout(ctx, util.HTTPReadyTimeout)
	defer readyCancel()
	if err := util.WaitForHTTP(readyCtx, base+"/healthz"); err != nil {
		t.Fatalf("api not ready: %v", err)
	}

	resp, err := http.Get(base + "/api/calendar?date=2024-01-25")
	if err != nil {
		t.Fatalf("get calendar: %v", err)
	}
	var body struct {
		View struct {
			Columns []struct {
				MachineID string            `json:"machine_id"`
				Blocks    []json.RawMessage `json:"blocks"`
			} `json:"columns"`
		} `json:"view"`
		RequestID string `json:"request_id"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("calendar: status %d err %v", resp.StatusCode, err)
	}
	if len(body.View.Columns) != 2 || len(body.View.Columns[0].Blocks) != 2 || len(body.View.Columns[1].Blocks) != 1 {
		t.Fatalf("unexpected columns %+v", body.View.Columns)
	}

	metricsCtx, metricsCancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer metricsCancel()
	if err := util.WaitForMetric(metricsCtx, fmt.Sprintf("http://%s/metrics", cfg.Metrics.PrometheusAddress), `schedule_fetch_total{status="ok"`); err != nil {
		t.Fatalf("metric: %v", err)
	}

	var recs []runlog.Record
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, base+"/api/schedule/logs", nil)
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			_ = json.NewDecoder(resp.Body).Decode(&recs)
			resp.Body.Close()
		}
		if len(recs) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one run record, got %d", len(recs))
	}
	if recs[0].RequestID != body.RequestID || recs[0].Dropped != 1 || recs[0].Blocks != 3 {
		t.Fatalf("unexpected record %+v", recs[0])
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}
}
