package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corecal "github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/runlog"
	"github.com/kilianp07/prodcal/core/schedule"
)

type stubRenderer struct {
	got corecal.Params
	err error
}

func (s *stubRenderer) Render(_ context.Context, p corecal.Params) (Rendered, error) {
	s.got = p
	if s.err != nil {
		return Rendered{}, s.err
	}
	start := p.Date
	v := corecal.View{Mode: p.Mode, Date: start.Format(corecal.DateLayout), Start: start, End: start.Add(24 * time.Hour), PixelsPerHour: 80, Columns: []corecal.Column{}}
	raw, _ := json.Marshal(v)
	return Rendered{View: v, Raw: raw, RequestID: "req-1"}, nil
}

type memStore struct{ recs []runlog.Record }

func (m *memStore) Append(_ context.Context, r runlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q runlog.Query) ([]runlog.Record, error) {
	var out []runlog.Record
	for _, r := range m.recs {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

var now = time.Date(2024, 1, 25, 10, 30, 0, 0, time.UTC)

func newTestRouter(r Renderer, store runlog.Store, token string) http.Handler {
	return NewRouter(Options{
		Renderer: r,
		Store:    store,
		Machines: func() []string { return []string{"L1", "L2"} },
		Location: time.UTC,
		Token:    token,
		Now:      func() time.Time { return now },
	})
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCalendarDailyToday(t *testing.T) {
	r := &stubRenderer{}
	rr := get(t, newTestRouter(r, nil, ""), "/api/calendar")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		View         corecal.View `json:"view"`
		RequestID    string       `json:"request_id"`
		NowOffset    *float64     `json:"now_offset_px"`
		ScrollOffset float64      `json:"scroll_offset_px"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, corecal.ViewDaily, r.got.Mode)
	assert.Equal(t, "2024-01-25", r.got.Date.Format(corecal.DateLayout))
	assert.Equal(t, "req-1", resp.RequestID)
	require.NotNil(t, resp.NowOffset)
	assert.Equal(t, 840.0, *resp.NowOffset)
	assert.Equal(t, 640.0, resp.ScrollOffset)
}

func TestCalendarOtherDayHasNoIndicator(t *testing.T) {
	rr := get(t, newTestRouter(&stubRenderer{}, nil, ""), "/api/calendar?date=2024-01-20")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "now_offset_px")
	assert.Equal(t, 0.0, resp["scroll_offset_px"])
}

func TestCalendarParams(t *testing.T) {
	r := &stubRenderer{}
	rr := get(t, newTestRouter(r, nil, ""), "/api/calendar?date=2024-01-22&view=individual&machine=L2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, corecal.ViewIndividual, r.got.Mode)
	assert.Equal(t, "L2", r.got.Machine)

	rr = get(t, newTestRouter(r, nil, ""), "/api/calendar?machines=L3,%20L1&offset=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"L3", "L1"}, r.got.Machines)
	assert.Equal(t, 1, r.got.MachineOffset)
}

func TestCalendarToggleMachine(t *testing.T) {
	r := &stubRenderer{}
	h := newTestRouter(r, nil, "")
	tests := []struct {
		target string
		want   []string
	}{
		{"/api/calendar?toggle=L1", []string{"L2"}},
		{"/api/calendar?toggle=L9", []string{"L1", "L2", "L9"}},
		{"/api/calendar?machines=L3,L1&toggle=L3", []string{"L1"}},
		{"/api/calendar?machines=L3&toggle=L1", []string{"L3", "L1"}},
	}
	for _, tt := range tests {
		rr := get(t, h, tt.target)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", tt.target, rr.Code)
		}
		assert.Equal(t, tt.want, r.got.Machines, tt.target)
	}
}

func TestCalendarBadRequest(t *testing.T) {
	h := newTestRouter(&stubRenderer{}, nil, "")
	for _, target := range []string{
		"/api/calendar?date=25-01-2024",
		"/api/calendar?view=MONTHLY",
		"/api/calendar?view=INDIVIDUAL",
		"/api/calendar?offset=x",
		"/api/calendar?offset=-1",
	} {
		rr := get(t, h, target)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, rr.Code)
		}
	}
}

func TestCalendarFetchErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{&schedule.ValidationError{Details: []schedule.ValidationDetail{{Loc: []any{"body", "x"}, Msg: "bad"}}}, http.StatusBadGateway, "validation error:\nbody.x: bad"},
		{&schedule.StatusError{Status: 500, Message: "boom"}, http.StatusBadGateway, "boom"},
		{schedule.ErrSuperseded, http.StatusConflict, "newer request"},
		{errors.New("dial tcp: refused"), http.StatusBadGateway, "could not reach the scheduler"},
	}
	for _, tt := range tests {
		rr := get(t, newTestRouter(&stubRenderer{err: tt.err}, nil, ""), "/api/calendar")
		assert.Equal(t, tt.status, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Contains(t, body["error"], tt.msg)
	}
}

func TestLogsAuthAndFilters(t *testing.T) {
	store := &memStore{}
	_ = store.Append(context.Background(), runlog.Record{RequestID: "a", Status: runlog.StatusOK, Timestamp: now})
	_ = store.Append(context.Background(), runlog.Record{RequestID: "b", Status: runlog.StatusError, Timestamp: now})
	h := newTestRouter(&stubRenderer{}, store, "tok")

	rr := get(t, h, "/api/schedule/logs")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	for _, header := range []string{"Bearer tok2", "Bearer to", "tok", "bearer tok"} {
		rr = get(t, h, "/api/schedule/logs", "Authorization", header)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401 got %d", header, rr.Code)
		}
	}

	rr = get(t, h, "/api/schedule/logs?status=error", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var recs []runlog.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].RequestID)

	rr = get(t, h, "/api/schedule/logs?start=yesterday", "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogsEmptyIsArray(t *testing.T) {
	rr := get(t, newTestRouter(&stubRenderer{}, &memStore{}, ""), "/api/schedule/logs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestMachinesAndHealth(t *testing.T) {
	h := newTestRouter(&stubRenderer{}, nil, "")
	rr := get(t, h, "/api/machines")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"machines":["L1","L2"]}`, rr.Body.String())

	rr = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, h, "/api/schedule/logs")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
