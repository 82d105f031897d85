package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prodcal/auth"
	"github.com/kilianp07/prodcal/core/schedule"
)

func TestFetchDecodesResponse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/schedule", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"schedule":[{"machine":"L1","type":"OT","id":"OT1","start":0,"end":2}],"logs":["ok"]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)
	origin := time.Date(2024, 1, 25, 8, 0, 0, 0, time.UTC)
	resp, err := c.Fetch(context.Background(), schedule.Request{"horizon": 7}.WithOrigin(origin))
	require.NoError(t, err)
	require.Len(t, resp.Schedule, 1)
	assert.Equal(t, "OT1", resp.Schedule[0].ID)
	assert.Equal(t, []string{"ok"}, resp.Logs)
	assert.Equal(t, "2024-01-25T08:00:00Z", got[schedule.OriginKey])
	assert.EqualValues(t, 7, got["horizon"])
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"validation", http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","start_datetime"],"msg":"field required","type":"missing"}]}`,
			func(t *testing.T, err error) {
				var verr *schedule.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "validation error:\nbody.start_datetime: field required", verr.Error())
			}},
		{"status", http.StatusInternalServerError, `{"detail":"solver crashed"}`,
			func(t *testing.T, err error) {
				var serr *schedule.StatusError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, 500, serr.Status)
				assert.Contains(t, serr.Message, "solver crashed")
			}},
		{"not json", http.StatusBadGateway, `<html>`,
			func(t *testing.T, err error) {
				var serr *schedule.StatusError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, 502, serr.Status)
			}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c, err := NewClient(Options{BaseURL: srv.URL}, nil)
			require.NoError(t, err)
			_, err = c.Fetch(context.Background(), schedule.Request{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), schedule.Request{})
	assert.Error(t, err)
}

func TestFetchRefreshesTokenOn401(t *testing.T) {
	var tokens atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"t%d","token_type":"bearer","expires_in":3600}`, n)
	}))
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"schedule":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{BaseURL: srv.URL, Auth: auth.Conf{ClientID: "id", AuthURL: tokenSrv.URL}}, nil)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), schedule.Request{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, tokens.Load())
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Options{}, nil)
	assert.Error(t, err)
	c, err := NewClient(Options{BaseURL: "http://sched:8000", Path: "solve"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://sched:8000/solve", c.URL())
}
