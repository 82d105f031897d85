// Package calendar exposes rendered calendar views and the fetch run log
// over HTTP.
package calendar

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	corecal "github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/logger"
	"github.com/kilianp07/prodcal/core/runlog"
	"github.com/kilianp07/prodcal/core/schedule"
	"github.com/kilianp07/prodcal/core/visibility"
)

// Rendered is a laid out view and its JSON encoding.
type Rendered struct {
	View      corecal.View
	Raw       []byte
	RequestID string
	Cached    bool
}

// Renderer fetches the schedule behind p and lays it out.
type Renderer interface {
	Render(ctx context.Context, p corecal.Params) (Rendered, error)
}

// Options wires the handlers.
type Options struct {
	Renderer Renderer
	Store    runlog.Store
	// Machines returns the machines offered for selection.
	Machines func() []string
	Location *time.Location
	// Token protects the log endpoint when non-empty.
	Token string
	Log   logger.Logger
	Now   func() time.Time
}

type handler struct {
	opts Options
}

// NewRouter returns the API routes.
func NewRouter(opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = logger.NopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Machines == nil {
		opts.Machines = func() []string { return []string{} }
	}
	h := &handler{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar", h.calendar)
		r.Get("/machines", h.machines)
		r.With(bearer(opts.Token)).Get("/schedule/logs", h.logs)
	})
	return r
}

type calendarResponse struct {
	View      json.RawMessage `json:"view"`
	RequestID string          `json:"request_id"`
	Cached    bool            `json:"cached"`
	// NowOffset is only set for a daily view of the current day.
	NowOffset    *float64 `json:"now_offset_px,omitempty"`
	ScrollOffset float64  `json:"scroll_offset_px"`
}

func (h *handler) calendar(w http.ResponseWriter, r *http.Request) {
	p, err := h.params(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.opts.Renderer.Render(r.Context(), p)
	switch {
	case errors.Is(err, schedule.ErrSuperseded):
		writeError(w, http.StatusConflict, schedule.HumanMessage(err))
		return
	case err != nil:
		h.opts.Log.Warnf("render %s %s: %v", p.Mode, p.Date.Format(corecal.DateLayout), err)
		writeError(w, http.StatusBadGateway, schedule.HumanMessage(err))
		return
	}
	resp := calendarResponse{View: out.Raw, RequestID: out.RequestID, Cached: out.Cached}
	if off, ok := out.View.NowOffset(h.opts.Now()); ok {
		resp.NowOffset = &off
		resp.ScrollOffset = corecal.ScrollOffset(off)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) params(r *http.Request) (corecal.Params, error) {
	q := r.URL.Query()
	mode, err := corecal.ParseViewMode(q.Get("view"))
	if err != nil {
		return corecal.Params{}, err
	}
	p := corecal.Params{Mode: mode, Machine: q.Get("machine")}
	if s := q.Get("date"); s != "" {
		if p.Date, err = corecal.ParseDate(s, h.opts.Location); err != nil {
			return corecal.Params{}, err
		}
	} else {
		now := h.opts.Now().In(h.opts.Location)
		p.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.opts.Location)
	}
	if s := q.Get("offset"); s != "" {
		if p.MachineOffset, err = strconv.Atoi(s); err != nil {
			return corecal.Params{}, errors.New("offset must be an integer")
		}
	}
	if s := q.Get("machines"); s != "" {
		for _, m := range strings.Split(s, ",") {
			if m = strings.TrimSpace(m); m != "" {
				p.Machines = append(p.Machines, m)
			}
		}
	}
	if id := strings.TrimSpace(q.Get("toggle")); id != "" {
		base := p.Machines
		if base == nil {
			base = h.opts.Machines()
		}
		p.Machines = visibility.ToggleMachine(base, id)
	}
	return p, p.Validate()
}

func (h *handler) machines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"machines": h.opts.Machines()})
}

func (h *handler) logs(w http.ResponseWriter, r *http.Request) {
	if h.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run log disabled")
		return
	}
	q := runlog.Query{Status: r.URL.Query().Get("status"), RequestID: r.URL.Query().Get("request_id")}
	var err error
	if s := r.URL.Query().Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	records, err := h.opts.Store.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// bearer requires "Authorization: Bearer <token>" when token is non-empty.
func bearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte("Bearer "+token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
