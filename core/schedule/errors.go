package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSuperseded marks the result of a load that a newer load replaced.
	ErrSuperseded = errors.New("schedule request superseded")
	// ErrEmptyOrigin is returned for requests without a start_datetime.
	ErrEmptyOrigin = errors.New("request has no start_datetime")
)

// StatusError is a non-2xx answer of the scheduler.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// ValidationDetail is one entry of a 422 detail list.
type ValidationDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
}

func (d ValidationDetail) String() string {
	parts := make([]string, len(d.Loc))
	for i, l := range d.Loc {
		parts[i] = fmt.Sprint(l)
	}
	return strings.Join(parts, ".") + ": " + d.Msg
}

// ValidationError is a 422 answer carrying a detail payload.
type ValidationError struct {
	Details []ValidationDetail
	// Raw holds the detail when it is not a list.
	Raw string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation error:")
	if len(e.Details) == 0 && e.Raw != "" {
		b.WriteString("\n")
		b.WriteString(e.Raw)
	}
	for _, d := range e.Details {
		b.WriteString("\n")
		b.WriteString(d.String())
	}
	return b.String()
}

// ParseErrorBody builds the error for a failed scheduler call from its
// status code and body.
func ParseErrorBody(status int, body []byte) error {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = "failed to fetch schedule"
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &StatusError{Status: status, Message: msg}
	}
	detail := strings.TrimSpace(string(payload.Detail))
	if status == http.StatusUnprocessableEntity && detail != "" && detail != "null" {
		var list []ValidationDetail
		if err := json.Unmarshal(payload.Detail, &list); err == nil {
			return &ValidationError{Details: list}
		}
		return &ValidationError{Raw: detail}
	}
	var s string
	if detail != "" && json.Unmarshal(payload.Detail, &s) == nil && s != "" {
		msg = s
	} else if payload.Message != "" {
		msg = payload.Message
	}
	return &StatusError{Status: status, Message: msg}
}

// HumanMessage returns the text shown to users for a load error.
func HumanMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	var serr *StatusError
	switch {
	case errors.Is(err, ErrSuperseded):
		return "a newer request replaced this one"
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &serr):
		return serr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "the scheduler did not answer in time"
	case errors.Is(err, ErrEmptyOrigin):
		return err.Error()
	default:
		return "could not reach the scheduler: " + err.Error()
	}
}
