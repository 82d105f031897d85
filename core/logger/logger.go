// Package logger defines the logging interface used by the core packages.
package logger

import (
	"fmt"
	"sync"
)

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// Entry is a message captured by Recorder.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// Recorder keeps every logged entry in memory. It is meant for tests.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level, msg string, fields map[string]any) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: fields})
	r.mu.Unlock()
}

func (r *Recorder) Debugf(format string, args ...any) {
	r.add("debug", fmt.Sprintf(format, args...), nil)
}
func (r *Recorder) Debugw(msg string, fields map[string]any) {
	r.add("debug", msg, fields)
}
func (r *Recorder) Infof(format string, args ...any) {
	r.add("info", fmt.Sprintf(format, args...), nil)
}
func (r *Recorder) Warnf(format string, args ...any) {
	r.add("warn", fmt.Sprintf(format, args...), nil)
}
func (r *Recorder) Errorf(format string, args ...any) {
	r.add("error", fmt.Sprintf(format, args...), nil)
}

// Entries returns a copy of the captured entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Messages returns the captured messages logged with msg.
func (r *Recorder) Messages(msg string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}
