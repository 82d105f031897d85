package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OriginKey is the only request field read or written by the loader.
const OriginKey = "start_datetime"

// Request is the opaque scheduler input. Only start_datetime is interpreted.
type Request map[string]any

// WithOrigin returns a copy of r with start_datetime set to t.
func (r Request) WithOrigin(t time.Time) Request {
	out := make(Request, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[OriginKey] = t.Format(time.RFC3339)
	return out
}

// Origin parses start_datetime. Values without a zone are read in loc.
func (r Request) Origin(loc *time.Location) (time.Time, error) {
	raw, ok := r[OriginKey]
	if !ok {
		return time.Time{}, ErrEmptyOrigin
	}
	if t, ok := raw.(time.Time); ok {
		return t, nil
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return time.Time{}, ErrEmptyOrigin
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", OriginKey, s)
}

// LoadRequest reads a request template from a .json, .yaml or .yml file.
func LoadRequest(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request template: %w", err)
	}
	return ParseRequest(data, filepath.Ext(path))
}

// ParseRequest decodes a template; ext selects the format.
func ParseRequest(data []byte, ext string) (Request, error) {
	req := Request{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode request template: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode request template: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported request template format %q", ext)
	}
	return req, nil
}
