package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/prodcal/auth"
	"github.com/kilianp07/prodcal/core/schedule"
)

// BackendConfig points at the scheduling service.
type BackendConfig struct {
	URL            string `json:"url"`
	Path           string `json:"path"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RequestFile is a JSON or YAML request template. Its start_datetime
	// is replaced on every fetch.
	RequestFile string    `json:"request_file"`
	OriginHour  int       `json:"origin_hour"`
	OAuth       auth.Conf `json:"oauth"`
}

func (c *BackendConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8000"
	}
	if c.Path == "" {
		c.Path = "/api/schedule"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.OriginHour == 0 {
		c.OriginHour = schedule.DefaultOriginHour
	}
}

func (c BackendConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.OriginHour < 0 || c.OriginHour > 23 {
		return fmt.Errorf("backend.origin_hour must be within 0..23, got %d", c.OriginHour)
	}
	return nil
}

// Timeout returns the request timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Request loads the request template, or an empty request when no file
// is configured.
func (c BackendConfig) Request() (schedule.Request, error) {
	if c.RequestFile == "" {
		return schedule.Request{}, nil
	}
	return schedule.LoadRequest(c.RequestFile)
}
