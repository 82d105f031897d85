package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/prodcal/core/visibility"
)

// DefaultTimezone is the plant's local zone.
const DefaultTimezone = "America/Santiago"

// ViewConfig controls what the calendar shows.
type ViewConfig struct {
	// Machines is the default machine selection. Empty means every machine
	// present in the schedule.
	Machines       []string `json:"machines"`
	Timezone       string   `json:"timezone"`
	WeekDays       int      `json:"week_days"`
	MaxColumns     int      `json:"max_columns"`
	RefreshSeconds int      `json:"refresh_seconds"`
}

func (c *ViewConfig) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.WeekDays <= 0 {
		c.WeekDays = visibility.WeekDays
	}
	if c.MaxColumns <= 0 {
		c.MaxColumns = visibility.MaxColumns
	}
}

func (c ViewConfig) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("view.timezone: %w", err)
	}
	if c.RefreshSeconds < 0 {
		return fmt.Errorf("view.refresh_seconds must not be negative")
	}
	return nil
}

// Location returns the configured zone, falling back to UTC when it
// cannot be loaded.
func (c ViewConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RefreshInterval is zero when periodic refresh is disabled.
func (c ViewConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}
