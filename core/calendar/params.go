package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ViewMode selects the calendar layout.
type ViewMode string

const (
	// ViewDaily shows one day with a column per machine.
	ViewDaily ViewMode = "DAILY"
	// ViewIndividual shows one machine with a column per day.
	ViewIndividual ViewMode = "INDIVIDUAL"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var (
	ErrUnknownView     = errors.New("unknown view mode")
	ErrMachineRequired = errors.New("machine required for individual view")
)

// ParseViewMode accepts the view names case-insensitively. An empty string
// selects the daily view.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ViewDaily):
		return ViewDaily, nil
	case string(ViewIndividual):
		return ViewIndividual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// Params identifies one rendered view.
type Params struct {
	Date time.Time `json:"date"`
	Mode ViewMode  `json:"view"`
	// Machine is the machine of the individual view.
	Machine string `json:"machine,omitempty"`
	// Machines is the ordered machine selection of the daily view.
	Machines      []string `json:"machines,omitempty"`
	MachineOffset int      `json:"offset,omitempty"`
}

// Validate checks the mode specific fields.
func (p Params) Validate() error {
	switch p.Mode {
	case ViewDaily:
		if p.MachineOffset < 0 {
			return fmt.Errorf("offset must not be negative, got %d", p.MachineOffset)
		}
	case ViewIndividual:
		if p.Machine == "" {
			return ErrMachineRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownView, p.Mode)
	}
	if p.Date.IsZero() {
		return errors.New("date required")
	}
	return nil
}

// ParseDate reads a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
