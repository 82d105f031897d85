// Package visibility selects the blocks and machines shown by a calendar
// view.
package visibility

import (
	"time"

	"github.com/kilianp07/prodcal/core/model"
)

const (
	// WeekDays is the length of the single-machine view.
	WeekDays = 7
	// MaxColumns caps the machine columns of the daily view.
	MaxColumns = 7
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t is inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayWindow covers the calendar day of date in loc.
func DayWindow(date time.Time, loc *time.Location) Window {
	return WeekWindow(date, loc, 1)
}

// WeekWindow covers days calendar days starting with the day of date in loc.
func WeekWindow(date time.Time, loc *time.Location, days int) Window {
	start := StartOfDay(date, loc)
	return Window{Start: start, End: start.AddDate(0, 0, days)}
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// SelectVisible keeps the blocks starting inside [windowStart, windowEnd).
// When machineIDs is non-nil only blocks of those machines are kept. The
// relative order of blocks is preserved.
func SelectVisible(blocks []model.Block, windowStart, windowEnd time.Time, machineIDs []string) []model.Block {
	var allowed map[string]struct{}
	if machineIDs != nil {
		allowed = make(map[string]struct{}, len(machineIDs))
		for _, id := range machineIDs {
			allowed[id] = struct{}{}
		}
	}
	w := Window{Start: windowStart, End: windowEnd}
	out := make([]model.Block, 0, len(blocks))
	for _, b := range blocks {
		if !w.Contains(b.Start) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[b.MachineID]; !ok {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// VisibleMachines returns the page of at most max selected machines
// starting at offset. An offset past the end yields no machines.
func VisibleMachines(selected []string, offset, max int) []string {
	if max <= 0 {
		max = MaxColumns
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(selected) {
		return []string{}
	}
	end := offset + max
	if end > len(selected) {
		end = len(selected)
	}
	return append([]string(nil), selected[offset:end]...)
}

// ToggleMachine removes id from selected when present and appends it
// otherwise. selected is not modified.
func ToggleMachine(selected []string, id string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, m := range selected {
		if m == id {
			found = true
			continue
		}
		out = append(out, m)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// GroupByMachine buckets blocks per machine id, keeping block order.
func GroupByMachine(blocks []model.Block) map[string][]model.Block {
	out := make(map[string][]model.Block)
	for _, b := range blocks {
		out[b.MachineID] = append(out[b.MachineID], b)
	}
	return out
}
