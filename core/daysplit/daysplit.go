// Package daysplit cuts blocks that cross midnight into one fragment per
// calendar day.
package daysplit

import (
	"time"

	"github.com/kilianp07/prodcal/core/model"
)

// Day is the length of a calendar column.
const Day = 24 * time.Hour

// Split returns the part of b inside [dayStart, dayStart+24h). The boolean
// is false when b does not intersect the day. The fragment keeps b's id so
// that a selection maps back to the source block.
func Split(b model.Block, dayStart time.Time) (model.DayFragment, bool) {
	return clip(b, dayStart, dayStart.Add(Day))
}

func clip(b model.Block, dayStart, dayEnd time.Time) (model.DayFragment, bool) {
	if !b.Start.Before(dayEnd) || !b.End.After(dayStart) {
		return model.DayFragment{}, false
	}
	f := model.DayFragment{Block: b.Clone()}
	if b.Start.Before(dayStart) {
		f.Start = dayStart
		f.IsContinuation = true
	}
	if b.End.After(dayEnd) {
		f.End = dayEnd
		f.IsPartial = true
	}
	return f, true
}

// DayStarts returns the midnights of n consecutive calendar days beginning
// with the day containing first, in loc.
func DayStarts(first time.Time, n int, loc *time.Location) []time.Time {
	if loc == nil {
		loc = first.Location()
	}
	f := first.In(loc)
	base := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, loc)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, base.AddDate(0, 0, i))
	}
	return out
}

// SplitRange splits every block over n days starting at the day of first.
// The result has one slice per day, in day order; days without fragments
// get an empty slice. Within a day, fragments keep the order of blocks.
// Days end at the next local midnight, so on daylight saving transitions
// consecutive fragments still meet exactly.
func SplitRange(blocks []model.Block, first time.Time, n int, loc *time.Location) [][]model.DayFragment {
	if n < 0 {
		n = 0
	}
	days := DayStarts(first, n+1, loc)
	out := make([][]model.DayFragment, n)
	for i := 0; i < n; i++ {
		out[i] = []model.DayFragment{}
		for _, b := range blocks {
			if f, ok := clip(b, days[i], days[i+1]); ok {
				out[i] = append(out[i], f)
			}
		}
	}
	return out
}

// Blocks strips the fragment flags.
func Blocks(frags []model.DayFragment) []model.Block {
	out := make([]model.Block, len(frags))
	for i, f := range frags {
		out[i] = f.Block
	}
	return out
}
