package daysplit

import (
	"testing"
	"time"

	"github.com/kilianp07/prodcal/core/model"
)

var midnight = time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)

func block(start, end time.Time) model.Block {
	return model.Block{ID: "b1", MachineID: "L1", Kind: model.KindProduction, Start: start, End: end, OrderIDs: []string{"OT1"}}
}

func TestSplitInsideDay(t *testing.T) {
	b := block(midnight.Add(2*time.Hour), midnight.Add(5*time.Hour))
	f, ok := Split(b, midnight)
	if !ok {
		t.Fatalf("expected fragment")
	}
	if !f.Start.Equal(b.Start) || !f.End.Equal(b.End) || f.IsContinuation || f.IsPartial {
		t.Fatalf("unexpected fragment %+v", f)
	}
	if f.ID != b.ID {
		t.Fatalf("fragment lost id")
	}
}

func TestSplitFlags(t *testing.T) {
	b := block(midnight.Add(-3*time.Hour), midnight.Add(30*time.Hour))
	f, ok := Split(b, midnight)
	if !ok {
		t.Fatalf("expected fragment")
	}
	if !f.Start.Equal(midnight) || !f.IsContinuation {
		t.Fatalf("start not clipped: %+v", f)
	}
	if !f.End.Equal(midnight.Add(Day)) || !f.IsPartial {
		t.Fatalf("end not clipped: %+v", f)
	}
	if !b.Start.Equal(midnight.Add(-3 * time.Hour)) {
		t.Fatalf("source block mutated")
	}
}

func TestSplitNoIntersection(t *testing.T) {
	cases := []model.Block{
		block(midnight.Add(-2*time.Hour), midnight),
		block(midnight.Add(Day), midnight.Add(Day+time.Hour)),
		block(midnight.Add(-48*time.Hour), midnight.Add(-24*time.Hour)),
	}
	for i, b := range cases {
		if _, ok := Split(b, midnight); ok {
			t.Errorf("case %d: unexpected fragment", i)
		}
	}
}

func TestSplitCompleteness(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	starts := []time.Time{
		time.Date(2024, 1, 25, 20, 30, 0, 0, loc),
		time.Date(2024, 4, 5, 22, 0, 0, 0, loc), // crosses the April DST change
		time.Date(2024, 1, 26, 0, 0, 0, 0, loc),
	}
	durations := []time.Duration{time.Hour, 5 * time.Hour, 26 * time.Hour, 73*time.Hour + 15*time.Minute}
	for _, s := range starts {
		for _, d := range durations {
			b := block(s, s.Add(d))
			days := SplitRange([]model.Block{b}, s, 8, loc)
			var frags []model.DayFragment
			for _, day := range days {
				frags = append(frags, day...)
			}
			if len(frags) == 0 {
				t.Fatalf("no fragments for %v+%v", s, d)
			}
			if !frags[0].Start.Equal(b.Start) || frags[0].IsContinuation {
				t.Fatalf("first fragment wrong: %+v", frags[0])
			}
			last := frags[len(frags)-1]
			if !last.End.Equal(b.End) || last.IsPartial {
				t.Fatalf("last fragment wrong: %+v", last)
			}
			for i := 1; i < len(frags); i++ {
				if !frags[i].Start.Equal(frags[i-1].End) {
					t.Fatalf("gap or overlap between fragments %d and %d", i-1, i)
				}
				if !frags[i].IsContinuation || !frags[i-1].IsPartial {
					t.Fatalf("flags inconsistent at %d", i)
				}
			}
			calendarDays := 0
			for _, day := range DayStarts(s, 8, loc) {
				next := day.AddDate(0, 0, 1)
				if b.Start.Before(next) && b.End.After(day) {
					calendarDays++
				}
			}
			if len(frags) != calendarDays {
				t.Fatalf("expected %d fragments got %d", calendarDays, len(frags))
			}
		}
	}
}

func TestSplitRangeEmptyDays(t *testing.T) {
	b := block(midnight.Add(26*time.Hour), midnight.Add(27*time.Hour))
	days := SplitRange([]model.Block{b}, midnight.Add(5*time.Hour), 3, time.UTC)
	if len(days) != 3 {
		t.Fatalf("expected 3 days got %d", len(days))
	}
	if len(days[0]) != 0 || len(days[1]) != 1 || len(days[2]) != 0 {
		t.Fatalf("unexpected distribution %v", days)
	}
	if days[0] == nil {
		t.Fatalf("empty day should be a non-nil slice")
	}
	if got := Blocks(days[1]); len(got) != 1 || got[0].ID != "b1" {
		t.Fatalf("unexpected blocks %v", got)
	}
	if len(SplitRange(nil, midnight, -1, time.UTC)) != 0 {
		t.Fatalf("negative range should be empty")
	}
}
