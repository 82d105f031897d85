package calendar

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises one column.
type Stats struct {
	// BusyHours is the scheduled time inside the column's day, overlaps
	// counted once per block.
	BusyHours float64 `json:"busy_hours"`
	// Utilization is BusyHours over the day length, capped at 1.
	Utilization    float64 `json:"utilization"`
	DelayedOrders  int     `json:"delayed_orders"`
	MeanDelayHours float64 `json:"mean_delay_hours"`
}

func columnStats(cells []Cell, dayStart, dayEnd time.Time) Stats {
	var st Stats
	if len(cells) == 0 {
		return st
	}
	busy := make([]float64, 0, len(cells))
	var delays []float64
	for _, c := range cells {
		s, e := c.Start, c.End
		if s.Before(dayStart) {
			s = dayStart
		}
		if e.After(dayEnd) {
			e = dayEnd
		}
		if e.After(s) {
			busy = append(busy, e.Sub(s).Hours())
		}
		if prod, ok := c.Production(); ok {
			for _, d := range prod.DelayedOrders {
				delays = append(delays, d.DelayHours)
			}
		}
	}
	st.BusyHours = floats.Sum(busy)
	if span := dayEnd.Sub(dayStart).Hours(); span > 0 {
		st.Utilization = st.BusyHours / span
		if st.Utilization > 1 {
			st.Utilization = 1
		}
	}
	st.DelayedOrders = len(delays)
	if len(delays) > 0 {
		st.MeanDelayHours = stat.Mean(delays, nil)
	}
	return st
}
