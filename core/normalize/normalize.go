// Package normalize turns the scheduling backend's heterogeneous schedule
// entries into canonical model.Block values and attaches delay annotations
// to the production blocks they concern.
//
// Normalization is permissive: entries of an unknown type or missing a
// required field are dropped and counted, never reported as errors.
package normalize

import (
	"math"
	"strconv"
	"time"

	"github.com/kilianp07/prodcal/core/model"
)

// Drop reasons reported in Stats.
const (
	ReasonUnknownType     = "unknown_type"
	ReasonMissingMachine  = "missing_machine"
	ReasonMissingInterval = "missing_interval"
	ReasonEmptyInterval   = "empty_interval"
)

// Drop describes one raw item that was discarded.
type Drop struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Machine string `json:"machine"`
	Reason  string `json:"reason"`
}

// Stats summarizes a normalization pass.
type Stats struct {
	Total int    `json:"total"`
	Kept  int    `json:"kept"`
	Drops []Drop `json:"drops,omitempty"`
}

// Dropped returns the number of discarded items.
func (s Stats) Dropped() int { return len(s.Drops) }

// Normalize converts raw items into blocks. Absolute times are origin plus
// the item's hour offsets.
func Normalize(items []RawItem, origin time.Time) []model.Block {
	blocks, _ := NormalizeWithStats(items, origin)
	return blocks
}

// NormalizeWithStats is Normalize that also reports what was dropped.
func NormalizeWithStats(items []RawItem, origin time.Time) ([]model.Block, Stats) {
	st := Stats{Total: len(items)}
	blocks := make([]model.Block, 0, len(items))
	for i, it := range items {
		b, reason := convert(it, origin)
		if reason != "" {
			st.Drops = append(st.Drops, Drop{Index: i, Type: it.Type, Machine: it.Machine, Reason: reason})
			continue
		}
		blocks = append(blocks, b)
	}
	st.Kept = len(blocks)
	return blocks, st
}

// NormalizeResponse normalizes the schedule and merges the summary delays.
func NormalizeResponse(resp Response, origin time.Time) ([]model.Block, Stats) {
	blocks, st := NormalizeWithStats(resp.Schedule, origin)
	return MergeDelays(blocks, DelayRecords(resp.Summary)), st
}

func convert(it RawItem, origin time.Time) (model.Block, string) {
	switch it.Type {
	case TypeProduction, TypeOT, TypeSetup:
	default:
		return model.Block{}, ReasonUnknownType
	}
	if it.Machine == "" {
		return model.Block{}, ReasonMissingMachine
	}
	if it.Start == nil || it.End == nil {
		return model.Block{}, ReasonMissingInterval
	}
	if !(*it.End > *it.Start) {
		return model.Block{}, ReasonEmptyInterval
	}
	start := offset(origin, *it.Start)
	end := offset(origin, *it.End)

	switch it.Type {
	case TypeProduction:
		return production(it, start, end), ""
	case TypeOT:
		return legacyOrder(it, start, end), ""
	default:
		return setup(it, start, end), ""
	}
}

func production(it RawItem, start, end time.Time) model.Block {
	id := it.ID
	if id == "" {
		id = syntheticID("PROD", it.Machine, *it.Start)
	}
	orders := []string{}
	if len(it.OrderIDs) > 0 {
		orders = append(orders, it.OrderIDs...)
	}
	label := firstNonEmpty(it.Product, it.Format)
	if label == "" {
		label = id
	}
	var format *string
	if f := firstNonEmpty(it.Format, it.Product); f != "" {
		format = &f
	}
	return model.Block{
		ID:            id,
		MachineID:     it.Machine,
		Kind:          model.KindProduction,
		Start:         start,
		End:           end,
		ProductLabel:  label,
		Quantity:      nonNegative(it.Quantity),
		ExtraQuantity: 0,
		Format:        format,
		OrderIDs:      orders,
		OnTime:        boolOr(it.OnTime, true),
		DelayedOrders: []model.DelayRecord{},
	}
}

func legacyOrder(it RawItem, start, end time.Time) model.Block {
	id := it.ID
	if id == "" {
		id = syntheticID("OT", it.Machine, *it.Start)
	}
	qty := nonNegative(it.QtyClient)
	if qty == 0 {
		qty = nonNegative(it.Qty)
	}
	var format *string
	if it.Format != nil {
		f := *it.Format
		format = &f
	}
	var due *float64
	if it.Due != nil {
		d := *it.Due
		due = &d
	}
	return model.Block{
		ID:            id,
		MachineID:     it.Machine,
		Kind:          model.KindProduction,
		Start:         start,
		End:           end,
		ProductLabel:  id,
		Quantity:      qty,
		ExtraQuantity: nonNegative(it.QtyExtra),
		Format:        format,
		OrderIDs:      []string{id},
		OnTime:        boolOr(it.OnTime, true),
		DelayedOrders: []model.DelayRecord{},
		Due:           due,
	}
}

func setup(it RawItem, start, end time.Time) model.Block {
	target := "N/A"
	if it.Format != nil && *it.Format != "" {
		target = *it.Format
	}
	return model.Block{
		ID:           syntheticID("SETUP", it.Machine, *it.Start),
		MachineID:    it.Machine,
		Kind:         model.KindAdjustment,
		Start:        start,
		End:          end,
		Description:  "SETUP - format change to " + target,
		TargetFormat: target,
	}
}

// syntheticID is stable across fetches of the same schedule so that
// re-fetched blocks keep their identity.
func syntheticID(prefix, machine string, start float64) string {
	return prefix + "-" + machine + "-" + strconv.FormatFloat(start, 'f', -1, 64)
}

func offset(origin time.Time, hours float64) time.Time {
	return origin.Add(time.Duration(math.Round(hours * float64(time.Hour))))
}

func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
