package normalize

import "github.com/kilianp07/prodcal/core/model"

// DelayRecords maps the summary's delay entries. Entries without an order id
// are skipped and negative delays are clamped to zero.
func DelayRecords(summary RawSummary) []model.DelayRecord {
	out := make([]model.DelayRecord, 0, len(summary.Delays))
	for _, d := range summary.Delays {
		if d.OrderID == "" {
			continue
		}
		rec := model.DelayRecord{OrderID: d.OrderID, DelayHours: d.DelayHours}
		if rec.DelayHours < 0 {
			rec.DelayHours = 0
		}
		if d.Due != nil {
			v := *d.Due
			rec.DueHours = &v
		}
		if d.Completion != nil {
			v := *d.Completion
			rec.CompletionHours = &v
		}
		if d.Cluster != nil {
			v := *d.Cluster
			rec.Cluster = &v
		}
		out = append(out, rec)
	}
	return out
}

// MergeDelays returns copies of blocks where every production block carries
// the delays whose order id belongs to it, in the order of delays.
// Adjustment blocks are returned unchanged. Inputs are never modified.
func MergeDelays(blocks []model.Block, delays []model.DelayRecord) []model.Block {
	out := make([]model.Block, len(blocks))
	for i, b := range blocks {
		c := b.Clone()
		if c.Kind != model.KindProduction {
			out[i] = c
			continue
		}
		orders := make(map[string]struct{}, len(c.OrderIDs))
		for _, id := range c.OrderIDs {
			orders[id] = struct{}{}
		}
		matched := []model.DelayRecord{}
		for _, d := range delays {
			if _, ok := orders[d.OrderID]; ok {
				matched = append(matched, d)
			}
		}
		c.DelayedOrders = matched
		out[i] = c
	}
	return out
}
