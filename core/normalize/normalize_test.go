package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prodcal/core/model"
)

var origin = time.Date(2024, 1, 25, 8, 0, 0, 0, time.UTC)

func decodeResponse(t *testing.T, body string) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return r
}

func TestNormalizeResponseExample(t *testing.T) {
	resp := decodeResponse(t, `{
		"schedule": [{"machine": "L1", "type": "PRODUCTION", "id": "P1", "start": 0, "end": 3,
			"product": "A", "quantity": 500, "ot_ids": ["OT1", "OT2"]}],
		"summary": {"atrasos": [{"ot_id": "OT1", "atraso_horas": 1.5}], "total_cost": 12.5},
		"logs": ["done"]
	}`)
	blocks, st := NormalizeResponse(resp, origin)
	require.Len(t, blocks, 1)
	assert.Equal(t, 0, st.Dropped())
	b := blocks[0]
	assert.Equal(t, origin, b.Start)
	assert.Equal(t, time.Date(2024, 1, 25, 11, 0, 0, 0, time.UTC), b.End)
	assert.Equal(t, 500, b.Quantity)
	assert.Equal(t, []string{"OT1", "OT2"}, b.OrderIDs)
	assert.Equal(t, []model.DelayRecord{{OrderID: "OT1", DelayHours: 1.5}}, b.DelayedOrders)
	assert.True(t, b.OnTime)
	assert.Equal(t, "A", b.ProductLabel)
	require.NotNil(t, b.Format)
	assert.Equal(t, "A", *b.Format)
	assert.Contains(t, resp.Summary.Extra, "total_cost")
}

func TestNormalizeProductionDefaults(t *testing.T) {
	s, e := 1.0, 2.0
	blocks := Normalize([]RawItem{{Machine: "L1", Type: TypeProduction, Start: &s, End: &e}}, origin)
	require.Len(t, blocks, 1)
	b := blocks[0]
	assert.Equal(t, "PROD-L1-1", b.ID)
	assert.Empty(t, b.OrderIDs)
	assert.NotNil(t, b.OrderIDs)
	assert.Equal(t, 0, b.Quantity)
	assert.Nil(t, b.Format)
	assert.True(t, b.OnTime)
}

func TestNormalizeLegacyOrder(t *testing.T) {
	resp := decodeResponse(t, `{"schedule": [
		{"id": "OT7", "machine": "L2", "type": "OT", "start": 1.5, "end": 4, "qty_cliente": 0, "qty": 300,
		 "qty_extra": 20, "format": "B", "on_time": false, "due": 12},
		{"id": "OT8", "machine": "L2", "type": "OT", "start": 4, "end": 5, "qty_cliente": 250, "qty": 300}
	]}`)
	blocks := Normalize(resp.Schedule, origin)
	require.Len(t, blocks, 2)
	first := blocks[0]
	assert.Equal(t, model.KindProduction, first.Kind)
	assert.Equal(t, []string{"OT7"}, first.OrderIDs)
	assert.Equal(t, 300, first.Quantity)
	assert.Equal(t, 20, first.ExtraQuantity)
	assert.False(t, first.OnTime)
	require.NotNil(t, first.Due)
	assert.Equal(t, 12.0, *first.Due)
	assert.Equal(t, origin.Add(90*time.Minute), first.Start)
	assert.Equal(t, 250, blocks[1].Quantity)
	assert.Equal(t, 0, blocks[1].ExtraQuantity)
}

func TestNormalizeSetupDeterministicID(t *testing.T) {
	resp := decodeResponse(t, `{"schedule": [{"machine": "L1", "type": "SETUP", "start": 3, "end": 4.5, "format": "C"}]}`)
	first := Normalize(resp.Schedule, origin)
	second := Normalize(resp.Schedule, origin)
	require.Len(t, first, 1)
	assert.Equal(t, "SETUP-L1-3", first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, model.KindAdjustment, first[0].Kind)
	assert.Contains(t, first[0].Description, "C")
	_, ok := first[0].Production()
	assert.False(t, ok)
}

func TestNormalizeDropsMalformed(t *testing.T) {
	resp := decodeResponse(t, `{"schedule": [
		{"machine": "L1", "type": "MAINTENANCE", "start": 0, "end": 1},
		{"type": "OT", "id": "OT1", "start": 0, "end": 1},
		{"machine": "L1", "type": "OT", "id": "OT2", "start": 0},
		{"machine": "L1", "type": "OT", "id": "OT3", "start": 2, "end": 2},
		{"machine": "L1", "type": "OT", "id": "OT4", "start": 2, "end": 3}
	]}`)
	blocks, st := NormalizeWithStats(resp.Schedule, origin)
	require.Len(t, blocks, 1)
	assert.Equal(t, "OT4", blocks[0].ID)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 1, st.Kept)
	reasons := []string{}
	for _, d := range st.Drops {
		reasons = append(reasons, d.Reason)
	}
	assert.Equal(t, []string{ReasonUnknownType, ReasonMissingMachine, ReasonMissingInterval, ReasonEmptyInterval}, reasons)
}

func TestNormalizeIdempotent(t *testing.T) {
	resp := decodeResponse(t, `{"schedule": [
		{"machine": "L1", "type": "PRODUCTION", "id": "P1", "start": 0, "end": 3, "ot_ids": ["OT1"]},
		{"machine": "L1", "type": "SETUP", "start": 3, "end": 4},
		{"machine": "L2", "type": "OT", "id": "OT9", "start": 0, "end": 30, "qty": 5}
	], "summary": {"atrasos": [{"ot_id": "OT9", "atraso_horas": 2}]}}`)
	a, _ := NormalizeResponse(resp, origin)
	b, _ := NormalizeResponse(resp, origin)
	assert.Equal(t, a, b)
}

func TestMergeDelays(t *testing.T) {
	blocks := []model.Block{
		{ID: "p1", Kind: model.KindProduction, OrderIDs: []string{"OT1", "OT3"}},
		{ID: "p2", Kind: model.KindProduction, OrderIDs: []string{}},
		{ID: "s1", Kind: model.KindAdjustment},
		{ID: "p3", Kind: model.KindProduction, OrderIDs: []string{"OT2"}},
	}
	delays := []model.DelayRecord{
		{OrderID: "OT3", DelayHours: 3},
		{OrderID: "OT2", DelayHours: 2},
		{OrderID: "OT1", DelayHours: 1},
		{OrderID: "OT9", DelayHours: 9},
	}
	out := MergeDelays(blocks, delays)
	require.Len(t, out, 4)
	assert.Equal(t, []model.DelayRecord{{OrderID: "OT3", DelayHours: 3}, {OrderID: "OT1", DelayHours: 1}}, out[0].DelayedOrders)
	assert.Empty(t, out[1].DelayedOrders)
	assert.Nil(t, out[2].DelayedOrders)
	assert.Equal(t, []model.DelayRecord{{OrderID: "OT2", DelayHours: 2}}, out[3].DelayedOrders)
	for _, b := range blocks {
		assert.Nil(t, b.DelayedOrders, "input block %s mutated", b.ID)
	}
}

func TestMergeDelaysExactSubset(t *testing.T) {
	orders := []string{"A", "B", "C", "D"}
	var delays []model.DelayRecord
	for i, id := range orders {
		delays = append(delays, model.DelayRecord{OrderID: id, DelayHours: float64(i)})
	}
	for mask := 0; mask < 1<<len(orders); mask++ {
		var ids []string
		for i, id := range orders {
			if mask&(1<<i) != 0 {
				ids = append(ids, id)
			}
		}
		out := MergeDelays([]model.Block{{Kind: model.KindProduction, OrderIDs: ids}}, delays)
		if len(out[0].DelayedOrders) != len(ids) {
			t.Fatalf("mask %b: expected %d delays got %d", mask, len(ids), len(out[0].DelayedOrders))
		}
		for i, d := range out[0].DelayedOrders {
			if d.OrderID != ids[i] {
				t.Fatalf("mask %b: order mismatch %v", mask, out[0].DelayedOrders)
			}
		}
	}
}

func TestDelayRecords(t *testing.T) {
	resp := decodeResponse(t, `{"summary": {"atrasos": [
		{"ot_id": "OT1", "atraso_horas": 1.5, "due": 12, "completion": 13.5, "cluster": 5},
		{"atraso_horas": 4},
		{"ot_id": "OT2", "atraso_horas": -1}
	]}}`)
	recs := DelayRecords(resp.Summary)
	require.Len(t, recs, 2)
	assert.Equal(t, "OT1", recs[0].OrderID)
	require.NotNil(t, recs[0].DueHours)
	require.NotNil(t, recs[0].CompletionHours)
	require.NotNil(t, recs[0].Cluster)
	assert.Equal(t, 12.0, *recs[0].DueHours)
	assert.Equal(t, 13.5, *recs[0].CompletionHours)
	assert.Equal(t, 5, *recs[0].Cluster)
	assert.Equal(t, 0.0, recs[1].DelayHours)
}

func TestSummaryRoundTripKeepsExtra(t *testing.T) {
	resp := decodeResponse(t, `{"summary": {"atrasos": [], "makespan": 40}}`)
	b, err := json.Marshal(resp.Summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"atrasos": [], "makespan": 40}`, string(b))
}
