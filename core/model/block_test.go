package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProductionDetailsOnlyForProduction(t *testing.T) {
	start := time.Date(2024, 1, 25, 8, 0, 0, 0, time.UTC)
	prod := Block{ID: "b1", MachineID: "L1", Kind: KindProduction, Start: start, End: start.Add(time.Hour), Quantity: 10, OrderIDs: []string{"OT1"}}
	d, ok := prod.Production()
	if !ok || d.Quantity != 10 || len(d.OrderIDs) != 1 {
		t.Fatalf("unexpected production details %#v %v", d, ok)
	}
	adj := Block{ID: "s1", MachineID: "L1", Kind: KindAdjustment, Start: start, End: start.Add(time.Hour), Quantity: 99}
	if _, ok := adj.Production(); ok {
		t.Fatalf("adjustment exposed production fields")
	}
}

func TestBlockValidate(t *testing.T) {
	start := time.Date(2024, 1, 25, 8, 0, 0, 0, time.UTC)
	b := Block{ID: "b1", MachineID: "L1", Start: start, End: start}
	if err := b.Validate(); err == nil {
		t.Fatalf("expected error for empty interval")
	}
	b.End = start.Add(time.Minute)
	if err := b.Validate(); err != nil {
		t.Fatalf("valid block rejected: %v", err)
	}
	b.MachineID = ""
	if err := b.Validate(); err == nil {
		t.Fatalf("expected error for missing machine")
	}
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	b := Block{OrderIDs: []string{"OT1"}, DelayedOrders: []DelayRecord{{OrderID: "OT1"}}}
	c := b.Clone()
	c.OrderIDs[0] = "changed"
	c.DelayedOrders[0].OrderID = "changed"
	if b.OrderIDs[0] != "OT1" || b.DelayedOrders[0].OrderID != "OT1" {
		t.Fatalf("clone shares backing arrays")
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(Block{ID: "x", Kind: KindAdjustment})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Block
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Kind != KindAdjustment {
		t.Fatalf("kind mismatch %v", out.Kind)
	}
	var k Kind
	if err := k.UnmarshalText([]byte("OT")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
