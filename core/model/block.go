package model

import (
	"fmt"
	"time"
)

// Kind distinguishes production runs from machine adjustments.
type Kind int

const (
	KindProduction Kind = iota
	KindAdjustment
)

// String returns the wire name of the block kind.
func (k Kind) String() string {
	switch k {
	case KindProduction:
		return "PRODUCTION"
	case KindAdjustment:
		return "ADJUSTMENT"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind using its wire name.
func (k Kind) MarshalText() ([]byte, error) {
	s := k.String()
	if s == "unknown" {
		return nil, fmt.Errorf("unknown block kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a wire name into a Kind.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "PRODUCTION":
		*k = KindProduction
	case "ADJUSTMENT":
		*k = KindAdjustment
	default:
		return fmt.Errorf("unknown block kind %q", string(b))
	}
	return nil
}

// DelayRecord annotates a late work order.
type DelayRecord struct {
	OrderID         string   `json:"order_id"`
	DelayHours      float64  `json:"delay_hours"`
	DueHours        *float64 `json:"due_hours,omitempty"`
	CompletionHours *float64 `json:"completion_hours,omitempty"`
	Cluster         *int     `json:"cluster,omitempty"`
}

// Block is a normalized schedule entry on one machine. Blocks are treated as
// immutable once built; helpers returning modified blocks work on copies.
type Block struct {
	ID        string    `json:"id"`
	MachineID string    `json:"machine_id"`
	Kind      Kind      `json:"kind"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`

	// Production-only fields. Read them through Production().
	ProductLabel  string        `json:"product_label,omitempty"`
	Quantity      int           `json:"quantity,omitempty"`
	ExtraQuantity int           `json:"extra_quantity,omitempty"`
	Format        *string       `json:"format,omitempty"`
	OrderIDs      []string      `json:"order_ids,omitempty"`
	OnTime        bool          `json:"on_time,omitempty"`
	DelayedOrders []DelayRecord `json:"delayed_orders,omitempty"`
	Due           *float64      `json:"due,omitempty"`

	// Adjustment-only fields.
	Description  string `json:"description,omitempty"`
	TargetFormat string `json:"target_format,omitempty"`
}

// ProductionDetails groups the fields only meaningful for production blocks.
type ProductionDetails struct {
	ProductLabel  string
	Quantity      int
	ExtraQuantity int
	Format        *string
	OrderIDs      []string
	OnTime        bool
	DelayedOrders []DelayRecord
	Due           *float64
}

// Production returns the production fields of b. The boolean is false for
// adjustment blocks, whose production fields must not be read.
func (b Block) Production() (ProductionDetails, bool) {
	if b.Kind != KindProduction {
		return ProductionDetails{}, false
	}
	return ProductionDetails{
		ProductLabel:  b.ProductLabel,
		Quantity:      b.Quantity,
		ExtraQuantity: b.ExtraQuantity,
		Format:        b.Format,
		OrderIDs:      b.OrderIDs,
		OnTime:        b.OnTime,
		DelayedOrders: b.DelayedOrders,
		Due:           b.Due,
	}, true
}

// IsProduction reports whether b is a production run.
func (b Block) IsProduction() bool { return b.Kind == KindProduction }

// Duration returns End - Start.
func (b Block) Duration() time.Duration { return b.End.Sub(b.Start) }

// Validate checks the interval invariant.
func (b Block) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("block id required")
	}
	if b.MachineID == "" {
		return fmt.Errorf("block %s: machine required", b.ID)
	}
	if !b.End.After(b.Start) {
		return fmt.Errorf("block %s: end must be after start", b.ID)
	}
	return nil
}

// Clone returns a copy of b that shares no slices with it.
func (b Block) Clone() Block {
	c := b
	if b.OrderIDs != nil {
		c.OrderIDs = append([]string(nil), b.OrderIDs...)
	}
	if b.DelayedOrders != nil {
		c.DelayedOrders = append([]DelayRecord(nil), b.DelayedOrders...)
	}
	return c
}

// PositionedBlock is a Block with its vertical placement inside a column.
// It is derived on every layout pass and never persisted.
type PositionedBlock struct {
	Block
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	IsLast bool    `json:"is_last"`
}

// Bottom returns Top + Height.
func (p PositionedBlock) Bottom() float64 { return p.Top + p.Height }

// DayFragment is the part of a Block that falls within one calendar day.
type DayFragment struct {
	Block
	// IsContinuation is true when the source block started before the day.
	IsContinuation bool `json:"is_continuation"`
	// IsPartial is true when the source block ends after the day.
	IsPartial bool `json:"is_partial"`
}
