// Package layout places the blocks of one calendar column on a 24-hour
// vertical axis.
//
// A column covers [dayStart, dayEnd), normally 24 hours. Blocks are stacked in start
// order, separated by a fixed gap when they touch, inflated to a minimum
// legible height and never drawn past the end of the day. Overlapping input
// is not rejected; a block whose raw position falls inside the previous
// block's rendered extent is pushed below it.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/prodcal/core/model"
)

const (
	// DefaultPixelsPerHour matches the 80px hour rows of the calendar grid.
	DefaultPixelsPerHour = 80.0
	// DefaultGap separates adjacent blocks.
	DefaultGap = 2.0
	// DefaultMinHeight keeps short blocks legible.
	DefaultMinHeight = 40.0

	// adjacency is the distance under which two blocks are considered touching.
	adjacency = 1.0

	// Day is the standard column span.
	Day = 24 * time.Hour
)

// ErrInvalidConfig is returned for layouts that cannot be drawn.
var ErrInvalidConfig = errors.New("invalid layout config")

// Config defines the column geometry.
type Config struct {
	PixelsPerHour float64 `json:"pixels_per_hour"`
	Gap           float64 `json:"gap"`
	MinHeight     float64 `json:"min_height"`
}

// DefaultConfig returns the calendar's standard geometry.
func DefaultConfig() Config {
	return Config{PixelsPerHour: DefaultPixelsPerHour, Gap: DefaultGap, MinHeight: DefaultMinHeight}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PixelsPerHour == 0 {
		c.PixelsPerHour = DefaultPixelsPerHour
	}
	if c.Gap == 0 {
		c.Gap = DefaultGap
	}
	if c.MinHeight == 0 {
		c.MinHeight = DefaultMinHeight
	}
}

// Validate rejects geometries with no drawable day.
func (c Config) Validate() error {
	if !(c.PixelsPerHour > 0) || math.IsInf(c.PixelsPerHour, 0) {
		return fmt.Errorf("%w: pixels_per_hour must be positive, got %v", ErrInvalidConfig, c.PixelsPerHour)
	}
	if c.Gap < 0 {
		return fmt.Errorf("%w: gap must not be negative, got %v", ErrInvalidConfig, c.Gap)
	}
	if !(c.MinHeight > 0) {
		return fmt.Errorf("%w: min_height must be positive, got %v", ErrInvalidConfig, c.MinHeight)
	}
	return nil
}

// ColumnHeight is the pixel height of a full day.
func (c Config) ColumnHeight() float64 { return c.SpanHeight(Day) }

// SpanHeight is the pixel height of a column covering d.
func (c Config) SpanHeight(d time.Duration) float64 { return d.Hours() * c.PixelsPerHour }

// Engine lays out columns with a fixed geometry. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// MustEngine is NewEngine that panics on an invalid geometry.
func MustEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns the engine geometry.
func (e *Engine) Config() Config { return e.cfg }

// Layout places blocks within the column starting at dayStart using the
// default gap and minimum height. A non-positive pixelsPerHour is a
// programming error and panics.
func Layout(blocks []model.Block, dayStart time.Time, pixelsPerHour float64) []model.PositionedBlock {
	cfg := DefaultConfig()
	cfg.PixelsPerHour = pixelsPerHour
	return MustEngine(cfg).Layout(blocks, dayStart)
}

// Layout returns one PositionedBlock per input block, ordered by start time,
// in the 24 hour column starting at dayStart. Blocks sharing a start time
// keep their input order.
func (e *Engine) Layout(blocks []model.Block, dayStart time.Time) []model.PositionedBlock {
	return e.LayoutSpan(blocks, dayStart, dayStart.Add(Day))
}

// LayoutSpan lays out the column [dayStart, dayEnd). Calendar days that
// gain or lose an hour at a daylight saving change get a 25 or 23 hour
// column. A non-positive span falls back to 24 hours.
func (e *Engine) LayoutSpan(blocks []model.Block, dayStart, dayEnd time.Time) []model.PositionedBlock {
	if len(blocks) == 0 {
		return []model.PositionedBlock{}
	}
	span := dayEnd.Sub(dayStart)
	if span <= 0 {
		span = Day
	}
	sorted := sortByStart(blocks)
	pph := e.cfg.PixelsPerHour
	bound := e.cfg.SpanHeight(span)
	out := make([]model.PositionedBlock, len(sorted))
	for i, b := range sorted {
		startMin := clampMinutes(b.Start.Sub(dayStart), span)
		endMin := clampMinutes(b.End.Sub(dayStart), span)
		dur := math.Max(endMin-startMin, 0)

		rawTop := startMin / 60 * pph
		rawHeight := math.Min(dur/60*pph, bound-rawTop)

		top := rawTop
		if i > 0 {
			prevEnd := out[i-1].Bottom()
			if rawTop < prevEnd+adjacency {
				top = math.Min(prevEnd+e.cfg.Gap, bound)
			}
		}
		room := bound - top

		height := rawHeight
		last := i == len(sorted)-1
		if !last {
			height -= e.cfg.Gap
		}
		height = math.Min(height, room)
		height = math.Min(math.Max(height, e.cfg.MinHeight), room)
		if top+height > bound {
			height = bound - top
		}

		out[i] = model.PositionedBlock{Block: b, Top: top, Height: height, IsLast: last}
	}
	return out
}

func clampMinutes(d, span time.Duration) float64 {
	m := d.Minutes()
	if m < 0 {
		return 0
	}
	if limit := span.Minutes(); m > limit {
		return limit
	}
	return m
}

func sortByStart(blocks []model.Block) []model.Block {
	sorted := make([]model.Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	return sorted
}

// Layouter is implemented by Engine and Memo.
type Layouter interface {
	Layout(blocks []model.Block, dayStart time.Time) []model.PositionedBlock
	LayoutSpan(blocks []model.Block, dayStart, dayEnd time.Time) []model.PositionedBlock
	Config() Config
}
