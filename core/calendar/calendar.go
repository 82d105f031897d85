// Package calendar assembles laid out calendar views from normalized
// schedule blocks.
//
// A daily view selects the blocks starting on one day and lays out one
// column per visible machine. An individual view selects one machine's
// blocks starting within the week, splits them at day boundaries and lays out
// one column per day.
package calendar

import (
	"sort"
	"time"

	"github.com/kilianp07/prodcal/core/daysplit"
	"github.com/kilianp07/prodcal/core/layout"
	"github.com/kilianp07/prodcal/core/model"
	"github.com/kilianp07/prodcal/core/visibility"
)

// ScrollLead is how far above the current time indicator the view scrolls.
const ScrollLead = 200.0

// Cell is a positioned block with its day clipping flags.
type Cell struct {
	model.PositionedBlock
	IsContinuation bool `json:"is_continuation"`
	IsPartial      bool `json:"is_partial"`
}

// Column is one vertical track of the grid.
type Column struct {
	Key       string    `json:"key"`
	MachineID string    `json:"machine_id"`
	Day       time.Time `json:"day"`
	Height    float64   `json:"height"` // 23 or 25 hours on daylight saving days
	Blocks    []Cell    `json:"blocks"`
	Stats     Stats     `json:"stats"`
}

// View is a fully laid out calendar.
type View struct {
	Mode          ViewMode  `json:"view"`
	Date          string    `json:"date"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	PixelsPerHour float64   `json:"pixels_per_hour"`
	ColumnHeight  float64   `json:"column_height"`
	Machines      []string  `json:"machines,omitempty"`
	Offset        int       `json:"offset"`
	HasPrev       bool      `json:"has_prev"`
	HasNext       bool      `json:"has_next"`
	Columns       []Column  `json:"columns"`
}

// BlockCount returns the number of cells over all columns.
func (v View) BlockCount() int {
	n := 0
	for _, c := range v.Columns {
		n += len(c.Blocks)
	}
	return n
}

// Builder turns blocks into views.
type Builder struct {
	Layout     layout.Layouter
	Location   *time.Location
	WeekDays   int
	MaxColumns int
}

// NewBuilder returns a Builder with the standard week length and column cap.
func NewBuilder(l layout.Layouter, loc *time.Location) *Builder {
	return &Builder{Layout: l, Location: loc, WeekDays: visibility.WeekDays, MaxColumns: visibility.MaxColumns}
}

func (b *Builder) location() *time.Location {
	if b.Location == nil {
		return time.Local
	}
	return b.Location
}

// Build lays out blocks for p. Params are expected to be valid.
func (b *Builder) Build(blocks []model.Block, p Params) View {
	if p.Mode == ViewIndividual {
		return b.individual(blocks, p)
	}
	return b.daily(blocks, p)
}

func (b *Builder) newView(p Params, w visibility.Window) View {
	cfg := b.Layout.Config()
	return View{
		Mode:          p.Mode,
		Date:          w.Start.Format(DateLayout),
		Start:         w.Start,
		End:           w.End,
		PixelsPerHour: cfg.PixelsPerHour,
		ColumnHeight:  cfg.ColumnHeight(),
		Columns:       []Column{},
	}
}

func (b *Builder) daily(blocks []model.Block, p Params) View {
	loc := b.location()
	w := visibility.DayWindow(p.Date, loc)
	machines := p.Machines
	if len(machines) == 0 {
		machines = MachineIDs(blocks)
	}
	visible := visibility.VisibleMachines(machines, p.MachineOffset, b.MaxColumns)
	selected := visibility.SelectVisible(blocks, w.Start, w.End, visible)
	byMachine := visibility.GroupByMachine(selected)

	v := b.newView(p, w)
	v.Machines = machines
	v.Offset = p.MachineOffset
	v.HasPrev = p.MachineOffset > 0
	v.HasNext = p.MachineOffset+len(visible) < len(machines)
	cfg := b.Layout.Config()
	dayEnd := w.End
	for _, m := range visible {
		positioned := b.Layout.LayoutSpan(byMachine[m], w.Start, dayEnd)
		cells := make([]Cell, len(positioned))
		for i, pb := range positioned {
			cells[i] = Cell{PositionedBlock: pb, IsPartial: pb.End.After(dayEnd)}
		}
		v.Columns = append(v.Columns, Column{
			Key:       m,
			MachineID: m,
			Day:       w.Start,
			Height:    cfg.SpanHeight(dayEnd.Sub(w.Start)),
			Blocks:    cells,
			Stats:     columnStats(cells, w.Start, dayEnd),
		})
	}
	return v
}

func (b *Builder) individual(blocks []model.Block, p Params) View {
	loc := b.location()
	days := b.WeekDays
	if days <= 0 {
		days = visibility.WeekDays
	}
	w := visibility.WeekWindow(p.Date, loc, days)
	selected := visibility.SelectVisible(blocks, w.Start, w.End, []string{p.Machine})
	perDay := daysplit.SplitRange(selected, w.Start, days, loc)
	starts := daysplit.DayStarts(w.Start, days+1, loc)

	v := b.newView(p, w)
	v.Machines = []string{p.Machine}
	cfg := b.Layout.Config()
	for i, frags := range perDay {
		dayStart, dayEnd := starts[i], starts[i+1]
		sort.SliceStable(frags, func(x, y int) bool { return frags[x].Start.Before(frags[y].Start) })
		positioned := b.Layout.LayoutSpan(daysplit.Blocks(frags), dayStart, dayEnd)
		cells := make([]Cell, len(positioned))
		for j, pb := range positioned {
			cells[j] = Cell{PositionedBlock: pb, IsContinuation: frags[j].IsContinuation, IsPartial: frags[j].IsPartial}
		}
		v.Columns = append(v.Columns, Column{
			Key:       dayStart.Format(DateLayout),
			MachineID: p.Machine,
			Day:       dayStart,
			Height:    cfg.SpanHeight(dayEnd.Sub(dayStart)),
			Blocks:    cells,
			Stats:     columnStats(cells, dayStart, dayEnd),
		})
	}
	return v
}

// NowOffset returns the pixel offset of now on the column of a daily view.
// ok is false for individual views and when now is outside the day.
func (v View) NowOffset(now time.Time) (offset float64, ok bool) {
	if v.Mode != ViewDaily || now.Before(v.Start) || !now.Before(v.End) {
		return 0, false
	}
	return now.Sub(v.Start).Hours() * v.PixelsPerHour, true
}

// ScrollOffset is the initial scroll position for a current time indicator
// at nowOffset.
func ScrollOffset(nowOffset float64) float64 {
	if nowOffset-ScrollLead < 0 {
		return 0
	}
	return nowOffset - ScrollLead
}

// MachineIDs returns the distinct machines of blocks in sorted order.
func MachineIDs(blocks []model.Block) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, b := range blocks {
		if _, ok := seen[b.MachineID]; ok {
			continue
		}
		seen[b.MachineID] = struct{}{}
		out = append(out, b.MachineID)
	}
	sort.Strings(out)
	return out
}
