package layout

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"time"

	"github.com/kilianp07/prodcal/core/model"
)

type memoKey struct {
	set      uint64
	dayStart int64
	span     time.Duration
	pph      float64
}

type geometry struct {
	top, height float64
}

// Memo caches Engine geometry keyed by the block set, the column span and
// the pixel scale. Layout is pure, so a cached result is always identical to
// a fresh one. Only positions are cached; block payloads always come from
// the current call.
type Memo struct {
	engine *Engine
	max    int

	mu      sync.Mutex
	entries map[memoKey][]geometry
	hits    int
	misses  int
}

// NewMemo wraps engine. max bounds the number of cached columns; the cache
// is reset when it is exceeded.
func NewMemo(engine *Engine, max int) *Memo {
	if max <= 0 {
		max = 256
	}
	return &Memo{engine: engine, max: max, entries: make(map[memoKey][]geometry)}
}

// Layout returns the cached layout for the 24 hour column or computes it.
func (m *Memo) Layout(blocks []model.Block, dayStart time.Time) []model.PositionedBlock {
	return m.LayoutSpan(blocks, dayStart, dayStart.Add(Day))
}

// LayoutSpan returns the cached layout for the column [dayStart, dayEnd).
func (m *Memo) LayoutSpan(blocks []model.Block, dayStart, dayEnd time.Time) []model.PositionedBlock {
	key := memoKey{set: BlockSetKey(blocks), dayStart: dayStart.UnixNano(), span: dayEnd.Sub(dayStart), pph: m.engine.cfg.PixelsPerHour}
	m.mu.Lock()
	cached, ok := m.entries[key]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()

	if ok {
		sorted := sortByStart(blocks)
		out := make([]model.PositionedBlock, len(sorted))
		for i, b := range sorted {
			out[i] = model.PositionedBlock{Block: b, Top: cached[i].top, Height: cached[i].height, IsLast: i == len(sorted)-1}
		}
		return out
	}

	res := m.engine.LayoutSpan(blocks, dayStart, dayEnd)
	geo := make([]geometry, len(res))
	for i, p := range res {
		geo[i] = geometry{top: p.Top, height: p.Height}
	}

	m.mu.Lock()
	if len(m.entries) >= m.max {
		m.entries = make(map[memoKey][]geometry)
	}
	m.entries[key] = geo
	m.mu.Unlock()
	return res
}

// Stats returns the hit and miss counters.
func (m *Memo) Stats() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// BlockSetKey hashes the identity and interval of every block, in order.
// Non-geometric fields such as delays are left out.
func BlockSetKey(blocks []model.Block) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, b := range blocks {
		_, _ = h.Write([]byte(b.ID))
		_, _ = h.Write([]byte{0, byte(b.Kind)})
		binary.LittleEndian.PutUint64(buf[:], uint64(b.Start.UnixNano()))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(b.End.UnixNano()))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Config returns the geometry of the wrapped engine.
func (m *Memo) Config() Config { return m.engine.Config() }
