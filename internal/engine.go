package internal

import (
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/tidwall/hashmap"
)

// Options carries the engine tunables. The variants of this policy
// family were tuned empirically and disagree on constants, so nothing
// here is hardcoded.
type Options struct {
	Capacity         int64
	WindowFraction   float64
	ProtectedRatio   float64
	GhostMultiplier  float64
	SampleMultiplier uint
	FreqMargin       uint
	ProtectedMargin  uint
	AdaptDivisor     int64
	Jitter           float64
	WindowPolicy     WindowPolicy
	Seed             uint64
	Logger           zerolog.Logger
}

// Stats is a point-in-time snapshot of engine counters and targets.
type Stats struct {
	Hits            uint64
	Misses          uint64
	Evictions       uint64
	GhostWindowHits uint64
	GhostMainHits   uint64
	Repairs         uint64
	WindowTarget    int64
	ProtectedTarget int64
}

// Engine owns all replacement-policy state for one cache instance: the
// admission window, the segmented main cache, the frequency sketch and
// the ghost history. It is not safe for concurrent use; the caller
// serializes access.
type Engine struct {
	capacity        int64
	windowTarget    int64
	windowInitial   int64
	windowMin       int64
	protectedRatio  float64
	ghostMultiplier float64
	adaptDivisor    int64
	stepCap         int64

	freqMargin      uint
	protectedMargin uint
	jitter          float64

	window  *Window
	slru    *Slru
	sketch  *CountMinSketch
	ghost   *GhostHistory
	entries *hashmap.Map[string, *Entry]
	hasher  Hasher
	rand    *rand.Rand

	accessIndex uint64
	stats       Stats
	log         zerolog.Logger
}

func NewEngine(o Options) *Engine {
	if o.AdaptDivisor <= 0 {
		o.AdaptDivisor = 8
	}
	e := &Engine{
		capacity:        o.Capacity,
		windowMin:       1,
		protectedRatio:  o.ProtectedRatio,
		ghostMultiplier: o.GhostMultiplier,
		adaptDivisor:    o.AdaptDivisor,
		freqMargin:      o.FreqMargin,
		protectedMargin: o.ProtectedMargin,
		jitter:          o.Jitter,
		window:          NewWindow(o.WindowPolicy),
		sketch:          NewCountMinSketch(uint(o.Capacity), o.SampleMultiplier, o.Seed),
		ghost:           NewGhostHistory(int(o.GhostMultiplier * float64(o.Capacity))),
		entries:         hashmap.New[string, *Entry](int(o.Capacity)),
		hasher:          NewHasher(o.Seed),
		rand:            rand.New(rand.NewSource(int64(o.Seed))),
		log:             o.Logger,
	}
	e.windowInitial = clampInt64(int64(o.WindowFraction*float64(o.Capacity)), e.windowMin, e.maxWindow())
	e.windowTarget = e.windowInitial
	e.stepCap = maxInt64(1, o.Capacity/o.AdaptDivisor)
	e.slru = NewSlru(e.protectedCap())
	return e
}

func (e *Engine) maxWindow() int64 {
	if e.capacity <= 1 {
		return 1
	}
	return e.capacity - 1
}

func (e *Engine) protectedCap() int {
	main := e.capacity - e.windowTarget
	if main <= 0 {
		return 0
	}
	cap := int(float64(main) * e.protectedRatio)
	if cap < 1 {
		cap = 1
	}
	return cap
}

// Len returns the number of tracked resident keys.
func (e *Engine) Len() int {
	return e.entries.Len()
}

func (e *Engine) Entry(key string) (*Entry, bool) {
	return e.entries.Get(key)
}

func (e *Engine) WindowTarget() int64 {
	return e.windowTarget
}

func (e *Engine) ProtectedLen() int {
	return e.slru.protected.Len()
}

func (e *Engine) ProtectedCap() int {
	return e.slru.protectedCap
}

func (e *Engine) Ghost() *GhostHistory {
	return e.ghost
}

func (e *Engine) Stats() Stats {
	s := e.stats
	s.WindowTarget = e.windowTarget
	s.ProtectedTarget = int64(e.slru.protectedCap)
	return s
}

// Observe advances the engine clock. An access index running backwards
// is a missed Reset in the container; it is logged, not acted on.
func (e *Engine) Observe(accessIndex uint64) {
	if accessIndex < e.accessIndex {
		e.log.Warn().
			Uint64("index", accessIndex).
			Uint64("previous", e.accessIndex).
			Msg("access index regressed, container should call Reset at trace boundaries")
	}
	e.accessIndex = accessIndex
}

// Hit updates recency and frequency for a resident key: window hits
// follow the window policy, probation hits promote to protected,
// protected hits refresh MRU.
func (e *Engine) Hit(key string, accessIndex uint64) {
	e.Observe(accessIndex)
	ent, ok := e.entries.Get(key)
	if !ok {
		// container promised residency; adopt conservatively
		e.Adopt(key)
		ent, _ = e.entries.Get(key)
	}
	e.sketch.Add(ent.fp)
	e.stats.Hits++
	switch ent.Segment() {
	case SegWindow:
		e.window.Access(ent)
	case SegProbation, SegProtected:
		e.slru.Access(ent)
	}
}

// Insert admits a key the container just made resident. A ghost hit
// re-admits straight into protected and feeds the admission controller;
// everything else starts its trial in the window.
func (e *Engine) Insert(key string, size int64, accessIndex uint64) {
	e.Observe(accessIndex)
	if old, ok := e.entries.Get(key); ok {
		// already tracked, treat as a touch
		e.sketch.Add(old.fp)
		return
	}
	fp := e.hasher.Hash(key)
	ent := NewEntry(key, size, fp)
	e.entries.Set(key, ent)
	e.stats.Misses++

	if origin, _, ok := e.ghost.Consume(fp); ok {
		e.adapt(origin)
		e.slru.InsertProtected(ent)
	} else {
		e.window.Admit(ent)
	}
	e.spillWindow()
	e.sketch.Add(fp)
}

// Evicted records that the container physically removed evicted while
// admitting incoming. The ghost entry keeps the origin segment so the
// next insertion of the same key can steer the window target.
func (e *Engine) Evicted(incoming, evicted string) {
	ent, ok := e.entries.Get(evicted)
	if !ok {
		return
	}
	origin := originOf(ent.Segment())
	e.detach(ent)
	e.entries.Delete(evicted)
	e.ghost.Add(ent.fp, origin, e.accessIndex)
	e.stats.Evictions++
}

// Remove untracks a key without leaving a ghost. Guard use only.
func (e *Engine) Remove(key string) {
	if ent, ok := e.entries.Get(key); ok {
		e.detach(ent)
		e.entries.Delete(key)
	}
}

// Adopt starts tracking a resident key the engine has no record of.
// Probation, not window: an untracked resident already survived
// admission once, assuming it is brand new would be wrong more often.
func (e *Engine) Adopt(key string) {
	if _, ok := e.entries.Get(key); ok {
		return
	}
	fp := e.hasher.Hash(key)
	e.ghost.Drop(fp)
	ent := NewEntry(key, 1, fp)
	e.entries.Set(key, ent)
	e.slru.Insert(ent)
}

func (e *Engine) detach(ent *Entry) {
	switch ent.Segment() {
	case SegWindow:
		e.window.Remove(ent)
	case SegProbation, SegProtected:
		e.slru.Remove(ent)
	}
}

// Victim selects the next eviction candidate by dueling the window LRU
// against the main-cache LRU on estimated frequency. Returns nil only
// when nothing is tracked.
func (e *Engine) Victim() *Entry {
	w := e.window.Victim()
	m := e.slru.Victim()
	switch {
	case w == nil && m == nil:
		return nil
	case w == nil:
		return m
	case m == nil:
		return w
	}

	victim := e.duel(w, m)
	if e.jitter > 0 && e.rand.Float64() < e.jitter {
		// flip the decision to break synchronized thrashing loops
		if victim == w {
			return m
		}
		return w
	}
	return victim
}

func (e *Engine) duel(w, m *Entry) *Entry {
	wf := e.sketch.Estimate(w.fp)
	mf := e.sketch.Estimate(m.fp)

	if int64(e.window.Len()) < e.windowTarget {
		// window has room to grow: take space from main unless its
		// candidate is demonstrably hotter than the window's
		if mf > wf+e.freqMargin {
			return w
		}
		return m
	}

	margin := e.freqMargin
	if m.Segment() == SegProtected {
		// displacing proven value needs a strictly larger gap
		margin += e.protectedMargin
	}
	if wf > mf+margin {
		return m
	}
	// ties and near-ties evict the challenger
	return w
}

// adapt is the ARC-style admission controller: a window-origin ghost
// hit means the window keeps giving up keys that return, so it grows;
// a main-origin ghost hit shrinks it. Steps scale with the opposing
// ghost population and are clamped to stepCap per access.
func (e *Engine) adapt(origin Origin) {
	var step int64
	if origin == OriginWindow {
		e.stats.GhostWindowHits++
		step = ratioStep(e.ghost.MainLen(), e.ghost.WindowLen(), e.stepCap)
		e.windowTarget = clampInt64(e.windowTarget+step, e.windowMin, e.maxWindow())
	} else {
		e.stats.GhostMainHits++
		step = ratioStep(e.ghost.WindowLen(), e.ghost.MainLen(), e.stepCap)
		e.windowTarget = clampInt64(e.windowTarget-step, e.windowMin, e.maxWindow())
	}
	e.slru.Resize(e.protectedCap())
	e.spillWindow()
	e.log.Debug().
		Str("origin", origin.String()).
		Int64("step", step).
		Int64("window_target", e.windowTarget).
		Msg("admission target adjusted")
}

// spillWindow moves window overflow into probation until occupancy is
// back at target.
func (e *Engine) spillWindow() {
	for int64(e.window.Len()) > e.windowTarget {
		ent := e.window.PopOverflow()
		if ent == nil {
			return
		}
		e.slru.Insert(ent)
	}
}

// Resize re-derives all targets for a new capacity. Resident entries
// are kept; the container frees any overflow through normal eviction.
func (e *Engine) Resize(capacity int64) {
	if capacity == e.capacity || capacity <= 0 {
		return
	}
	e.capacity = capacity
	e.stepCap = maxInt64(1, capacity/e.adaptDivisor)
	e.windowTarget = clampInt64(e.windowTarget, e.windowMin, e.maxWindow())
	e.windowInitial = clampInt64(e.windowInitial, e.windowMin, e.maxWindow())
	e.ghost.Resize(int(e.ghostMultiplier * float64(capacity)))
	e.slru.Resize(e.protectedCap())
	e.spillWindow()
}

// Reset clears all metadata for a new trace: segments, ghosts, sketch,
// counters, and the adaptive target back to its configured default.
func (e *Engine) Reset() {
	e.window.Reset()
	e.slru.Reset()
	e.ghost.Reset()
	e.sketch.Reset()
	e.entries = hashmap.New[string, *Entry](int(e.capacity))
	e.windowTarget = e.windowInitial
	e.slru.Resize(e.protectedCap())
	e.accessIndex = 0
	e.stats = Stats{}
}

func originOf(seg uint8) Origin {
	switch seg {
	case SegProbation:
		return OriginProbation
	case SegProtected:
		return OriginProtected
	}
	return OriginWindow
}

func ratioStep(num, den int, cap int64) int64 {
	step := int64(1)
	if den > 0 && num > den {
		step = int64(num / den)
	}
	if step > cap {
		step = cap
	}
	return step
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
