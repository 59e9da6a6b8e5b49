package internal

import (
	"github.com/tidwall/hashmap"
)

// Origin records which segment a key was evicted from, so a later
// re-insertion can tell whether the window or the main cache gave it up.
type Origin uint8

const (
	OriginWindow Origin = iota
	OriginProbation
	OriginProtected
)

func (o Origin) String() string {
	switch o {
	case OriginWindow:
		return "window"
	case OriginProbation:
		return "probation"
	case OriginProtected:
		return "protected"
	}
	return "unknown"
}

// IsMain reports whether the origin is one of the main-cache segments.
func (o Origin) IsMain() bool {
	return o == OriginProbation || o == OriginProtected
}

// GhostEntry is a metadata-only record of an evicted key: fingerprint,
// provenance and eviction time, no payload.
type GhostEntry struct {
	fp     uint64
	origin Origin
	at     uint64
	prev   *GhostEntry
	next   *GhostEntry
}

// GhostHistory is a bounded FIFO of ghost entries with a fingerprint
// index for O(1) membership checks. A single list holds both window-
// and main-origin ghosts; per-origin counts are maintained for the
// adaptation step ratio. Trimming always drops the FIFO-oldest entry,
// never a sampled one, so ghost state is deterministic.
type GhostHistory struct {
	index     *hashmap.Map[uint64, *GhostEntry]
	root      GhostEntry // sentinel: root.next oldest, root.prev newest
	capacity  int
	len       int
	windowLen int
	mainLen   int
}

func NewGhostHistory(capacity int) *GhostHistory {
	g := &GhostHistory{
		index:    hashmap.New[uint64, *GhostEntry](capacity),
		capacity: capacity,
	}
	g.root.next = &g.root
	g.root.prev = &g.root
	return g
}

func (g *GhostHistory) Len() int       { return g.len }
func (g *GhostHistory) WindowLen() int { return g.windowLen }
func (g *GhostHistory) MainLen() int   { return g.mainLen }

// Add records an eviction. A fingerprint already present is refreshed
// in place: moved to the newest position with updated provenance.
func (g *GhostHistory) Add(fp uint64, origin Origin, at uint64) {
	if g.capacity <= 0 {
		return
	}
	if e, ok := g.index.Get(fp); ok {
		g.count(e.origin, -1)
		e.origin = origin
		e.at = at
		g.count(origin, 1)
		g.unlink(e)
		g.linkNewest(e)
		return
	}
	e := &GhostEntry{fp: fp, origin: origin, at: at}
	g.index.Set(fp, e)
	g.linkNewest(e)
	g.len++
	g.count(origin, 1)
	for g.len > g.capacity {
		g.dropOldest()
	}
}

// Consume removes and returns the ghost record for fp, if any. A ghost
// is consulted at most once.
func (g *GhostHistory) Consume(fp uint64) (Origin, uint64, bool) {
	e, ok := g.index.Get(fp)
	if !ok {
		return 0, 0, false
	}
	g.remove(e)
	return e.origin, e.at, true
}

// Drop discards the ghost record for fp without consulting it. Used by
// the guard when an allegedly evicted key turns out to be resident.
func (g *GhostHistory) Drop(fp uint64) {
	if e, ok := g.index.Get(fp); ok {
		g.remove(e)
	}
}

// Resize rebounds the history, trimming oldest-first if it shrank.
func (g *GhostHistory) Resize(capacity int) {
	g.capacity = capacity
	for g.len > g.capacity {
		g.dropOldest()
	}
}

func (g *GhostHistory) Reset() {
	g.index = hashmap.New[uint64, *GhostEntry](g.capacity)
	g.root.next = &g.root
	g.root.prev = &g.root
	g.len = 0
	g.windowLen = 0
	g.mainLen = 0
}

func (g *GhostHistory) remove(e *GhostEntry) {
	g.index.Delete(e.fp)
	g.unlink(e)
	g.len--
	g.count(e.origin, -1)
}

func (g *GhostHistory) dropOldest() {
	if g.root.next == &g.root {
		return
	}
	g.remove(g.root.next)
}

func (g *GhostHistory) linkNewest(e *GhostEntry) {
	e.prev = g.root.prev
	e.next = &g.root
	e.prev.next = e
	e.next.prev = e
}

func (g *GhostHistory) unlink(e *GhostEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (g *GhostHistory) count(origin Origin, delta int) {
	if origin == OriginWindow {
		g.windowLen += delta
	} else {
		g.mainLen += delta
	}
}
