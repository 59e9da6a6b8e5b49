// Package wtinylfu implements an adaptive W-TinyLFU cache replacement
// policy: an admission window in front of a segmented LRU main cache,
// a count-min frequency sketch arbitrating evictions, and an ARC-style
// ghost history that resizes the window from "should have kept this"
// feedback. The policy only tracks metadata; the surrounding container
// owns values, sizes and capacity accounting and drives the policy
// through ChooseVictim, OnHit, OnInsert and OnEvict.
package wtinylfu

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cachelab-io/wtinylfu/internal"
)

// ResidentView is the container's ground-truth resident key set,
// consulted by the consistency guard.
type ResidentView = internal.ResidentView

// Stats is a snapshot of policy counters and adaptive targets.
type Stats = internal.Stats

// Policy is one replacement-policy engine instance. All state lives in
// the struct; multiple engines coexist side by side. Methods are safe
// for concurrent use through a single internal mutex; callers needing
// more parallelism should stripe whole Policy instances by key hash.
type Policy struct {
	mu       sync.Mutex
	engine   *internal.Engine
	capacity int64
}

// New constructs a Policy from cfg, applying defaults to zero fields.
func New(cfg Config) (*Policy, error) {
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	windowPolicy := internal.WindowLRU
	if cfg.WindowPolicy == WindowPolicyFIFO {
		windowPolicy = internal.WindowFIFO
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	engine := internal.NewEngine(internal.Options{
		Capacity:         cfg.Capacity,
		WindowFraction:   cfg.WindowFraction,
		ProtectedRatio:   cfg.ProtectedRatio,
		GhostMultiplier:  cfg.GhostMultiplier,
		SampleMultiplier: cfg.SampleMultiplier,
		FreqMargin:       cfg.FreqMargin,
		ProtectedMargin:  cfg.ProtectedMargin,
		AdaptDivisor:     cfg.AdaptDivisor,
		Jitter:           cfg.Jitter,
		WindowPolicy:     windowPolicy,
		Seed:             cfg.Seed,
		Logger:           logger,
	})
	return &Policy{engine: engine, capacity: cfg.Capacity}, nil
}

// ChooseVictim returns the key to evict so the container can free one
// unit of space before admitting incoming. The returned key is always
// a member of resident; anything else is a fatal contract violation
// and reported as ErrNotResident. Called repeatedly (with OnEvict in
// between) until enough space is free.
func (p *Policy) ChooseVictim(resident ResidentView, capacity int64, incoming string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if capacity > 0 && capacity != p.capacity {
		p.capacity = capacity
		p.engine.Resize(capacity)
	}
	p.engine.Sync(resident)

	victim := p.engine.Victim()
	if victim == nil {
		if resident == nil || resident.Len() == 0 {
			return "", ErrNoVictim
		}
		// tracked nothing while keys are resident: guard failure,
		// force a full repair and retry once
		p.engine.Repair(resident)
		victim = p.engine.Victim()
		if victim == nil {
			return "", ErrNoVictim
		}
	}
	if resident != nil && !resident.Contains(victim.Key()) {
		p.engine.Repair(resident)
		victim = p.engine.Victim()
		if victim == nil || !resident.Contains(victim.Key()) {
			return "", fmt.Errorf("choose victim for %q: %w", incoming, ErrNotResident)
		}
	}
	return victim.Key(), nil
}

// OnHit records a container-recognized hit. Never called for keys
// absent from the resident set.
func (p *Policy) OnHit(key string, accessIndex uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Hit(key, accessIndex)
}

// OnInsert records that the container placed key into residency, after
// zero or more ChooseVictim/OnEvict rounds freed sufficient space.
func (p *Policy) OnInsert(key string, size int64, accessIndex uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Insert(key, size, accessIndex)
}

// OnEvict records that the container physically removed evicted while
// admitting incoming. Must precede OnInsert for incoming.
func (p *Policy) OnEvict(incoming, evicted string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Evicted(incoming, evicted)
}

// Reset clears all policy state for a new trace or session. The
// container calls this at trace boundaries instead of relying on the
// engine to infer them from access-index regression.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Reset()
}

// Stats returns a snapshot of hit, eviction, ghost and repair counters
// together with the current adaptive targets.
func (p *Policy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Stats()
}

// MapView adapts a plain key set to a ResidentView.
type MapView map[string]struct{}

func (m MapView) Contains(key string) bool {
	_, ok := m[key]
	return ok
}

func (m MapView) Len() int {
	return len(m)
}

func (m MapView) Range(fn func(key string) bool) {
	for key := range m {
		if !fn(key) {
			return
		}
	}
}
