package internal

// ResidentView is the container's ground-truth key set, consulted by
// the guard to keep policy metadata honest. Implementations are cheap
// wrappers over the container's own index.
type ResidentView interface {
	Contains(key string) bool
	Len() int
	Range(fn func(key string) bool)
}

// Sync is the consistency guard entry point. It is called before every
// externally visible operation; the common case is a single length
// comparison. On divergence it runs a full reconcile and reports how
// many keys were repaired.
func (e *Engine) Sync(view ResidentView) int {
	if view == nil {
		return 0
	}
	if e.entries.Len() == view.Len() {
		return 0
	}
	return e.Repair(view)
}

// Repair reconciles tracked metadata with the resident view: tracked
// keys no longer resident are dropped without ghosting, untracked
// resident keys are adopted into probation, ghosts of resident keys
// are discarded. Running Repair twice with no intervening operation is
// a no-op the second time.
func (e *Engine) Repair(view ResidentView) int {
	repaired := 0

	var stale []string
	e.entries.Scan(func(key string, _ *Entry) bool {
		if !view.Contains(key) {
			stale = append(stale, key)
		}
		return true
	})
	for _, key := range stale {
		e.Remove(key)
		repaired++
	}

	view.Range(func(key string) bool {
		if _, ok := e.entries.Get(key); !ok {
			e.Adopt(key)
			repaired++
		}
		return true
	})

	if repaired > 0 {
		e.stats.Repairs += uint64(repaired)
		e.log.Debug().
			Int("repaired", repaired).
			Int("tracked", e.entries.Len()).
			Msg("policy metadata repaired against resident set")
	}
	return repaired
}
