package internal

// Slru is the segmented main cache: a probation list for keys that
// arrived from the window and a protected list for keys that proved
// reuse. Overflowing the protected target demotes its LRU entry back to
// probation; the Slru itself never destroys an entry, eviction is the
// arbiter's job.
type Slru struct {
	probation    *List
	protected    *List
	protectedCap int
}

func NewSlru(protectedCap int) *Slru {
	return &Slru{
		probation:    NewList(SegProbation),
		protected:    NewList(SegProtected),
		protectedCap: protectedCap,
	}
}

func (s *Slru) Len() int {
	return s.probation.Len() + s.protected.Len()
}

// Insert places a detached entry at probation MRU.
func (s *Slru) Insert(e *Entry) {
	s.probation.PushFront(e)
}

// InsertProtected places a detached entry straight into protected,
// demoting synchronously if the target is exceeded. This is the ghost
// re-admission fast path.
func (s *Slru) InsertProtected(e *Entry) {
	s.protected.PushFront(e)
	s.demote()
}

// Victim returns the preferred main-cache eviction candidate without
// removing it: probation LRU, falling back to protected LRU only when
// probation is empty.
func (s *Slru) Victim() *Entry {
	if v := s.probation.Back(); v != nil {
		return v
	}
	return s.protected.Back()
}

// Access handles a hit on a main-cache entry. The first reuse of a
// probation entry promotes it to protected; protected hits refresh MRU.
func (s *Slru) Access(e *Entry) {
	switch e.Segment() {
	case SegProbation:
		s.probation.Remove(e)
		s.protected.PushFront(e)
		s.demote()
	case SegProtected:
		s.protected.MoveToFront(e)
	}
}

func (s *Slru) Remove(e *Entry) {
	switch e.Segment() {
	case SegProbation:
		s.probation.Remove(e)
	case SegProtected:
		s.protected.Remove(e)
	}
}

// Resize updates the protected target and demotes any overflow at once,
// so the protected cap holds immediately after the call.
func (s *Slru) Resize(protectedCap int) {
	s.protectedCap = protectedCap
	s.demote()
}

func (s *Slru) demote() {
	for s.protected.Len() > s.protectedCap {
		e := s.protected.PopTail()
		if e == nil {
			return
		}
		s.probation.PushFront(e)
	}
}

func (s *Slru) Reset() {
	s.probation.Reset()
	s.protected.Reset()
}
