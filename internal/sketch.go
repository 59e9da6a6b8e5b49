package internal

const (
	sketchDepth = 4
	counterMax  = 0xF
	// keeps nibble boundaries intact after a whole-word right shift
	halfMask      = 0x7777777777777777
	minCounters   = 64
	minSampleSize = 10
)

// per-row seed constants, mixed with the engine seed at construction
var rowSeeds = [sketchDepth]uint64{
	0x9e3779b97f4a7c15,
	0xbf58476d1ce4e5b9,
	0x94d049bb133111eb,
	0x2545f4914f6cdd1d,
}

// CountMinSketch is an approximate frequency counter: sketchDepth rows
// of 4-bit counters, 16 packed per uint64 word, probed via seeded
// hashes. A doorkeeper bitset absorbs one-hit-wonders so a counter slot
// is only spent once a key has been seen twice. Every sampleSize
// additions the whole table is halved and the doorkeeper cleared, so
// recent activity dominates stale history.
type CountMinSketch struct {
	rows       [sketchDepth][]uint64
	seeds      [sketchDepth]uint64
	mask       uint64
	door       []uint64
	doorMask   uint64
	additions  uint
	sampleSize uint
}

// NewCountMinSketch sizes the table for the given capacity (counters
// per row: next power of two >= capacity) and ages every
// sampleMultiplier*capacity additions.
func NewCountMinSketch(capacity uint, sampleMultiplier uint, seed uint64) *CountMinSketch {
	if capacity == 0 {
		capacity = 1
	}
	counters := next2Power(capacity)
	if counters < minCounters {
		counters = minCounters
	}
	s := &CountMinSketch{
		mask:       uint64(counters - 1),
		doorMask:   uint64(counters - 1),
		sampleSize: sampleMultiplier * capacity,
	}
	if s.sampleSize < minSampleSize {
		s.sampleSize = minSampleSize
	}
	for i := range s.rows {
		s.rows[i] = make([]uint64, counters/16)
		s.seeds[i] = rowSeeds[i] ^ seed
	}
	s.door = make([]uint64, (counters+63)/64)
	return s
}

func (s *CountMinSketch) position(h uint64, row int) (word uint64, shift uint64) {
	c := spread(h^s.seeds[row]) & s.mask
	return c >> 4, (c & 0xF) << 2
}

// seenOrAdd reports whether the doorkeeper bit for h was already set,
// setting it if not.
func (s *CountMinSketch) seenOrAdd(h uint64) bool {
	bit := h & s.doorMask
	word, mask := bit>>6, uint64(1)<<(bit&63)
	if s.door[word]&mask != 0 {
		return true
	}
	s.door[word] |= mask
	return false
}

func (s *CountMinSketch) seen(h uint64) bool {
	bit := h & s.doorMask
	return s.door[bit>>6]&(uint64(1)<<(bit&63)) != 0
}

// Add records one observation of h. Returns true when the observation
// triggered an aging pass.
func (s *CountMinSketch) Add(h uint64) bool {
	if !s.seenOrAdd(h) {
		// first sight goes to the doorkeeper only
		return s.bump()
	}
	added := false
	for row := 0; row < sketchDepth; row++ {
		word, shift := s.position(h, row)
		if (s.rows[row][word]>>shift)&counterMax != counterMax {
			s.rows[row][word] += 1 << shift
			added = true
		}
	}
	if added {
		return s.bump()
	}
	return false
}

func (s *CountMinSketch) bump() bool {
	s.additions++
	if s.additions >= s.sampleSize {
		s.age()
		return true
	}
	return false
}

// Estimate returns the approximate observation count for h: the minimum
// across rows, plus one when the doorkeeper holds the first sight.
// Unseen keys estimate to zero.
func (s *CountMinSketch) Estimate(h uint64) uint {
	if !s.seen(h) {
		return 0
	}
	est := uint(counterMax)
	for row := 0; row < sketchDepth; row++ {
		word, shift := s.position(h, row)
		if v := uint((s.rows[row][word] >> shift) & counterMax); v < est {
			est = v
		}
	}
	return est + 1
}

// age halves every counter and clears the doorkeeper.
func (s *CountMinSketch) age() {
	for row := range s.rows {
		for i, w := range s.rows[row] {
			s.rows[row][i] = (w >> 1) & halfMask
		}
	}
	for i := range s.door {
		s.door[i] = 0
	}
	s.additions >>= 1
}

// Reset clears all counters, the doorkeeper and the addition count.
func (s *CountMinSketch) Reset() {
	for row := range s.rows {
		for i := range s.rows[row] {
			s.rows[row][i] = 0
		}
	}
	for i := range s.door {
		s.door[i] = 0
	}
	s.additions = 0
}

// Additions exposes the current sample progress, used by tests.
func (s *CountMinSketch) Additions() uint {
	return s.additions
}
