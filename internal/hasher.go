package internal

import (
	"github.com/zeebo/xxh3"
)

// Hasher produces the seeded fingerprints used by the sketch and the
// ghost history. Seeding makes every frequency estimate, and therefore
// every eviction decision, reproducible for a given access sequence.
type Hasher struct {
	seed uint64
}

func NewHasher(seed uint64) Hasher {
	return Hasher{seed: seed}
}

func (h Hasher) Hash(key string) uint64 {
	return xxh3.HashStringSeed(key, h.seed)
}

func next2Power(x uint) uint {
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	return x
}

// spread mixes a fingerprint before row indexing so related keys do not
// land in correlated counters.
func spread(h uint64) uint64 {
	h ^= h >> 17
	h *= 0xed5ad4bb
	h ^= h >> 11
	h *= 0xac4c1b51
	h ^= h >> 15
	return h
}
