package wtinylfu_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/dgraph-io/ristretto"
	arc "github.com/hashicorp/golang-lru/arc/v2"

	"github.com/cachelab-io/wtinylfu"
)

// Fixed RNG seed so hit rates are comparable between runs.
const benchSeed = 1

// benchCache drives the policy as a standalone container, mirroring
// how an embedding cache would.
type benchCache struct {
	policy   *wtinylfu.Policy
	resident wtinylfu.MapView
	capacity int64
	accesses uint64
	hits     uint64
}

func newBenchCache(capacity int64) *benchCache {
	policy, err := wtinylfu.New(wtinylfu.DefaultConfig(capacity))
	if err != nil {
		panic(err)
	}
	return &benchCache{
		policy:   policy,
		resident: wtinylfu.MapView{},
		capacity: capacity,
	}
}

func (c *benchCache) Get(key string) bool {
	c.accesses++
	if c.resident.Contains(key) {
		c.hits++
		c.policy.OnHit(key, c.accesses)
		return true
	}
	for int64(c.resident.Len()) >= c.capacity {
		victim, err := c.policy.ChooseVictim(c.resident, c.capacity, key)
		if err != nil {
			panic(err)
		}
		delete(c.resident, victim)
		c.policy.OnEvict(key, victim)
	}
	c.resident[key] = struct{}{}
	c.policy.OnInsert(key, 1, c.accesses)
	return false
}

func zipfKeys(n int) []string {
	z := rand.NewZipf(rand.New(rand.NewSource(benchSeed)), 1.0001, 1, 100000)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", z.Uint64())
	}
	return keys
}

func loopKeys(n, loop int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", i%loop)
	}
	return keys
}

func BenchmarkZipfPolicy(b *testing.B) {
	keys := zipfKeys(100000)
	cache := newBenchCache(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(keys[i%len(keys)])
	}
	b.ReportMetric(float64(cache.hits)/float64(cache.accesses), "hitrate")
}

func BenchmarkZipfRistretto(b *testing.B) {
	keys := zipfKeys(100000)
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	var hits, total uint64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[i%len(keys)]
		total++
		if _, ok := client.Get(key); ok {
			hits++
		} else {
			client.Set(key, key, 1)
		}
	}
	b.ReportMetric(float64(hits)/float64(total), "hitrate")
}

func BenchmarkZipfARC(b *testing.B) {
	keys := zipfKeys(100000)
	client, err := arc.NewARC[string, string](1000)
	if err != nil {
		panic(err)
	}
	var hits, total uint64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := keys[i%len(keys)]
		total++
		if _, ok := client.Get(key); ok {
			hits++
		} else {
			client.Add(key, key)
		}
	}
	b.ReportMetric(float64(hits)/float64(total), "hitrate")
}

// A loop slightly larger than the cache is the classic LRU worst case;
// the duel plus ghost feedback should keep the hit rate well above
// zero.
func BenchmarkLoopPolicy(b *testing.B) {
	keys := loopKeys(100000, 1200)
	cache := newBenchCache(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(keys[i%len(keys)])
	}
	b.ReportMetric(float64(cache.hits)/float64(cache.accesses), "hitrate")
}
