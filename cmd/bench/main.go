// Command bench replays synthetic access traces through the policy and
// two reference caches (ristretto, hashicorp ARC) and prints hit rates
// side by side.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"

	"github.com/dgraph-io/ristretto"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	"github.com/rs/zerolog"

	"github.com/cachelab-io/wtinylfu"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	capacity   = flag.Int64("capacity", 1000, "cache capacity in objects")
	accesses   = flag.Int("accesses", 1000000, "accesses per trace")
	seed       = flag.Int64("seed", 1, "trace rng seed")
	configPath = flag.String("config", "", "optional policy config yaml")
	verbose    = flag.Bool("v", false, "log policy adaptation events")
)

type policyCache struct {
	policy   *wtinylfu.Policy
	resident wtinylfu.MapView
	capacity int64
	accesses uint64
	hits     uint64
}

func newPolicyCache(cfg wtinylfu.Config) *policyCache {
	policy, err := wtinylfu.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	return &policyCache{
		policy:   policy,
		resident: wtinylfu.MapView{},
		capacity: cfg.Capacity,
	}
}

func (c *policyCache) Get(key string) bool {
	c.accesses++
	if c.resident.Contains(key) {
		c.hits++
		c.policy.OnHit(key, c.accesses)
		return true
	}
	for int64(c.resident.Len()) >= c.capacity {
		victim, err := c.policy.ChooseVictim(c.resident, c.capacity, key)
		if err != nil {
			log.Fatal(err)
		}
		delete(c.resident, victim)
		c.policy.OnEvict(key, victim)
	}
	c.resident[key] = struct{}{}
	c.policy.OnInsert(key, 1, c.accesses)
	return false
}

func zipfTrace(n int, seed int64) []string {
	z := rand.NewZipf(rand.New(rand.NewSource(seed)), 1.0001, 1, 100000)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", z.Uint64())
	}
	return keys
}

func loopTrace(n int, loop int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", i%loop)
	}
	return keys
}

// scanTrace interleaves a hot working set with long runs of one-time
// keys, the pattern the admission window exists for.
func scanTrace(n int, hot int, seed int64) []string {
	r := rand.New(rand.NewSource(seed))
	keys := make([]string, n)
	scan := 0
	for i := range keys {
		if i%4 == 0 {
			scan++
			keys[i] = fmt.Sprintf("scan:%d", scan)
		} else {
			keys[i] = fmt.Sprintf("hot:%d", r.Intn(hot))
		}
	}
	return keys
}

func runPolicy(cfg wtinylfu.Config, trace []string) float64 {
	cache := newPolicyCache(cfg)
	for _, key := range trace {
		cache.Get(key)
	}
	return float64(cache.hits) / float64(cache.accesses)
}

func runRistretto(capacity int64, trace []string) float64 {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		log.Fatal(err)
	}
	var hits uint64
	for _, key := range trace {
		if _, ok := client.Get(key); ok {
			hits++
		} else {
			client.Set(key, key, 1)
			client.Wait()
		}
	}
	return float64(hits) / float64(len(trace))
}

func runARC(capacity int64, trace []string) float64 {
	client, err := arc.NewARC[string, string](int(capacity))
	if err != nil {
		log.Fatal(err)
	}
	var hits uint64
	for _, key := range trace {
		if _, ok := client.Get(key); ok {
			hits++
		} else {
			client.Add(key, key)
		}
	}
	return float64(hits) / float64(len(trace))
}

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := wtinylfu.DefaultConfig(*capacity)
	if *configPath != "" {
		loaded, err := wtinylfu.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if *verbose {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
		cfg.Logger = &logger
	}

	traces := []struct {
		name string
		keys []string
	}{
		{"zipf", zipfTrace(*accesses, *seed)},
		{"loop-1.2x", loopTrace(*accesses, int(float64(cfg.Capacity)*1.2))},
		{"scan-mix", scanTrace(*accesses, int(cfg.Capacity), *seed)},
	}

	fmt.Printf("%-10s %10s %10s %10s\n", "trace", "policy", "ristretto", "arc")
	for _, tr := range traces {
		fmt.Printf("%-10s %9.2f%% %9.2f%% %9.2f%%\n",
			tr.name,
			runPolicy(cfg, tr.keys)*100,
			runRistretto(cfg.Capacity, tr.keys)*100,
			runARC(cfg.Capacity, tr.keys)*100,
		)
	}
}
