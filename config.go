package wtinylfu

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Window hit handling, see WindowPolicy in the internal package.
const (
	WindowPolicyLRU  = "lru"
	WindowPolicyFIFO = "fifo"
)

// Config holds every tunable of the policy engine. The source variants
// of this policy family were tuned empirically and disagree on all of
// these constants, so none of them is fixed; DefaultConfig gives a
// reasonable middle ground.
type Config struct {
	// Capacity is the object capacity of the surrounding cache.
	Capacity int64 `yaml:"capacity"`

	// WindowFraction sets the initial admission-window share of
	// capacity. The window target adapts from there at runtime.
	WindowFraction float64 `yaml:"window_fraction"`

	// ProtectedRatio is the protected share of main-cache space.
	ProtectedRatio float64 `yaml:"protected_ratio"`

	// GhostMultiplier bounds ghost history at this multiple of
	// capacity. Zero disables ghost feedback entirely.
	GhostMultiplier float64 `yaml:"ghost_multiplier"`

	// SampleMultiplier controls sketch aging cadence: counters are
	// halved every SampleMultiplier*Capacity recorded additions.
	SampleMultiplier uint `yaml:"sample_multiplier"`

	// FreqMargin is the frequency gap required to win an eviction duel
	// outright; within the margin the window challenger is evicted.
	FreqMargin uint `yaml:"freq_margin"`

	// ProtectedMargin widens FreqMargin when the main candidate holds
	// protected status.
	ProtectedMargin uint `yaml:"protected_margin"`

	// AdaptDivisor caps the per-access window-target step at
	// Capacity/AdaptDivisor (at least 1).
	AdaptDivisor int64 `yaml:"adapt_divisor"`

	// Jitter is the probability of flipping a duel decision, used to
	// break synchronized thrashing loops. Zero keeps the arbiter fully
	// deterministic.
	Jitter float64 `yaml:"jitter"`

	// WindowPolicy is "lru" (refresh window hits) or "fifo" (leave
	// window hits in place, more scan resistant).
	WindowPolicy string `yaml:"window_policy"`

	// Seed fixes all hashing and jitter randomness so eviction
	// decisions reproduce for a given access sequence.
	Seed uint64 `yaml:"seed"`

	// Logger receives guard repair and adaptation events. Nil disables
	// logging.
	Logger *zerolog.Logger `yaml:"-"`
}

// DefaultConfig returns the default tuning for the given capacity.
func DefaultConfig(capacity int64) Config {
	return Config{
		Capacity:         capacity,
		WindowFraction:   0.01,
		ProtectedRatio:   0.8,
		GhostMultiplier:  2,
		SampleMultiplier: 10,
		FreqMargin:       1,
		ProtectedMargin:  2,
		AdaptDivisor:     8,
		WindowPolicy:     WindowPolicyLRU,
		Seed:             1,
	}
}

func (c *Config) withDefaults() {
	def := DefaultConfig(c.Capacity)
	if c.WindowFraction == 0 {
		c.WindowFraction = def.WindowFraction
	}
	if c.ProtectedRatio == 0 {
		c.ProtectedRatio = def.ProtectedRatio
	}
	if c.SampleMultiplier == 0 {
		c.SampleMultiplier = def.SampleMultiplier
	}
	if c.AdaptDivisor == 0 {
		c.AdaptDivisor = def.AdaptDivisor
	}
	if c.WindowPolicy == "" {
		c.WindowPolicy = def.WindowPolicy
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
}

func (c *Config) validate() error {
	if c.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	if c.WindowFraction < 0 || c.WindowFraction >= 1 {
		return errors.New("window_fraction must be in [0, 1)")
	}
	if c.ProtectedRatio <= 0 || c.ProtectedRatio > 1 {
		return errors.New("protected_ratio must be in (0, 1]")
	}
	if c.GhostMultiplier < 0 {
		return errors.New("ghost_multiplier must not be negative")
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		return errors.New("jitter must be in [0, 1)")
	}
	if c.WindowPolicy != WindowPolicyLRU && c.WindowPolicy != WindowPolicyFIFO {
		return fmt.Errorf("unknown window_policy %q", c.WindowPolicy)
	}
	return nil
}

// LoadConfig reads a Config from a yaml file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
