// Package ratelimit provides the per-host pacing used by the shared HTTP
// client. Each rate-limit key gets a token bucket derived from its minimum
// interval plus an optional uniform jitter band.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyConfig is the pacing for one rate-limit key (usually one host).
type KeyConfig struct {
	MinInterval time.Duration
	JitterMin   time.Duration
	JitterMax   time.Duration
	Burst       int
}

// Limiter paces requests per rate-limit key.
type Limiter struct {
	mu       sync.RWMutex
	configs  map[string]KeyConfig
	limiters map[string]*rate.Limiter
	fallback KeyConfig
}

// NewLimiter creates a limiter; keys without explicit configuration fall
// back to the supplied default.
func NewLimiter(fallback KeyConfig) *Limiter {
	if fallback.MinInterval <= 0 {
		fallback.MinInterval = 500 * time.Millisecond
	}
	if fallback.Burst <= 0 {
		fallback.Burst = 1
	}
	return &Limiter{
		configs:  make(map[string]KeyConfig),
		limiters: make(map[string]*rate.Limiter),
		fallback: fallback,
	}
}

// Configure registers the pacing for a key.
func (l *Limiter) Configure(key string, cfg KeyConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg.MinInterval <= 0 {
		cfg.MinInterval = l.fallback.MinInterval
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	l.configs[key] = cfg
	l.limiters[key] = rate.NewLimiter(rate.Every(cfg.MinInterval), cfg.Burst)
}

func (l *Limiter) get(key string) (*rate.Limiter, KeyConfig) {
	l.mu.RLock()
	lim, ok := l.limiters[key]
	cfg := l.configs[key]
	l.mu.RUnlock()
	if ok {
		return lim, cfg
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if lim, ok := l.limiters[key]; ok {
		return lim, l.configs[key]
	}
	lim = rate.NewLimiter(rate.Every(l.fallback.MinInterval), l.fallback.Burst)
	l.limiters[key] = lim
	l.configs[key] = l.fallback
	return lim, l.fallback
}

// Wait blocks until a request for the key is allowed or the context is
// cancelled, then sleeps the key's jitter if one is configured.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	lim, cfg := l.get(key)
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	if jitter := jitterFor(cfg); jitter > 0 {
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Allow reports whether a request for the key may proceed without waiting.
func (l *Limiter) Allow(key string) bool {
	lim, _ := l.get(key)
	return lim.Allow()
}

func jitterFor(cfg KeyConfig) time.Duration {
	if cfg.JitterMax <= cfg.JitterMin {
		return cfg.JitterMin
	}
	span := cfg.JitterMax - cfg.JitterMin
	return cfg.JitterMin + time.Duration(rand.Int63n(int64(span)))
}

// Stats describes the current pacing of a single key.
type Stats struct {
	Key             string        `json:"key"`
	MinInterval     time.Duration `json:"min_interval"`
	Burst           int           `json:"burst"`
	TokensAvailable float64       `json:"tokens_available"`
}

// Snapshot returns the pacing stats for every known key.
func (l *Limiter) Snapshot() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]Stats, len(l.limiters))
	for key, lim := range l.limiters {
		out[key] = Stats{
			Key:             key,
			MinInterval:     l.configs[key].MinInterval,
			Burst:           l.configs[key].Burst,
			TokensAvailable: lim.Tokens(),
		}
	}
	return out
}
