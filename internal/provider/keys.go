// Package provider is the federation layer that owns every outbound call:
// key rotation, budget tiers, circuit breaking and cross-provider content
// dedup, composed into one guarded call path.
package provider

import (
	"sync"
	"time"
)

// KeyRotator walks a pool of credentials, skipping exhausted keys. All
// mutation happens under the lock; a monthly reset is applied lazily inside
// rotation when every key is exhausted and a month boundary has passed.
type KeyRotator struct {
	mu             sync.Mutex
	keys           []string
	exhausted      []bool
	usage          []int64
	index          int
	lastResetYear  int
	lastResetMonth time.Month
	now            func() time.Time
}

// NewKeyRotator creates a rotator over the given credential pool.
func NewKeyRotator(keys []string) *KeyRotator {
	now := time.Now().UTC()
	return &KeyRotator{
		keys:           keys,
		exhausted:      make([]bool, len(keys)),
		usage:          make([]int64, len(keys)),
		lastResetYear:  now.Year(),
		lastResetMonth: now.Month(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the rotator's clock, for tests.
func (r *KeyRotator) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Current returns the active key; ok is false when every key is exhausted
// or the pool is empty.
func (r *KeyRotator) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 || r.exhausted[r.index] {
		return "", false
	}
	return r.keys[r.index], true
}

// MarkExhausted flags the active key and advances to the next live one when
// possible.
func (r *KeyRotator) MarkExhausted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return
	}
	r.exhausted[r.index] = true
	r.advanceLocked()
}

// RotateToNext advances one step. When every key is exhausted it attempts a
// monthly reset, allowed only after a month boundary has been crossed since
// the last reset. Returns true when a usable key is active afterwards.
func (r *KeyRotator) RotateToNext() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return false
	}
	if r.advanceLocked() {
		return true
	}

	now := r.now()
	if now.Year() == r.lastResetYear && now.Month() == r.lastResetMonth {
		return false
	}
	r.resetAllLocked()
	return true
}

// advanceLocked moves the index to the next non-exhausted key, wrapping
// modulo the pool size. Returns false when none remain.
func (r *KeyRotator) advanceLocked() bool {
	for step := 1; step <= len(r.keys); step++ {
		candidate := (r.index + step) % len(r.keys)
		if !r.exhausted[candidate] {
			r.index = candidate
			return true
		}
	}
	return !r.exhausted[r.index]
}

// RecordCall increments the active key's usage counter.
func (r *KeyRotator) RecordCall() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) > 0 {
		r.usage[r.index]++
	}
}

// ResetAll clears the exhausted set and usage counters and stamps the reset
// month.
func (r *KeyRotator) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetAllLocked()
}

func (r *KeyRotator) resetAllLocked() {
	for i := range r.exhausted {
		r.exhausted[i] = false
		r.usage[i] = 0
	}
	r.index = 0
	now := r.now()
	r.lastResetYear = now.Year()
	r.lastResetMonth = now.Month()
}

// KeyStats describes the pool state.
type KeyStats struct {
	PoolSize  int     `json:"pool_size"`
	Active    int     `json:"active_index"`
	Exhausted int     `json:"exhausted"`
	Usage     []int64 `json:"usage"`
}

// Stats returns a snapshot of the pool.
func (r *KeyRotator) Stats() KeyStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	exhausted := 0
	for _, e := range r.exhausted {
		if e {
			exhausted++
		}
	}
	usage := make([]int64, len(r.usage))
	copy(usage, r.usage)
	return KeyStats{
		PoolSize:  len(r.keys),
		Active:    r.index,
		Exhausted: exhausted,
		Usage:     usage,
	}
}
