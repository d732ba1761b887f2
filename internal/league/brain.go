// Package league decides which leagues each scan cycle covers: Tier 1
// always, Tier 2 in rotating batches, optionally narrowed to leagues whose
// active-hours window contains the current UTC hour.
package league

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/config"
)

// Brain is the process-wide league scheduler. All mutation happens under
// the lock; ForCycle is called once per cycle from the main loop.
type Brain struct {
	tier1   []string
	tier2   []string
	leagues map[string]config.LeagueConfig

	perCycle      int
	dryThreshold  int
	fallbackLimit int

	mu            sync.Mutex
	cursor        int
	dryCycles     int
	fallbackUsed  int
	fallbackDay   time.Time
	clock         func() time.Time
}

// NewBrain builds the scheduler from the tier lists and pipeline gates.
func NewBrain(tiers config.TiersConfig, leagues map[string]config.LeagueConfig, p config.PipelineConfig) *Brain {
	b := &Brain{
		tier1:         append([]string(nil), tiers.Tier1...),
		tier2:         append([]string(nil), tiers.Tier2...),
		leagues:       leagues,
		perCycle:      p.Tier2PerCycle,
		dryThreshold:  p.Tier2DryCycles,
		fallbackLimit: p.Tier2FallbackDailyMax,
		clock:         time.Now,
	}
	if b.perCycle <= 0 {
		b.perCycle = 3
	}
	if b.dryThreshold <= 0 {
		b.dryThreshold = 4
	}
	if b.fallbackLimit <= 0 {
		b.fallbackLimit = 6
	}
	return b
}

// SetClock injects a deterministic clock for tests.
func (b *Brain) SetClock(fn func() time.Time) {
	b.mu.Lock()
	b.clock = fn
	b.mu.Unlock()
}

// ForCycle returns the league keys this cycle should scan. Emergency mode
// restricts to Tier 1 only.
func (b *Brain) ForCycle(emergency bool) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock().UTC()
	b.rolloverLocked(now)

	selected := append([]string(nil), b.tier1...)
	if !emergency {
		selected = append(selected, b.nextBatchLocked()...)
		if b.dryCycles >= b.dryThreshold && b.fallbackUsed < b.fallbackLimit {
			extra := b.nextBatchLocked()
			if len(extra) > 0 {
				selected = append(selected, extra...)
				b.fallbackUsed++
				b.dryCycles = 0
				log.Info().Strs("leagues", extra).Int("used_today", b.fallbackUsed).
					Msg("tier-2 fallback batch activated after dry streak")
			}
		}
	}

	return b.filterActiveLocked(dedupe(selected), now)
}

// nextBatchLocked advances the round-robin cursor and returns up to
// perCycle distinct Tier 2 leagues. An empty Tier 2 yields nothing.
func (b *Brain) nextBatchLocked() []string {
	n := len(b.tier2)
	if n == 0 {
		return nil
	}
	count := b.perCycle
	if count > n {
		count = n
	}
	batch := make([]string, 0, count)
	for i := 0; i < count; i++ {
		batch = append(batch, b.tier2[(b.cursor+i)%n])
	}
	b.cursor = (b.cursor + count) % n
	return batch
}

// filterActiveLocked applies the follow-the-sun restriction. Leagues with
// no configured window are always eligible; if the filter would empty the
// selection entirely, the unfiltered set stands.
func (b *Brain) filterActiveLocked(keys []string, now time.Time) []string {
	hour := now.Hour()
	active := keys[:0:0]
	for _, k := range keys {
		lc, ok := b.leagues[k]
		if !ok || lc.ActiveHours == nil || lc.ActiveHours.Contains(hour) {
			active = append(active, k)
		}
	}
	if len(active) == 0 {
		return keys
	}
	return active
}

// RecordCycleOutcome updates the dry-cycle streak. Any alert resets it.
func (b *Brain) RecordCycleOutcome(alerts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if alerts > 0 {
		b.dryCycles = 0
		return
	}
	b.dryCycles++
}

// rolloverLocked resets the fallback daily counter on UTC-day change.
func (b *Brain) rolloverLocked(now time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !day.Equal(b.fallbackDay) {
		b.fallbackDay = day
		b.fallbackUsed = 0
	}
}

// Stats is a point-in-time snapshot for the status surface.
type Stats struct {
	Cursor       int `json:"cursor"`
	DryCycles    int `json:"dry_cycles"`
	FallbackUsed int `json:"fallback_used_today"`
}

func (b *Brain) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Cursor: b.cursor, DryCycles: b.dryCycles, FallbackUsed: b.fallbackUsed}
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
