// Package budget tracks per-provider API usage against monthly limits and
// applies the tiered throttling policy (normal / degraded / disabled).
package budget

import (
	"fmt"
	"sync"
	"time"
)

// Mode is the throttling tier derived from monthly utilization.
type Mode int

const (
	ModeNormal Mode = iota
	ModeDegraded
	ModeDisabled
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDegraded:
		return "degraded"
	case ModeDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ExhaustedError reports a refused call with its reason.
type ExhaustedError struct {
	Provider  string
	Component string
	Mode      Mode
	Used      int64
	Limit     int64
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("budget refused %s/%s: mode=%s used=%d limit=%d",
		e.Provider, e.Component, e.Mode, e.Used, e.Limit)
}

// Config parameterizes one provider's budget. Limits of 0 mean unlimited /
// monitoring only.
type Config struct {
	Provider          string
	MonthlyLimit      int64
	DegradedThreshold float64 // fraction of monthly limit, e.g. 0.80
	DisabledThreshold float64 // fraction of monthly limit, e.g. 0.95
	Components        map[string]int64
	Critical          map[string]bool
}

// Tracker tracks monthly, daily and per-component usage for one provider.
// Day and month rollovers are applied lazily on the first call after the
// boundary, never from a timer.
type Tracker struct {
	mu        sync.Mutex
	cfg       Config
	monthly   int64
	daily     int64
	component map[string]int64
	lastDay   time.Time // UTC midnight of last daily reset
	lastMonth time.Month
	lastYear  int
	now       func() time.Time
}

// NewTracker creates a budget tracker for one provider.
func NewTracker(cfg Config) *Tracker {
	if cfg.DegradedThreshold <= 0 {
		cfg.DegradedThreshold = 0.80
	}
	if cfg.DisabledThreshold <= 0 {
		cfg.DisabledThreshold = 0.95
	}
	if cfg.Components == nil {
		cfg.Components = map[string]int64{}
	}
	if cfg.Critical == nil {
		cfg.Critical = map[string]bool{}
	}
	now := time.Now().UTC()
	return &Tracker{
		cfg:       cfg,
		component: make(map[string]int64),
		lastDay:   midnight(now),
		lastMonth: now.Month(),
		lastYear:  now.Year(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the tracker's clock, for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func midnight(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// resetIfRolledOver applies lazy daily/monthly resets. Callers hold the lock.
func (t *Tracker) resetIfRolledOver() {
	now := t.now()
	if day := midnight(now); day.After(t.lastDay) {
		t.daily = 0
		t.lastDay = day
	}
	if now.Year() != t.lastYear || now.Month() != t.lastMonth {
		t.monthly = 0
		t.component = make(map[string]int64)
		t.lastYear = now.Year()
		t.lastMonth = now.Month()
	}
}

func (t *Tracker) mode() Mode {
	if t.cfg.MonthlyLimit <= 0 {
		return ModeNormal
	}
	util := float64(t.monthly) / float64(t.cfg.MonthlyLimit)
	switch {
	case util >= t.cfg.DisabledThreshold:
		return ModeDisabled
	case util >= t.cfg.DegradedThreshold:
		return ModeDegraded
	default:
		return ModeNormal
	}
}

// CanCall applies the tier policy for a component. Critical components are
// configured per provider; isCritical lets a call site escalate a single
// call (honored in degraded mode only).
func (t *Tracker) CanCall(component string, isCritical bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfRolledOver()

	if t.cfg.MonthlyLimit <= 0 {
		return true // unlimited / monitoring only
	}

	switch t.mode() {
	case ModeDisabled:
		return t.cfg.Critical[component]
	case ModeDegraded:
		return t.cfg.Critical[component] || isCritical
	default:
		if alloc, ok := t.cfg.Components[component]; ok && alloc > 0 {
			return t.component[component] < alloc
		}
		return true
	}
}

// RecordCall increments the monthly, daily and per-component counters by
// exactly one.
func (t *Tracker) RecordCall(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfRolledOver()
	t.monthly++
	t.daily++
	t.component[component]++
}

// Status is the externally visible budget state.
type Status struct {
	Provider     string           `json:"provider"`
	MonthlyUsed  int64            `json:"monthly_used"`
	MonthlyLimit int64            `json:"monthly_limit"`
	DailyUsed    int64            `json:"daily_used"`
	Components   map[string]int64 `json:"components"`
	Percentage   float64          `json:"percentage"`
	Degraded     bool             `json:"degraded"`
	Disabled     bool             `json:"disabled"`
}

// Status returns a snapshot of the tracker.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfRolledOver()

	comps := make(map[string]int64, len(t.component))
	for k, v := range t.component {
		comps[k] = v
	}
	var pct float64
	if t.cfg.MonthlyLimit > 0 {
		pct = float64(t.monthly) / float64(t.cfg.MonthlyLimit) * 100
	}
	mode := t.mode()
	return Status{
		Provider:     t.cfg.Provider,
		MonthlyUsed:  t.monthly,
		MonthlyLimit: t.cfg.MonthlyLimit,
		DailyUsed:    t.daily,
		Components:   comps,
		Percentage:   pct,
		Degraded:     mode == ModeDegraded,
		Disabled:     mode == ModeDisabled,
	}
}

// Manager holds budget trackers for multiple providers.
type Manager struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// NewManager creates an empty budget manager.
func NewManager() *Manager {
	return &Manager{trackers: make(map[string]*Tracker)}
}

// AddProvider registers a tracker for a provider.
func (m *Manager) AddProvider(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackers[cfg.Provider] = NewTracker(cfg)
}

// Get returns the tracker for a provider.
func (m *Manager) Get(provider string) (*Tracker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trackers[provider]
	return t, ok
}

// CanCall applies the tier policy; providers without a tracker are allowed.
func (m *Manager) CanCall(provider, component string, isCritical bool) bool {
	if t, ok := m.Get(provider); ok {
		return t.CanCall(component, isCritical)
	}
	return true
}

// RecordCall records usage for a provider.
func (m *Manager) RecordCall(provider, component string) {
	if t, ok := m.Get(provider); ok {
		t.RecordCall(component)
	}
}

// Snapshot returns the status of every tracker.
func (m *Manager) Snapshot() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.trackers))
	for name, t := range m.trackers {
		out[name] = t.Status()
	}
	return out
}
