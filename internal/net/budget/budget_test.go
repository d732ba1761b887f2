package budget

import (
	"testing"
	"time"
)

func TestRecordCallIncrementsByOne(t *testing.T) {
	tr := NewTracker(Config{Provider: "brave", MonthlyLimit: 100})
	tr.RecordCall("search")
	tr.RecordCall("search")
	tr.RecordCall("triangulation")

	s := tr.Status()
	if s.MonthlyUsed != 3 || s.DailyUsed != 3 {
		t.Errorf("used = %d/%d, want 3/3", s.MonthlyUsed, s.DailyUsed)
	}
	if s.Components["search"] != 2 || s.Components["triangulation"] != 1 {
		t.Errorf("components = %v", s.Components)
	}
	if s.Percentage != 3.0 {
		t.Errorf("percentage = %f", s.Percentage)
	}
}

func TestTierThresholds(t *testing.T) {
	tr := NewTracker(Config{
		Provider:     "serper",
		MonthlyLimit: 100,
		Critical:     map[string]bool{"triangulation": true},
	})

	for i := 0; i < 79; i++ {
		tr.RecordCall("search")
	}
	if !tr.CanCall("search", false) {
		t.Error("79% must be normal tier")
	}

	tr.RecordCall("search") // 80%
	if tr.CanCall("search", false) {
		t.Error("80% degraded tier must refuse non-critical calls")
	}
	if !tr.CanCall("search", true) {
		t.Error("degraded tier must honor per-call escalation")
	}
	if !tr.CanCall("triangulation", false) {
		t.Error("degraded tier must allow configured critical components")
	}

	for i := 0; i < 15; i++ {
		tr.RecordCall("search") // 95%
	}
	if tr.CanCall("search", true) {
		t.Error("disabled tier must refuse even escalated calls")
	}
	if !tr.CanCall("triangulation", false) {
		t.Error("disabled tier must still allow critical components")
	}

	s := tr.Status()
	if !s.Disabled || s.Degraded {
		t.Errorf("status flags: %+v", s)
	}
}

func TestUnlimitedProvider(t *testing.T) {
	tr := NewTracker(Config{Provider: "duckduckgo"})
	for i := 0; i < 10000; i++ {
		tr.RecordCall("search")
	}
	if !tr.CanCall("search", false) {
		t.Error("zero limit means monitoring only, never refused")
	}
}

func TestComponentAllocation(t *testing.T) {
	tr := NewTracker(Config{
		Provider:     "stats",
		MonthlyLimit: 1000,
		Components:   map[string]int64{"enrichment": 2},
	})
	tr.RecordCall("enrichment")
	tr.RecordCall("enrichment")
	if tr.CanCall("enrichment", false) {
		t.Error("component allocation spent")
	}
	if !tr.CanCall("fixtures", false) {
		t.Error("other components unaffected")
	}
}

func TestLazyDailyRollover(t *testing.T) {
	// Resets are lazy and stamped at construction, so the fake clock must
	// move forward from the real one.
	tr := NewTracker(Config{Provider: "odds", MonthlyLimit: 100})
	tr.RecordCall("fixtures")

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	sameMonth := tomorrow.Month() == time.Now().UTC().Month()
	tr.SetClock(func() time.Time { return tomorrow })

	s := tr.Status()
	if s.DailyUsed != 0 {
		t.Errorf("daily = %d after midnight, want 0", s.DailyUsed)
	}
	if sameMonth && s.MonthlyUsed != 1 {
		t.Errorf("monthly = %d, want 1 within the month", s.MonthlyUsed)
	}
}

func TestLazyMonthlyRollover(t *testing.T) {
	tr := NewTracker(Config{Provider: "odds", MonthlyLimit: 100})
	tr.RecordCall("fixtures")
	tr.RecordCall("fixtures")

	nextMonth := time.Now().UTC().AddDate(0, 1, 0)
	tr.SetClock(func() time.Time { return nextMonth })

	s := tr.Status()
	if s.MonthlyUsed != 0 || s.DailyUsed != 0 {
		t.Errorf("daily/monthly = %d/%d after month boundary, want 0/0", s.DailyUsed, s.MonthlyUsed)
	}
	if len(s.Components) != 0 {
		t.Errorf("component counters must reset: %v", s.Components)
	}
}

func TestManagerDefaultsToAllowed(t *testing.T) {
	m := NewManager()
	if !m.CanCall("unknown", "anything", false) {
		t.Error("unregistered providers are allowed")
	}

	m.AddProvider(Config{Provider: "brave", MonthlyLimit: 1})
	m.RecordCall("brave", "search")
	if m.CanCall("brave", "search", false) {
		t.Error("spent provider must refuse")
	}
	snap := m.Snapshot()
	if snap["brave"].MonthlyUsed != 1 {
		t.Errorf("snapshot: %+v", snap)
	}
}
