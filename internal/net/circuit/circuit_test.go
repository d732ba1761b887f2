package circuit

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 3})

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed below threshold", b.State())
	}
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open at threshold", b.State())
	}
	if b.ShouldAllow() {
		t.Error("open breaker must refuse")
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 2})
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Errorf("state = %s, non-consecutive failures must not open", b.State())
	}
}

func TestHalfOpenProbeAndRecovery(t *testing.T) {
	b := NewBreaker(Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		RecoveryInterval: 10 * time.Millisecond,
	})
	b.RecordFailure()
	if b.ShouldAllow() {
		t.Fatal("freshly opened breaker must refuse")
	}

	time.Sleep(15 * time.Millisecond)
	if !b.ShouldAllow() {
		t.Fatal("recovery interval elapsed, probe must be allowed")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}

	b.RecordSuccess()
	if b.State() != StateHalfOpen {
		t.Error("one success below SuccessThreshold must stay half-open")
	}
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed after probe successes", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 1, RecoveryInterval: 5 * time.Millisecond})
	b.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	if !b.ShouldAllow() {
		t.Fatal("probe must be allowed")
	}
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Errorf("state = %s, probe failure must reopen", b.State())
	}
}

func TestStatsAndReset(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 1})
	b.RecordFailure()
	b.RecordSuccess()

	s := b.Stats()
	if s.TotalRequests != 2 || s.TotalFailures != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.State != "open" {
		t.Errorf("state = %s", s.State)
	}

	b.Reset()
	if b.State() != StateClosed || b.Stats().TotalRequests != 0 {
		t.Errorf("reset: %+v", b.Stats())
	}
}

func TestManagerUnknownProviderAllowed(t *testing.T) {
	m := NewManager()
	if !m.ShouldAllow("nobody") {
		t.Error("unregistered provider must be allowed")
	}

	m.AddProvider("brave", Config{FailureThreshold: 1})
	m.RecordFailure("brave")
	if m.ShouldAllow("brave") {
		t.Error("registered provider must trip")
	}
	snap := m.Snapshot()
	if snap["brave"].State != "open" {
		t.Errorf("snapshot: %+v", snap)
	}
}
