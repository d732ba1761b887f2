package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowRespectsBurst(t *testing.T) {
	l := NewLimiter(KeyConfig{MinInterval: time.Hour, Burst: 2})

	if !l.Allow("fotmob") || !l.Allow("fotmob") {
		t.Fatal("burst of 2 must pass twice")
	}
	if l.Allow("fotmob") {
		t.Error("third immediate call must be paced")
	}
}

func TestConfigurePerKey(t *testing.T) {
	l := NewLimiter(KeyConfig{MinInterval: time.Hour, Burst: 1})
	l.Configure("fast", KeyConfig{MinInterval: time.Nanosecond, Burst: 1})

	if !l.Allow("fast") {
		t.Fatal("configured key")
	}
	time.Sleep(time.Millisecond)
	if !l.Allow("fast") {
		t.Error("nanosecond interval must refill immediately")
	}

	l.Allow("slow")
	if l.Allow("slow") {
		t.Error("fallback pacing applies to unknown keys")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := NewLimiter(KeyConfig{MinInterval: time.Hour, Burst: 1})
	if err := l.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k"); err == nil {
		t.Error("second wait must fail on context deadline")
	}
}

func TestSnapshot(t *testing.T) {
	l := NewLimiter(KeyConfig{MinInterval: time.Second, Burst: 3})
	l.Configure("odds", KeyConfig{MinInterval: 2 * time.Second, Burst: 1})
	l.Allow("odds")

	snap := l.Snapshot()
	s, ok := snap["odds"]
	if !ok {
		t.Fatalf("snapshot missing key: %v", snap)
	}
	if s.MinInterval != 2*time.Second || s.Burst != 1 {
		t.Errorf("stats = %+v", s)
	}
}
