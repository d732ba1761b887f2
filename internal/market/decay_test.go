package market

import (
	"math"
	"testing"
	"time"
)

func TestDecayedImpactCurve(t *testing.T) {
	if got := DecayedImpact(10, 0, 0.10, ""); got != 10 {
		t.Errorf("zero age should return the initial impact, got %f", got)
	}
	if got := DecayedImpact(0, time.Hour, 0.10, ""); got != 0 {
		t.Errorf("zero initial should return 0, got %f", got)
	}

	got := DecayedImpact(10, 5*time.Hour, 0.10, "")
	want := 10 * math.Exp(-0.10*5)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("decay = %f, want %f", got, want)
	}
}

func TestDecayedImpactFloorAfter24h(t *testing.T) {
	got := DecayedImpact(10, 72*time.Hour, 0.30, "social")
	if got != 0.1 {
		t.Errorf("impact = %f, want 1%% floor (0.1)", got)
	}

	// Before 24h the raw exponential stands even when tiny.
	early := DecayedImpact(10, 20*time.Hour, 0.60, "social")
	if early >= 0.1 {
		t.Errorf("pre-24h impact = %f, floor must not apply yet", early)
	}
}

func TestSourceModifierSlowsOfficialDecay(t *testing.T) {
	official := DecayedImpact(10, 6*time.Hour, 0.10, "official")
	social := DecayedImpact(10, 6*time.Hour, 0.10, "social")
	if official <= social {
		t.Errorf("official %f should outlast social %f", official, social)
	}
}

func TestParseFreshness(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"just now", 0},
		{"now", 0},
		{"15 minutes ago", 15},
		{"1 min ago", 1},
		{"2 hours ago", 120},
		{"1 hr ago", 60},
		{"3 days ago", 3 * 24 * 60},
		{"yesterday-ish", 30},
		{"", 30},
	}
	for _, tt := range tests {
		if got := ParseFreshness(tt.in); got != tt.want {
			t.Errorf("ParseFreshness(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
