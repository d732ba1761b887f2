package collusion

import (
	"strings"
	"testing"

	"github.com/pitchedge/pitchedge/internal/models"
)

func defaultConfig() Config {
	return Config{
		DrawThreshold:      2.50,
		EndOfSeasonMatches: 5,
		SignificantDropPct: 12,
		CrashDropPct:       25,
		LeagueAvgDrawProb:  0.26,
		LeagueDrawStdDev:   0.05,
	}
}

func TestDetectExtremeBiscotto(t *testing.T) {
	in := Input{
		CurrentDrawOdd:   1.80,
		OpeningDrawOdd:   3.00,
		MatchesRemaining: 2,
		HomePointsNeeded: 1,
		AwayPointsNeeded: 1,
	}
	got := Detect(in, defaultConfig())

	if !got.Suspect {
		t.Fatal("must be suspect")
	}
	if got.Severity != SeverityExtreme {
		t.Errorf("severity = %s, want EXTREME", got.Severity)
	}
	if got.Movement != MovementCrash {
		t.Errorf("movement = %s, want CRASH", got.Movement)
	}
	if !got.MutualBenefit {
		t.Error("mutual benefit must be flagged")
	}
	if !strings.HasPrefix(got.Recommendation, "BET X") {
		t.Errorf("recommendation = %q, want BET X prefix", got.Recommendation)
	}
	if got.Recommendation != "BET X @ 1.80" {
		t.Errorf("recommendation = %q", got.Recommendation)
	}
}

func TestDetectInvalidDrawOddNeverSuspect(t *testing.T) {
	for _, odd := range []float64{0, 0.5, 1.0} {
		got := Detect(Input{CurrentDrawOdd: odd, OpeningDrawOdd: 3.0}, defaultConfig())
		if got.Suspect || got.Severity != SeverityNone {
			t.Errorf("odd %.2f: %+v", odd, got)
		}
	}
}

func TestDetectDriftVsCrash(t *testing.T) {
	drift := Detect(Input{CurrentDrawOdd: 2.90, OpeningDrawOdd: 3.40}, defaultConfig())
	if drift.Movement != MovementDrift {
		t.Errorf("14.7%% drop: movement = %s, want DRIFT", drift.Movement)
	}
	crash := Detect(Input{CurrentDrawOdd: 2.52, OpeningDrawOdd: 3.40}, defaultConfig())
	if crash.Movement != MovementCrash {
		t.Errorf("25.9%% drop: movement = %s, want CRASH", crash.Movement)
	}
}

func TestDetectEndOfSeasonThresholdModifier(t *testing.T) {
	// 2.55 sits above the base threshold but below 2.50+0.15 in the run-in.
	cfg := defaultConfig()
	cfg.LeagueAvgDrawProb = 0 // isolate the absolute-threshold signal
	in := Input{CurrentDrawOdd: 2.55, OpeningDrawOdd: 2.55}
	if got := Detect(in, cfg); got.Suspect {
		t.Errorf("mid-season 2.55 must not trip the absolute signal: %+v", got)
	}
	in.MatchesRemaining = 3
	if got := Detect(in, cfg); !got.Suspect {
		t.Error("end-of-season modifier must loosen the threshold")
	}
}

func TestMutualBenefitFromTable(t *testing.T) {
	bottom := func(pos int) models.TeamContext {
		return models.TeamContext{Team: "t", TablePosition: pos, TableSize: 20, Points: 30}
	}
	in := Input{
		CurrentDrawOdd:   2.30,
		MatchesRemaining: 2,
		HomeCtx:          bottom(18),
		AwayCtx:          bottom(19),
	}
	got := Detect(in, defaultConfig())
	if !got.MutualBenefit {
		t.Error("both relegation-zone sides must count as mutual benefit")
	}
}

func TestImpliedDrawZ(t *testing.T) {
	if z := ImpliedDrawZ(2.0, 0.26, 0.05); z <= 2.0 {
		t.Errorf("implied 0.50 vs avg 0.26: z = %f, want > 2", z)
	}
	if z := ImpliedDrawZ(1.0, 0.26, 0.05); z != 0 {
		t.Errorf("invalid odd: z = %f", z)
	}
}
