package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOddsSetHas(t *testing.T) {
	o := OddsSet{Home: 1.85, Draw: 3.40, Away: 4.20, Over25: 1.72}

	assert.True(t, o.Has(MarketHome))
	assert.True(t, o.Has(MarketOver25))
	assert.False(t, o.Has(MarketBTTS), "unpriced market")
	assert.False(t, OddsSet{Home: 1.0}.Has(MarketHome), "below the decimal floor")
	assert.False(t, o.Has(MarketUnder25), "under is never carried directly")
}

func TestOddsSetGet(t *testing.T) {
	o := OddsSet{Home: 1.85, Draw: 3.40, Away: 4.20, Over25: 1.72, BTTS: 1.90}

	assert.Equal(t, 1.85, o.Get(MarketHome))
	assert.Equal(t, 3.40, o.Get(MarketDraw))
	assert.Equal(t, 4.20, o.Get(MarketAway))
	assert.Equal(t, 1.72, o.Get(MarketOver25))
	assert.Equal(t, 1.90, o.Get(MarketBTTS))
	assert.Equal(t, 0.0, o.Get(Market1X), "combo markets are derived, not stored")
}

func TestAnalyzable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	horizon := 48 * time.Hour

	cases := []struct {
		name    string
		kickoff time.Time
		want    bool
	}{
		{"inside window", now.Add(24 * time.Hour), true},
		{"exactly at horizon", now.Add(horizon), true},
		{"just past horizon", now.Add(horizon + time.Second), false},
		{"kickoff equals now", now, false},
		{"already started", now.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Match{Kickoff: tc.kickoff}
			assert.Equal(t, tc.want, m.Analyzable(now, horizon))
		})
	}
}

func TestContentFingerprintNormalizes(t *testing.T) {
	a := ContentFingerprint("Leao OUT   injured", "Gazzetta")
	b := ContentFingerprint("leao out injured", "gazzetta")
	c := ContentFingerprint("Leao out injured", "Sky Sports")

	assert.Equal(t, a, b, "case and whitespace fold away")
	assert.NotEqual(t, a, c, "source participates in the fingerprint")
	assert.Len(t, a, 32)
}

func TestNewsItemFingerprint(t *testing.T) {
	n := NewsItem{Title: "Leao out injured", Source: "Gazzetta"}
	assert.Equal(t, ContentFingerprint("Leao out injured", "Gazzetta"), n.Fingerprint())
}

func TestNormalizeClampsConfidence(t *testing.T) {
	r := AnalysisResult{Verdict: VerdictBet, Confidence: 140}
	r.Normalize(65)
	assert.Equal(t, 100, r.Confidence)
	assert.Equal(t, VerdictBet, r.Verdict)

	r = AnalysisResult{Verdict: VerdictNoBet, Confidence: -5}
	r.Normalize(65)
	assert.Equal(t, 0, r.Confidence)
}

func TestNormalizeGatesLowConfidenceBets(t *testing.T) {
	r := AnalysisResult{Verdict: VerdictBet, Confidence: 60, Reasoning: "thin edge"}
	r.Normalize(65)

	assert.Equal(t, VerdictNoBet, r.Verdict)
	assert.Equal(t, "thin edge | low confidence", r.Reasoning)
}

func TestNormalizeUnknownVerdict(t *testing.T) {
	r := AnalysisResult{Verdict: "MAYBE", Confidence: 80}
	r.Normalize(65)

	assert.Equal(t, VerdictNoBet, r.Verdict)
	assert.Equal(t, VerificationUnverified, r.Verification)
}
