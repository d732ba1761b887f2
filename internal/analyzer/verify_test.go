package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitchedge/pitchedge/internal/ai"
	"github.com/pitchedge/pitchedge/internal/enrich"
	"github.com/pitchedge/pitchedge/internal/injury"
	"github.com/pitchedge/pitchedge/internal/models"
)

func betResult(market string, confidence int) models.AnalysisResult {
	return models.AnalysisResult{
		MatchID:           "m1",
		Verdict:           models.VerdictBet,
		Confidence:        confidence,
		RecommendedMarket: market,
	}
}

func TestVerifyNonBetIsUnverified(t *testing.T) {
	r := models.AnalysisResult{Verdict: models.VerdictNoBet}
	Verify(&r, Evidence{LeagueMeanPPG: 1.35}, DefaultVerifyConfig())
	assert.Equal(t, models.VerificationUnverified, r.Verification)
}

func TestVerifyNoEvidencePassesFlagged(t *testing.T) {
	r := betResult("1", 80)
	Verify(&r, Evidence{}, DefaultVerifyConfig())
	assert.Equal(t, models.VerdictBet, r.Verdict, "missing evidence must not reject")
	assert.Equal(t, models.VerificationUnverified, r.Verification)
}

func TestVerifyConfirmsCleanBet(t *testing.T) {
	r := betResult("1", 75)
	ev := Evidence{
		LeagueMeanPPG: 1.35,
		HomeFormPPG:   2.2,
		AwayFormPPG:   0.8,
	}
	Verify(&r, ev, DefaultVerifyConfig())
	assert.Equal(t, models.VerdictBet, r.Verdict)
	assert.Equal(t, models.VerificationConfirmed, r.Verification)
	assert.Equal(t, 75, r.Confidence)
}

func TestVerifyPhantomPlayersCostConfidence(t *testing.T) {
	r := betResult("1", 80)
	ev := Evidence{
		OfficialMissing: []models.MissingPlayer{{Name: "Rafael Leao"}},
		CitedPlayers:    []string{"Leao", "Invented Player", "Another Ghost"},
		LeagueMeanPPG:   1.35,
		HomeFormPPG:     2.0,
	}
	Verify(&r, ev, DefaultVerifyConfig())

	assert.Equal(t, 60, r.Confidence, "two phantom citations cost 10 each")
	assert.Contains(t, r.Reasoning, "unconfirmed absences")
	assert.NotContains(t, r.Reasoning, "Leao,", "fuzzy-matched citation is not phantom")
}

func TestVerifyOverSwitchesToUnderOnGuttedAttack(t *testing.T) {
	r := betResult("OVER_2.5", 78)
	ev := Evidence{
		HomeImpact: &injury.TeamImpact{Severity: injury.SeverityCritical, OffensiveImpact: 6.2},
		Odds:       models.OddsSet{Home: 1.9, Draw: 3.4, Away: 4.0, Over25: 1.85},
	}
	Verify(&r, ev, DefaultVerifyConfig())

	assert.Equal(t, models.VerdictBet, r.Verdict)
	assert.Equal(t, string(models.MarketUnder25), r.RecommendedMarket)
	assert.Equal(t, models.VerificationChangeMarket, r.Verification)
	assert.Contains(t, r.Reasoning, "market switched to Under")
}

func TestVerifyOverRejectedWithoutUnderPrice(t *testing.T) {
	r := betResult("OVER_2.5", 78)
	ev := Evidence{
		HomeImpact: &injury.TeamImpact{Severity: injury.SeverityHigh, OffensiveImpact: 5.5},
		Odds:       models.OddsSet{Home: 1.9, Draw: 3.4, Away: 4.0},
	}
	Verify(&r, ev, DefaultVerifyConfig())

	assert.Equal(t, models.VerdictNoBet, r.Verdict)
	assert.Equal(t, models.VerificationRejected, r.Verification)
}

func TestVerifyOverSurvivesModerateAbsences(t *testing.T) {
	r := betResult("OVER_2.5", 78)
	ev := Evidence{
		HomeImpact: &injury.TeamImpact{Severity: injury.SeverityMedium, OffensiveImpact: 6.0},
		Odds:       models.OddsSet{Home: 1.9, Over25: 1.85},
	}
	Verify(&r, ev, DefaultVerifyConfig())
	assert.Equal(t, "OVER_2.5", r.RecommendedMarket, "medium severity does not count")
	assert.Equal(t, models.VerificationConfirmed, r.Verification)
}

func TestVerifyFormAgainstRecommendation(t *testing.T) {
	r := betResult("1", 82)
	ev := Evidence{
		LeagueMeanPPG: 1.35,
		HomeFormPPG:   0.2, // 1.8 below the mean in the last five
		AwayFormPPG:   1.5,
	}
	Verify(&r, ev, DefaultVerifyConfig())

	assert.Equal(t, models.VerdictNoBet, r.Verdict)
	assert.Equal(t, models.VerificationRejected, r.Verification)
	assert.Contains(t, r.Reasoning, "form contradicts")
}

func TestVerifyCardsMarketChecks(t *testing.T) {
	cfg := DefaultVerifyConfig()

	corroborated := betResult("over 4.5 cards", 70)
	Verify(&corroborated, Evidence{
		H2H:     &ai.BettingStatsResult{AvgCards: 5.1},
		Referee: &enrich.RefereeInfo{Name: "Lahoz", CardsPerMatch: 6.1},
	}, cfg)
	assert.Equal(t, 75, corroborated.Confidence, "strict referee adds 5")
	assert.True(t, strings.Contains(corroborated.Reasoning, "corroborates cards"))

	contradicted := betResult("over 4.5 cards", 70)
	Verify(&contradicted, Evidence{
		H2H:     &ai.BettingStatsResult{AvgCards: 2.0},
		Referee: &enrich.RefereeInfo{Name: "Taylor", CardsPerMatch: 2.4},
	}, cfg)
	assert.Equal(t, 50, contradicted.Confidence, "soft h2h and lenient referee cost 10 each")
	assert.Equal(t, models.VerificationConfirmed, contradicted.Verification)
}

func TestVerifyConfidenceClamped(t *testing.T) {
	r := betResult("1", 5)
	ev := Evidence{
		OfficialMissing: []models.MissingPlayer{{Name: "Somebody"}},
		CitedPlayers:    []string{"Ghost A", "Ghost B"},
		LeagueMeanPPG:   1.35,
		HomeFormPPG:     2.0,
	}
	Verify(&r, ev, DefaultVerifyConfig())
	assert.Equal(t, 0, r.Confidence)
}
