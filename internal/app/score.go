package app

import (
	"github.com/pitchedge/pitchedge/internal/injury"
	"github.com/pitchedge/pitchedge/internal/models"
)

// preliminaryScore maps verdict confidence onto the 0-10 decision scale and
// applies the market-aware injury inversion before clamping. The thresholds
// in PipelineConfig (verification gate, alert threshold) read this scale.
func preliminaryScore(res models.AnalysisResult, diff *injury.Differential) float64 {
	score := float64(res.Confidence) / 10
	if diff != nil {
		score = diff.ApplyToScore(score, models.Market(res.RecommendedMarket))
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score
}

// alertWorthy gates emission: a BET verdict must clear the alert threshold
// and beat the best score already emitted for this match. Re-analysis that
// lands at or below the high-water mark stays silent.
func alertWorthy(res models.AnalysisResult, m models.Match, threshold float64) bool {
	return res.Verdict == models.VerdictBet &&
		res.Score >= threshold &&
		res.Score > m.HighestScore
}
