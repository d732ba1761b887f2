package analyzer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/ai"
	"github.com/pitchedge/pitchedge/internal/models"
)

// Triangulator is the slice of the AI federation the analyzer needs.
type Triangulator interface {
	Triangulate(ctx context.Context, userDossier string) (ai.Verdict, error)
}

// Analyzer turns a dossier into a normalized AnalysisResult.
type Analyzer struct {
	router         Triangulator
	confidenceGate int
}

// New builds the analyzer. gate is the minimum confidence a BET verdict
// must carry to survive normalization.
func New(router Triangulator, gate int) *Analyzer {
	if gate <= 0 {
		gate = 65
	}
	return &Analyzer{router: router, confidenceGate: gate}
}

// Analyze runs the triangulation call and normalizes the verdict. An AI
// failure is not a crash: the match simply yields NO BET this cycle.
func (a *Analyzer) Analyze(ctx context.Context, d Dossier, quant models.QuantBlock) models.AnalysisResult {
	out := models.AnalysisResult{
		MatchID: d.Match.ID,
		Verdict: models.VerdictNoBet,
		Quant:   quant,
	}

	v, err := a.router.Triangulate(ctx, d.Render())
	if err != nil {
		log.Warn().Str("match", d.Match.ID).Err(err).Msg("triangulation failed, defaulting to NO BET")
		out.Reasoning = "analysis unavailable"
		out.Normalize(a.confidenceGate)
		return out
	}

	out.Verdict = models.Verdict(v.FinalVerdict)
	out.Confidence = v.Confidence
	out.RecommendedMarket = v.RecommendedMarket
	out.Reasoning = v.ComboReasoning
	out.PrimaryDriver = v.PrimaryDriver
	out.CitedPlayers = v.CitedPlayers
	out.Normalize(a.confidenceGate)
	return out
}
