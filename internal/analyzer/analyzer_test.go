package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pitchedge/pitchedge/internal/ai"
	"github.com/pitchedge/pitchedge/internal/models"
)

type stubTriangulator struct {
	verdict ai.Verdict
	err     error
	gotDoc  string
}

func (s *stubTriangulator) Triangulate(_ context.Context, doc string) (ai.Verdict, error) {
	s.gotDoc = doc
	return s.verdict, s.err
}

func sampleDossier() Dossier {
	return Dossier{
		Today: time.Date(2026, 9, 5, 8, 0, 0, 0, time.UTC),
		Match: models.Match{ID: "m1", League: "serie_a", Home: "Milan", Away: "Inter",
			Kickoff: time.Date(2026, 9, 6, 19, 45, 0, 0, time.UTC)},
		NewsSnippet: "Leao doubtful",
	}
}

func TestAnalyzeBetVerdict(t *testing.T) {
	tri := &stubTriangulator{verdict: ai.Verdict{
		FinalVerdict: "BET", Confidence: 81, RecommendedMarket: "1",
		ComboReasoning: "injuries plus form", PrimaryDriver: "injury differential",
		CitedPlayers: []string{"Osimhen"},
	}}
	a := New(tri, 65)

	got := a.Analyze(context.Background(), sampleDossier(), models.QuantBlock{BestMarket: models.MarketHome})
	assert.Equal(t, models.VerdictBet, got.Verdict)
	assert.Equal(t, 81, got.Confidence)
	assert.Equal(t, "1", got.RecommendedMarket)
	assert.Equal(t, []string{"Osimhen"}, got.CitedPlayers)
	assert.Equal(t, models.MarketHome, got.Quant.BestMarket)
	assert.Equal(t, models.VerificationUnverified, got.Verification)
}

func TestAnalyzeGateDowngradesLowConfidence(t *testing.T) {
	tri := &stubTriangulator{verdict: ai.Verdict{FinalVerdict: "BET", Confidence: 50}}
	a := New(tri, 65)

	got := a.Analyze(context.Background(), sampleDossier(), models.QuantBlock{})
	assert.Equal(t, models.VerdictNoBet, got.Verdict)
	assert.Contains(t, got.Reasoning, "low confidence")
}

func TestAnalyzeAIFailureIsNoBet(t *testing.T) {
	tri := &stubTriangulator{err: errors.New("all vendors down")}
	a := New(tri, 65)

	got := a.Analyze(context.Background(), sampleDossier(), models.QuantBlock{})
	assert.Equal(t, models.VerdictNoBet, got.Verdict)
	assert.Equal(t, "analysis unavailable", got.Reasoning)
	assert.Equal(t, "m1", got.MatchID)
}

func TestAnalyzeUnknownVerdictNormalized(t *testing.T) {
	tri := &stubTriangulator{verdict: ai.Verdict{FinalVerdict: "MAYBE", Confidence: 90}}
	a := New(tri, 65)

	got := a.Analyze(context.Background(), sampleDossier(), models.QuantBlock{})
	assert.Equal(t, models.VerdictNoBet, got.Verdict)
}

func TestDossierRender(t *testing.T) {
	d := sampleDossier()
	d.MarketStatus = "1: 1.85 (opened 2.00)"
	doc := d.Render()

	assert.Contains(t, doc, "TODAY: 2026-09-05", "the date travels in the user payload")
	assert.Contains(t, doc, "HOME_TEAM: Milan")
	assert.Contains(t, doc, "KICKOFF_UTC: 2026-09-06T19:45:00Z")
	assert.Contains(t, doc, "[NEWS]\nLeao doubtful")
	assert.Contains(t, doc, "[MARKET_STATUS]\n1: 1.85 (opened 2.00)")
	assert.Contains(t, doc, "[TACTICAL_CONTEXT]\nNone available.", "empty sections render a placeholder")

	// Section order is fixed.
	news := strings.Index(doc, "[NEWS]")
	market := strings.Index(doc, "[MARKET_STATUS]")
	invest := strings.Index(doc, "[INVESTIGATION_STATUS]")
	assert.True(t, news < market && market < invest)

	// The analyzer hands the rendered dossier to the AI untouched.
	tri := &stubTriangulator{verdict: ai.Verdict{FinalVerdict: "NO BET"}}
	New(tri, 65).Analyze(context.Background(), d, models.QuantBlock{})
	assert.Equal(t, doc, tri.gotDoc)
}
