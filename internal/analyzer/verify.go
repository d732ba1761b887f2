package analyzer

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/ai"
	"github.com/pitchedge/pitchedge/internal/enrich"
	"github.com/pitchedge/pitchedge/internal/injury"
	"github.com/pitchedge/pitchedge/internal/models"
)

// VerifyConfig carries the gating thresholds.
type VerifyConfig struct {
	AttackImpactThreshold  float64 // critical offensive absence impact
	FormDeviationThreshold float64 // points-per-game deviation from league mean
	H2HCardsThreshold      float64
	H2HCornersThreshold    float64
	RefereeStrictCards     float64 // cards/match at or above which the official is strict
	RefereeLenientCards    float64
}

// DefaultVerifyConfig mirrors the pipeline defaults.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		AttackImpactThreshold:  5.0,
		FormDeviationThreshold: 1.5,
		H2HCardsThreshold:      4.5,
		H2HCornersThreshold:    9.5,
		RefereeStrictCards:     5.0,
		RefereeLenientCards:    3.0,
	}
}

// Evidence is everything the verification layer may cross-check a verdict
// against. Nil or zero fields mean the corresponding check is skipped.
type Evidence struct {
	OfficialMissing []models.MissingPlayer // squad-context absence list
	CitedPlayers    []string               // players the AI verdict leaned on
	HomeImpact      *injury.TeamImpact
	AwayImpact      *injury.TeamImpact
	HomeFormPPG     float64 // points per game, recent window
	AwayFormPPG     float64
	LeagueMeanPPG   float64
	H2H             *ai.BettingStatsResult
	Referee         *enrich.RefereeInfo
	Odds            models.OddsSet
}

func (e Evidence) empty() bool {
	return len(e.OfficialMissing) == 0 && e.HomeImpact == nil && e.AwayImpact == nil &&
		e.H2H == nil && e.Referee == nil && e.LeagueMeanPPG == 0
}

// Verify runs the post-AI checks over a BET-grade result and mutates it in
// place: confirming, switching market, rejecting, or flagging it
// unverifiable. It must run between the AI response and alert emission.
func Verify(r *models.AnalysisResult, ev Evidence, cfg VerifyConfig) {
	if r.Verdict != models.VerdictBet {
		r.Verification = models.VerificationUnverified
		return
	}
	if ev.empty() {
		r.Verification = models.VerificationUnverified
		log.Debug().Str("match", r.MatchID).Msg("no verification evidence, passing verdict through flagged")
		return
	}

	status := models.VerificationConfirmed
	market := strings.ToLower(r.RecommendedMarket)

	// Cited absences that the official squad context does not know about
	// are a credibility problem for the whole verdict.
	if phantom := phantomPlayers(ev.CitedPlayers, ev.OfficialMissing); len(phantom) > 0 {
		r.Confidence -= 10 * len(phantom)
		note(r, fmt.Sprintf("unconfirmed absences: %s", strings.Join(phantom, ", ")))
	}

	// An Over recommendation does not survive a gutted attack.
	if isOverMarket(market) {
		attack := criticalAttackImpact(ev)
		if attack >= cfg.AttackImpactThreshold {
			// Books price totals two-sided: an Over price implies an Under.
			if ev.Odds.Has(models.MarketOver25) {
				r.RecommendedMarket = string(models.MarketUnder25)
				note(r, fmt.Sprintf("market switched to Under: critical attack absences (impact %.1f)", attack))
				status = models.VerificationChangeMarket
			} else {
				reject(r, "critical attack absences and no Under market priced")
				return
			}
		}
	}

	// Form pointing the other way from the recommendation.
	if ev.LeagueMeanPPG > 0 {
		if dev, against := formAgainst(market, ev, cfg.FormDeviationThreshold); against {
			reject(r, fmt.Sprintf("recent form contradicts recommendation (deviation %.2f)", dev))
			return
		}
	}

	// H2H corroboration for cards and corners recommendations.
	if ev.H2H != nil {
		switch {
		case strings.Contains(market, "card"):
			if ev.H2H.AvgCards >= cfg.H2HCardsThreshold {
				note(r, fmt.Sprintf("h2h corroborates cards (avg %.1f)", ev.H2H.AvgCards))
			} else {
				r.Confidence -= 10
				note(r, "h2h does not corroborate cards")
			}
		case strings.Contains(market, "corner"):
			if ev.H2H.AvgCorners >= cfg.H2HCornersThreshold {
				note(r, fmt.Sprintf("h2h corroborates corners (avg %.1f)", ev.H2H.AvgCorners))
			} else {
				r.Confidence -= 10
				note(r, "h2h does not corroborate corners")
			}
		}
	}

	// Referee tendency moves cards markets both ways.
	if ev.Referee != nil && strings.Contains(market, "card") {
		switch {
		case ev.Referee.CardsPerMatch >= cfg.RefereeStrictCards:
			r.Confidence += 5
			note(r, fmt.Sprintf("strict referee %s (%.1f cards/match)", ev.Referee.Name, ev.Referee.CardsPerMatch))
		case ev.Referee.CardsPerMatch > 0 && ev.Referee.CardsPerMatch <= cfg.RefereeLenientCards:
			r.Confidence -= 10
			note(r, fmt.Sprintf("lenient referee %s (%.1f cards/match)", ev.Referee.Name, ev.Referee.CardsPerMatch))
		}
	}

	if r.Confidence > 100 {
		r.Confidence = 100
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	r.Verification = status
}

func note(r *models.AnalysisResult, s string) {
	if r.Reasoning != "" {
		r.Reasoning += " | "
	}
	r.Reasoning += s
}

func reject(r *models.AnalysisResult, reason string) {
	r.Verdict = models.VerdictNoBet
	r.Verification = models.VerificationRejected
	note(r, reason)
}

// phantomPlayers returns cited names absent from the official missing list.
func phantomPlayers(cited []string, official []models.MissingPlayer) []string {
	if len(cited) == 0 || len(official) == 0 {
		return nil
	}
	names := make([]string, 0, len(official))
	for _, p := range official {
		names = append(names, p.Name)
	}
	var phantom []string
	for _, c := range cited {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if enrich.FuzzyMatchTeam(c, names) == "" {
			phantom = append(phantom, c)
		}
	}
	return phantom
}

// criticalAttackImpact sums the offensive absence impact of sides that are
// CRITICAL or HIGH severity.
func criticalAttackImpact(ev Evidence) float64 {
	total := 0.0
	for _, t := range []*injury.TeamImpact{ev.HomeImpact, ev.AwayImpact} {
		if t == nil {
			continue
		}
		if t.Severity == injury.SeverityCritical || t.Severity == injury.SeverityHigh {
			total += t.OffensiveImpact
		}
	}
	return total
}

func isOverMarket(market string) bool {
	return strings.Contains(market, "over")
}

// formAgainst reports whether the recommended side's form deviates from the
// league mean by at least threshold in the wrong direction.
func formAgainst(market string, ev Evidence, threshold float64) (float64, bool) {
	var dev float64
	switch {
	case market == "1" || strings.Contains(market, "home"):
		dev = ev.LeagueMeanPPG - ev.HomeFormPPG
	case market == "2" || strings.Contains(market, "away"):
		dev = ev.LeagueMeanPPG - ev.AwayFormPPG
	default:
		return 0, false
	}
	return dev, dev >= threshold
}
