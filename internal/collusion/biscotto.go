// Package collusion detects end-of-season draw-odds anomalies ("biscotto"):
// matches whose draw benefits both teams' standings while the market prices
// the draw suspiciously short.
package collusion

import (
	"fmt"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Severity aggregates the detected signals.
type Severity string

const (
	SeverityNone    Severity = "NONE"
	SeverityLow     Severity = "LOW"
	SeverityMedium  Severity = "MEDIUM"
	SeverityHigh    Severity = "HIGH"
	SeverityExtreme Severity = "EXTREME"
)

// MovementClass distinguishes a slow drift from a crash.
type MovementClass string

const (
	MovementNone  MovementClass = "NONE"
	MovementDrift MovementClass = "DRIFT"
	MovementCrash MovementClass = "CRASH"
)

// Config parameterizes the detector per league.
type Config struct {
	DrawThreshold      float64 // base absolute draw-odd threshold (2.50 / 2.60 minor)
	EndOfSeasonMatches int     // matches_remaining <= K activates season context
	SignificantDropPct float64 // opening->current drop considered significant
	CrashDropPct       float64 // drop classified as a crash
	LeagueAvgDrawProb  float64 // for the z-score signal
	LeagueDrawStdDev   float64
}

// Input is the market and season picture for one match.
type Input struct {
	CurrentDrawOdd   float64
	OpeningDrawOdd   float64
	MatchesRemaining int
	HomeCtx          models.TeamContext
	AwayCtx          models.TeamContext
	// PointsNeeded: a value of 1 means a draw secures each team's objective.
	HomePointsNeeded int
	AwayPointsNeeded int
}

// Result is the aggregated collusion assessment.
type Result struct {
	Suspect        bool          `json:"suspect"`
	Severity       Severity      `json:"severity"`
	Movement       MovementClass `json:"movement"`
	DropPct        float64       `json:"drop_pct"`
	ZScore         float64       `json:"z_score"`
	MutualBenefit  bool          `json:"mutual_benefit"`
	Factors        []string      `json:"factors"`
	Recommendation string        `json:"betting_recommendation"`
}

// endOfSeasonModifier loosens the absolute threshold in the run-in.
const endOfSeasonModifier = 0.15

// Detect evaluates all signals. Missing or nonsensical draw odds (<= 1.0)
// are never suspect.
func Detect(in Input, cfg Config) Result {
	out := Result{Severity: SeverityNone, Movement: MovementNone, Recommendation: "MONITOR"}
	if in.CurrentDrawOdd <= 1.0 {
		return out
	}
	if cfg.DrawThreshold <= 0 {
		cfg.DrawThreshold = 2.50
	}
	if cfg.EndOfSeasonMatches <= 0 {
		cfg.EndOfSeasonMatches = 5
	}
	if cfg.SignificantDropPct <= 0 {
		cfg.SignificantDropPct = 12.0
	}
	if cfg.CrashDropPct <= 0 {
		cfg.CrashDropPct = 25.0
	}

	score := 0
	endOfSeason := in.MatchesRemaining > 0 && in.MatchesRemaining <= cfg.EndOfSeasonMatches

	// Signal 1: absolute draw odd below the league threshold.
	threshold := cfg.DrawThreshold
	if endOfSeason {
		threshold += endOfSeasonModifier
	}
	if in.CurrentDrawOdd < threshold {
		score++
		out.Factors = append(out.Factors, fmt.Sprintf("draw odd %.2f below threshold %.2f", in.CurrentDrawOdd, threshold))
	}

	// Signal 2: drop from opening.
	if in.OpeningDrawOdd > 1.0 && in.OpeningDrawOdd > in.CurrentDrawOdd {
		out.DropPct = (in.OpeningDrawOdd - in.CurrentDrawOdd) / in.OpeningDrawOdd * 100
		if out.DropPct >= cfg.CrashDropPct {
			out.Movement = MovementCrash
			score += 2
			out.Factors = append(out.Factors, fmt.Sprintf("draw odd crashed %.1f%% from opening", out.DropPct))
		} else if out.DropPct >= cfg.SignificantDropPct {
			out.Movement = MovementDrift
			score++
			out.Factors = append(out.Factors, fmt.Sprintf("draw odd drifted %.1f%% from opening", out.DropPct))
		}
	}

	// Signal 3: implied draw probability vs the league distribution.
	if cfg.LeagueAvgDrawProb > 0 && cfg.LeagueDrawStdDev > 0 {
		implied := 1 / in.CurrentDrawOdd
		out.ZScore = (implied - cfg.LeagueAvgDrawProb) / cfg.LeagueDrawStdDev
		if out.ZScore >= 2.0 {
			score++
			out.Factors = append(out.Factors, fmt.Sprintf("draw probability z-score %.1f", out.ZScore))
		}
	}

	// Signal 4: end-of-season mutual benefit.
	if endOfSeason && mutualBenefit(in) {
		out.MutualBenefit = true
		score += 2
		out.Factors = append(out.Factors, "draw satisfies both teams' objectives")
	}

	out.Severity = severityFor(score)
	out.Suspect = out.Severity != SeverityNone

	switch {
	case out.Severity == SeverityExtreme || out.Severity == SeverityHigh:
		out.Recommendation = fmt.Sprintf("BET X @ %.2f", in.CurrentDrawOdd)
	case out.Severity == SeverityMedium:
		out.Recommendation = "MONITOR"
	case out.Severity == SeverityLow:
		out.Recommendation = "MONITOR"
	default:
		out.Recommendation = "AVOID"
	}
	return out
}

// mutualBenefit holds when a single point satisfies both camps, or both sit
// in the same survival/European scrap where a draw keeps rivals behind.
func mutualBenefit(in Input) bool {
	if in.HomePointsNeeded == 1 && in.AwayPointsNeeded == 1 {
		return true
	}
	h, a := in.HomeCtx, in.AwayCtx
	if !h.TableKnown() || !a.TableKnown() {
		return false
	}
	bothRelegation := h.TablePosition >= h.TableSize-3 && a.TablePosition >= a.TableSize-3
	bothEuropean := h.TablePosition >= 5 && h.TablePosition <= 8 && a.TablePosition >= 5 && a.TablePosition <= 8
	return bothRelegation || bothEuropean
}

func severityFor(score int) Severity {
	switch {
	case score >= 5:
		return SeverityExtreme
	case score >= 4:
		return SeverityHigh
	case score >= 3:
		return SeverityMedium
	case score >= 1:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// ImpliedDrawZ is the z-score of the implied draw probability against the
// league distribution, exported for calibration tooling.
func ImpliedDrawZ(drawOdd, leagueAvg, stddev float64) float64 {
	if drawOdd <= 1.0 || stddev <= 0 {
		return 0
	}
	return (1/drawOdd - leagueAvg) / stddev
}
