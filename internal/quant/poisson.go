// Package quant is the quantitative engine: the Poisson scoring grid with
// the Dixon–Coles low-score correction, market edge calculation and the
// shrinkage Kelly staking rule.
package quant

import "math"

const (
	maxGoals = 6 // grid spans (0..6)^2

	// DefaultRho is the Dixon–Coles correlation parameter.
	DefaultRho = -0.07

	// dcClampLo/Hi bound the correction factor against blow-ups at high
	// lambda.
	dcClampLo = 0.01
	dcClampHi = 2.0
)

// TeamRates are a team's scoring averages over the sample.
type TeamRates struct {
	Scored   float64 // avg goals scored per match
	Conceded float64 // avg goals conceded per match
	Matches  int     // sample size
}

// GridResult aggregates the scoreline grid into market probabilities.
type GridResult struct {
	LambdaHome float64 `json:"lambda_home"`
	LambdaAway float64 `json:"lambda_away"`
	HomeWin    float64 `json:"home_win"`
	Draw       float64 `json:"draw"`
	AwayWin    float64 `json:"away_win"`
	Over25     float64 `json:"over_2_5"`
	Under25    float64 `json:"under_2_5"`
	BTTS       float64 `json:"btts"`
	LikelyHome int     `json:"likely_home"`
	LikelyAway int     `json:"likely_away"`
	LikelyProb float64 `json:"likely_prob"`
}

// Model carries the league parameterization.
type Model struct {
	LeagueAvg     float64 // league average goals per team per match
	HomeAdvantage float64 // additive on lambda_home only, 0.22..0.40
	Rho           float64 // Dixon–Coles correlation
}

// NewModel builds a model with defaults for unset parameters.
func NewModel(leagueAvg, homeAdvantage, rho float64) Model {
	if leagueAvg <= 0 {
		leagueAvg = 1.35
	}
	if homeAdvantage <= 0 {
		homeAdvantage = 0.30
	}
	if rho == 0 {
		rho = DefaultRho
	}
	return Model{LeagueAvg: leagueAvg, HomeAdvantage: homeAdvantage, Rho: rho}
}

// Lambdas derives expected goals from attack/defense strengths. The home
// advantage term is additive on lambda_home and never touches lambda_away.
func (m Model) Lambdas(home, away TeamRates) (lambdaHome, lambdaAway float64) {
	attackHome := home.Scored / m.LeagueAvg
	defenseHome := home.Conceded / m.LeagueAvg
	attackAway := away.Scored / m.LeagueAvg
	defenseAway := away.Conceded / m.LeagueAvg

	lambdaHome = attackHome*defenseAway*m.LeagueAvg + m.HomeAdvantage
	lambdaAway = attackAway * defenseHome * m.LeagueAvg
	return lambdaHome, lambdaAway
}

// Grid computes P(home=i, away=j) over (0..6)^2 with the Dixon–Coles
// correction applied to the four low-score cells, then aggregates and
// rescales the 1X2 outcomes so they sum to exactly 1.
func (m Model) Grid(lambdaHome, lambdaAway float64) GridResult {
	res := GridResult{LambdaHome: lambdaHome, LambdaAway: lambdaAway}

	for i := 0; i <= maxGoals; i++ {
		for j := 0; j <= maxGoals; j++ {
			p := poissonPMF(lambdaHome, i) * poissonPMF(lambdaAway, j)
			p *= dixonColes(lambdaHome, lambdaAway, m.Rho, i, j)

			switch {
			case i > j:
				res.HomeWin += p
			case i == j:
				res.Draw += p
			default:
				res.AwayWin += p
			}
			if float64(i+j) > 2.5 {
				res.Over25 += p
			} else {
				res.Under25 += p
			}
			if i > 0 && j > 0 {
				res.BTTS += p
			}
			if p > res.LikelyProb {
				res.LikelyProb = p
				res.LikelyHome = i
				res.LikelyAway = j
			}
		}
	}

	// The correction and grid truncation leave the outcome sum slightly off 1.
	if sum := res.HomeWin + res.Draw + res.AwayWin; sum > 0 {
		res.HomeWin /= sum
		res.Draw /= sum
		res.AwayWin /= sum
	}
	if sum := res.Over25 + res.Under25; sum > 0 {
		res.Over25 /= sum
		res.Under25 /= sum
	}
	return res
}

// Score runs the full pipeline: strengths -> lambdas -> corrected grid.
func (m Model) Score(home, away TeamRates) GridResult {
	lh, la := m.Lambdas(home, away)
	return m.Grid(lh, la)
}

func poissonPMF(lambda float64, k int) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(-lambda+float64(k)*math.Log(lambda)-logFactorial(k))
}

func logFactorial(k int) float64 {
	lf := 0.0
	for i := 2; i <= k; i++ {
		lf += math.Log(float64(i))
	}
	return lf
}

// dixonColes returns the low-score correction factor, clamped to
// [0.01, 2.0]; cells outside {(0,0),(0,1),(1,0),(1,1)} are untouched.
func dixonColes(lh, la, rho float64, i, j int) float64 {
	var tau float64
	switch {
	case i == 0 && j == 0:
		tau = 1 - lh*la*rho
	case i == 0 && j == 1:
		tau = 1 + lh*rho
	case i == 1 && j == 0:
		tau = 1 + la*rho
	case i == 1 && j == 1:
		tau = 1 - rho
	default:
		return 1
	}
	return clamp(tau, dcClampLo, dcClampHi)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
