package quant

import (
	"math"
	"testing"
)

func TestGridProbabilitiesSumToOne(t *testing.T) {
	m := NewModel(1.35, 0.30, -0.07)
	lambdas := []float64{0.1, 0.5, 1.0, 1.35, 2.2, 3.7, 5.0}
	for _, lh := range lambdas {
		for _, la := range lambdas {
			g := m.Grid(lh, la)
			sum := g.HomeWin + g.Draw + g.AwayWin
			if math.Abs(sum-1) > 1e-6 {
				t.Errorf("lambda (%.2f, %.2f): outcome sum %.8f", lh, la, sum)
			}
			ou := g.Over25 + g.Under25
			if math.Abs(ou-1) > 1e-6 {
				t.Errorf("lambda (%.2f, %.2f): over/under sum %.8f", lh, la, ou)
			}
		}
	}
}

func TestDixonColesFactorBounds(t *testing.T) {
	for _, rho := range []float64{-0.2, -0.07, 0, 0.1} {
		for lh := 0.1; lh <= 5.0; lh += 0.35 {
			for la := 0.1; la <= 5.0; la += 0.35 {
				for i := 0; i <= 1; i++ {
					for j := 0; j <= 1; j++ {
						f := dixonColes(lh, la, rho, i, j)
						if f < 0.01 || f > 2.0 {
							t.Fatalf("dixonColes(%.2f, %.2f, %.2f, %d, %d) = %f out of bounds", lh, la, rho, i, j, f)
						}
					}
				}
				if f := dixonColes(lh, la, rho, 3, 2); f != 1 {
					t.Fatalf("correction applied outside the low-score cells: %f", f)
				}
			}
		}
	}
}

func TestHomeAdvantageOnlyBoostsLambdaHome(t *testing.T) {
	base := Model{LeagueAvg: 1.35, Rho: -0.07}
	boosted := Model{LeagueAvg: 1.35, HomeAdvantage: 0.30, Rho: -0.07}
	home := TeamRates{Scored: 1.8, Conceded: 1.0, Matches: 20}
	away := TeamRates{Scored: 1.2, Conceded: 1.5, Matches: 20}

	lh0, la0 := base.Lambdas(home, away)
	lh1, la1 := boosted.Lambdas(home, away)

	if la1 != la0 {
		t.Errorf("lambda_away changed by home advantage: %f vs %f", la0, la1)
	}
	if math.Abs((lh1-lh0)-0.30) > 1e-9 {
		t.Errorf("lambda_home boost = %f, want 0.30", lh1-lh0)
	}
}

func TestScoreStrongHomeSide(t *testing.T) {
	m := NewModel(1.35, 0.30, -0.07)
	home := TeamRates{Scored: 2.1, Conceded: 0.8, Matches: 20}
	away := TeamRates{Scored: 1.2, Conceded: 1.9, Matches: 20}

	g := m.Score(home, away)
	if g.HomeWin <= 0.50 {
		t.Errorf("home win prob = %.3f, want > 0.50", g.HomeWin)
	}
	if g.LambdaHome <= g.LambdaAway {
		t.Errorf("lambda_home %.2f should exceed lambda_away %.2f", g.LambdaHome, g.LambdaAway)
	}
}

func TestPoissonPMFDegenerate(t *testing.T) {
	if p := poissonPMF(0, 0); p != 1 {
		t.Errorf("pmf(0,0) = %f, want 1", p)
	}
	if p := poissonPMF(0, 3); p != 0 {
		t.Errorf("pmf(0,3) = %f, want 0", p)
	}
}
