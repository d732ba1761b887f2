package quant

import (
	"math"

	"github.com/pitchedge/pitchedge/internal/models"
)

const (
	// minOdd below which the risk/reward is too poor to price an edge.
	minOdd = 1.05

	// maxProb caps the model probability before Kelly.
	maxProb = 0.99

	// kellyDivisor applies quarter-Kelly risk moderation.
	kellyDivisor = 4.0

	// DefaultMaxStakePct caps the suggested stake as % of bankroll.
	DefaultMaxStakePct = 5.0
)

// Edge is the value assessment for one market.
type Edge struct {
	Market    models.Market `json:"market"`
	Prob      float64       `json:"prob"`
	FairOdd   float64       `json:"fair_odd"`
	ActualOdd float64       `json:"actual_odd"`
	EdgePct   float64       `json:"edge_pct"`
	KellyPct  float64       `json:"kelly_pct"`
	HasValue  bool          `json:"has_value"`
}

// ComputeEdge prices one market. n is the sample size behind the model
// probability; the shrinkage step blends the probability toward the lower
// 68% confidence bound when the sample is thin. Returns ok=false when the
// offered odd is unpriceable (missing or <= 1.05).
func ComputeEdge(market models.Market, prob, offeredOdd float64, n int, maxStakePct float64) (Edge, bool) {
	if offeredOdd < minOdd || prob <= 0 {
		return Edge{}, false
	}
	if maxStakePct <= 0 {
		maxStakePct = DefaultMaxStakePct
	}
	if prob > maxProb {
		prob = maxProb
	}
	if n < 1 {
		n = 1
	}

	implied := 1 / offeredOdd
	edgePct := (prob - implied) * 100

	// Shrinkage: lower 68% CI estimate blended back by sample confidence.
	se := math.Sqrt(prob * (1 - prob) / float64(n))
	lower := math.Max(0.01, prob-se)
	cf := clamp(float64(n)/15.0, 0.6, 1.0)
	effective := lower + (prob-lower)*cf

	b := offeredOdd - 1
	kelly := (b*effective - (1 - effective)) / b
	stake := math.Max(0, kelly) / kellyDivisor * 100
	if stake > maxStakePct {
		stake = maxStakePct
	}

	return Edge{
		Market:    market,
		Prob:      prob,
		FairOdd:   1 / prob,
		ActualOdd: offeredOdd,
		EdgePct:   edgePct,
		KellyPct:  stake,
		HasValue:  edgePct > 0,
	}, true
}

// DoubleChanceOdd infers the bookmaker's double-chance price from the two
// component 1X2 odds: 1 / (1/oA + 1/oB).
func DoubleChanceOdd(oddA, oddB float64) float64 {
	if oddA < minOdd || oddB < minOdd {
		return 0
	}
	return 1 / (1/oddA + 1/oddB)
}

// Assessment is the full market sheet for one match.
type Assessment struct {
	Grid    GridResult    `json:"grid"`
	Edges   []Edge        `json:"edges"`
	Best    *Edge         `json:"best,omitempty"`
	Samples int           `json:"samples"`
}

// Assess prices every market the bookmaker offers against the model grid
// and selects the largest positive edge.
func Assess(grid GridResult, odds models.OddsSet, n int, maxStakePct float64) Assessment {
	out := Assessment{Grid: grid, Samples: n}

	type candidate struct {
		market models.Market
		prob   float64
		odd    float64
	}
	candidates := []candidate{
		{models.MarketHome, grid.HomeWin, odds.Home},
		{models.MarketDraw, grid.Draw, odds.Draw},
		{models.MarketAway, grid.AwayWin, odds.Away},
		{models.MarketOver25, grid.Over25, odds.Over25},
		{models.MarketBTTS, grid.BTTS, odds.BTTS},
		{models.Market1X, grid.HomeWin + grid.Draw, DoubleChanceOdd(odds.Home, odds.Draw)},
		{models.MarketX2, grid.Draw + grid.AwayWin, DoubleChanceOdd(odds.Draw, odds.Away)},
	}
	if odds.Over25 >= minOdd {
		// Under is priced off the same line when the book lists the over.
		candidates = append(candidates, candidate{models.MarketUnder25, grid.Under25, underOddFromOver(odds.Over25)})
	}

	for _, c := range candidates {
		edge, ok := ComputeEdge(c.market, c.prob, c.odd, n, maxStakePct)
		if !ok {
			continue
		}
		out.Edges = append(out.Edges, edge)
		if edge.HasValue && (out.Best == nil || edge.EdgePct > out.Best.EdgePct) {
			e := edge
			out.Best = &e
		}
	}
	return out
}

// underOddFromOver approximates the under price from the over assuming a
// symmetric ~5% book margin on the totals line.
func underOddFromOver(over float64) float64 {
	pOver := 1 / over
	pUnder := 1.05 - pOver
	if pUnder <= 0 {
		return 0
	}
	return 1 / pUnder
}

// QuantBlock converts the best edge into the alert payload block.
func (a Assessment) QuantBlock() models.QuantBlock {
	if a.Best == nil {
		return models.QuantBlock{}
	}
	return models.QuantBlock{
		BestMarket: a.Best.Market,
		EdgePct:    a.Best.EdgePct,
		KellyPct:   a.Best.KellyPct,
		FairOdd:    a.Best.FairOdd,
		ActualOdd:  a.Best.ActualOdd,
	}
}
