package models

// Verdict is the final recommendation of the analyzer.
type Verdict string

const (
	VerdictBet   Verdict = "BET"
	VerdictNoBet Verdict = "NO BET"
)

// VerificationStatus is the outcome of the post-AI verification layer.
type VerificationStatus string

const (
	VerificationConfirmed    VerificationStatus = "CONFIRMED"
	VerificationRejected     VerificationStatus = "REJECTED"
	VerificationChangeMarket VerificationStatus = "CHANGE_MARKET"
	VerificationUnverified   VerificationStatus = "UNVERIFIED"
)

// QuantBlock carries the quantitative summary attached to an alert.
type QuantBlock struct {
	BestMarket Market  `json:"best_market"`
	EdgePct    float64 `json:"edge_pct"`
	KellyPct   float64 `json:"kelly_pct"`
	FairOdd    float64 `json:"fair_odd"`
	ActualOdd  float64 `json:"actual_odd"`
}

// AnalysisResult is the single scored recommendation emitted per match.
type AnalysisResult struct {
	MatchID           string             `json:"match_id"`
	Verdict           Verdict            `json:"final_verdict"`
	Confidence        int                `json:"confidence"` // 0..100
	Score             float64            `json:"score"`      // 0..10 decision scale
	RecommendedMarket string             `json:"recommended_market"`
	Reasoning         string             `json:"combo_reasoning"`
	PrimaryDriver     string             `json:"primary_driver"`
	CitedPlayers      []string           `json:"cited_players,omitempty"`
	Quant             QuantBlock         `json:"quant"`
	Verification      VerificationStatus `json:"verification"`
}

// Normalize clamps confidence into [0,100] and downgrades a BET verdict whose
// confidence is below the gate.
func (r *AnalysisResult) Normalize(gate int) {
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 100 {
		r.Confidence = 100
	}
	if r.Verdict != VerdictBet && r.Verdict != VerdictNoBet {
		r.Verdict = VerdictNoBet
	}
	if r.Verdict == VerdictBet && r.Confidence < gate {
		r.Verdict = VerdictNoBet
		if r.Reasoning != "" {
			r.Reasoning += " | "
		}
		r.Reasoning += "low confidence"
	}
	if r.Verification == "" {
		r.Verification = VerificationUnverified
	}
}
