package ai

// DeepDiveResult is the normalized tactical deep-dive answer.
type DeepDiveResult struct {
	TacticalSummary      string   `json:"tactical_summary"`
	KeyBattles           []string `json:"key_battles"`
	ExpectedApproachHome string   `json:"expected_approach_home"`
	ExpectedApproachAway string   `json:"expected_approach_away"`
	Confidence           int      `json:"confidence"`
	IdentityOK           bool     `json:"identity_ok"`
}

// VerificationFacts is the normalized news-verification answer.
type VerificationFacts struct {
	Confirmed   bool     `json:"confirmed"`
	Confidence  int      `json:"confidence"`
	PlayerNames []string `json:"player_names"`
	ImpactNote  string   `json:"impact_note"`
}

// ConfirmationFacts is the normalized collusion-confirmation answer.
type ConfirmationFacts struct {
	Plausible      bool     `json:"plausible"`
	Confidence     int      `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	CounterSignals []string `json:"counter_signals"`
}

// BettingStatsResult is the normalized statistics lookup.
type BettingStatsResult struct {
	H2HMatches  int     `json:"h2h_matches"`
	H2HHomeWins int     `json:"h2h_home_wins"`
	H2HDraws    int     `json:"h2h_draws"`
	H2HAwayWins int     `json:"h2h_away_wins"`
	AvgGoals    float64 `json:"avg_goals"`
	AvgCards    float64 `json:"avg_cards"`
	AvgCorners  float64 `json:"avg_corners"`
	Notes       string  `json:"notes"`
}

// EnrichedContext is the normalized context-enrichment answer.
type EnrichedContext struct {
	NewFacts       []string `json:"new_facts"`
	MotivationHome string   `json:"motivation_home"`
	MotivationAway string   `json:"motivation_away"`
	Confidence     int      `json:"confidence"`
}

// Verdict is the normalized triangulation answer.
type Verdict struct {
	FinalVerdict      string   `json:"final_verdict"`
	Confidence        int      `json:"confidence"`
	RecommendedMarket string   `json:"recommended_market"`
	ComboReasoning    string   `json:"combo_reasoning"`
	PrimaryDriver     string   `json:"primary_driver"`
	CitedPlayers      []string `json:"cited_players"`
}
