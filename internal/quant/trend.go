package quant

// H2HScore is one historical meeting's final score. Nil fields mark a
// meeting whose score could not be resolved; such entries are ignored.
type H2HScore struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// BTTSTrend summarizes how often both teams scored across past meetings.
type BTTSTrend struct {
	Hits       int     `json:"btts_hits"`
	TotalGames int     `json:"total_games"`
	Rate       float64 `json:"btts_rate"` // percentage
	Signal     string  `json:"trend_signal"`
}

// CalculateBTTSTrend is order-independent and skips entries with missing
// scores.
func CalculateBTTSTrend(scores []H2HScore) BTTSTrend {
	var t BTTSTrend
	for _, s := range scores {
		if s.Home == nil || s.Away == nil {
			continue
		}
		t.TotalGames++
		if *s.Home > 0 && *s.Away > 0 {
			t.Hits++
		}
	}
	if t.TotalGames > 0 {
		t.Rate = float64(t.Hits) / float64(t.TotalGames) * 100
	}
	switch {
	case t.TotalGames == 0:
		t.Signal = "Unknown"
	case t.Rate >= 60:
		t.Signal = "High"
	case t.Rate >= 40:
		t.Signal = "Medium"
	default:
		t.Signal = "Low"
	}
	return t
}
