// Package models holds the core domain records shared across the pipeline:
// matches, odds snapshots, news items, team contexts and analysis results.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Market identifies a betting market.
type Market string

const (
	MarketHome    Market = "1"
	MarketDraw    Market = "X"
	MarketAway    Market = "2"
	MarketOver25  Market = "OVER_2.5"
	MarketUnder25 Market = "UNDER_2.5"
	MarketBTTS    Market = "BTTS"
	Market1X      Market = "1X"
	MarketX2      Market = "X2"
)

// OddsSet holds decimal odds for the supported markets. A zero value means
// the market is not priced.
type OddsSet struct {
	Home   float64 `json:"home" db:"home_odd"`
	Draw   float64 `json:"draw" db:"draw_odd"`
	Away   float64 `json:"away" db:"away_odd"`
	Over25 float64 `json:"over25" db:"over25_odd"`
	BTTS   float64 `json:"btts" db:"btts_odd"`
}

// Has reports whether the market is priced (decimal odds are always >= 1.01).
func (o OddsSet) Has(m Market) bool {
	return o.Get(m) >= 1.01
}

// Get returns the odd for a market, 0 when absent.
func (o OddsSet) Get(m Market) float64 {
	switch m {
	case MarketHome:
		return o.Home
	case MarketDraw:
		return o.Draw
	case MarketAway:
		return o.Away
	case MarketOver25:
		return o.Over25
	case MarketBTTS:
		return o.BTTS
	default:
		return 0
	}
}

// Match is a scheduled fixture under observation.
type Match struct {
	ID           string    `json:"id" db:"id"`
	League       string    `json:"league" db:"league"`
	Home         string    `json:"home" db:"home_team"`
	Away         string    `json:"away" db:"away_team"`
	Kickoff      time.Time `json:"kickoff" db:"kickoff"` // always UTC
	OpeningOdds  OddsSet   `json:"opening_odds"`
	CurrentOdds  OddsSet   `json:"current_odds"`
	HighestScore float64   `json:"highest_score" db:"highest_score"`
	LastDeepDive time.Time `json:"last_deep_dive" db:"last_deep_dive"`
}

// Analyzable reports whether the match is inside the analysis window:
// strictly in the future and no further out than horizon.
func (m Match) Analyzable(now time.Time, horizon time.Duration) bool {
	k := m.Kickoff.UTC()
	return k.After(now) && !k.After(now.Add(horizon))
}

// OddsSnapshot is one timestamped capture of a match's market prices.
type OddsSnapshot struct {
	MatchID    string    `json:"match_id" db:"match_id"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
	Odds       OddsSet   `json:"odds"`
}

// ConfidenceTag grades the reliability of a news item.
type ConfidenceTag string

const (
	ConfidenceLow      ConfidenceTag = "LOW"
	ConfidenceMedium   ConfidenceTag = "MEDIUM"
	ConfidenceHigh     ConfidenceTag = "HIGH"
	ConfidenceVeryHigh ConfidenceTag = "VERY_HIGH"
)

// NewsItem is a piece of match-relevant text gathered from any provider.
type NewsItem struct {
	MatchID         string        `json:"match_id" db:"match_id"`
	Title           string        `json:"title" db:"title"`
	Snippet         string        `json:"snippet" db:"snippet"`
	Source          string        `json:"source" db:"source"`
	PublishedAt     *time.Time    `json:"published_at,omitempty" db:"published_at"`
	Confidence      ConfidenceTag `json:"confidence" db:"confidence"`
	PriorityBoost   float64       `json:"priority_boost" db:"priority_boost"`
	DeepDiveApplied bool          `json:"deep_dive_applied" db:"deep_dive_applied"`
}

// Fingerprint collapses duplicates across providers: case-folded title plus
// source label, hashed.
func (n NewsItem) Fingerprint() string {
	return ContentFingerprint(n.Title, n.Source)
}

// ContentFingerprint hashes normalized content together with its source label.
func ContentFingerprint(content, source string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(content), " "))
	sum := sha256.Sum256([]byte(norm + "|" + strings.ToLower(source)))
	return hex.EncodeToString(sum[:16])
}
