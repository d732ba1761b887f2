// Package fatigue scores schedule congestion per team using exponential
// recency weighting over recent matches.
package fatigue

import (
	"math"
	"time"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Level buckets hours-since-last-match.
type Level string

const (
	LevelFresh    Level = "FRESH"
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Advantage marks which side is fresher.
type Advantage string

const (
	AdvantageHome    Advantage = "HOME"
	AdvantageAway    Advantage = "AWAY"
	AdvantageNeutral Advantage = "NEUTRAL"
)

// depthMultiplier divides the index: deep squads absorb congestion.
var depthMultiplier = map[models.SquadDepth]float64{
	models.DepthElite: 0.5,
	models.DepthUpper: 0.75,
	models.DepthMid:   1.0,
	models.DepthLower: 1.15,
	models.DepthLow:   1.3,
}

// TeamFatigue is the per-team result.
type TeamFatigue struct {
	Index          float64 `json:"fatigue_index"`
	Level          Level   `json:"fatigue_level"`
	HoursSinceLast float64 `json:"hours_since_last"` // 0 when no recent match
	RecentMatches  int     `json:"recent_matches"`
}

// minDays clamps days-ago so the recency weight cannot divide by zero.
const minDays = 0.5

// ScoreTeam computes the fatigue index for one team. Empty schedules yield
// exactly zero. Naive timestamps are promoted to UTC before comparison.
func ScoreTeam(recent []time.Time, upcoming time.Time, depth models.SquadDepth) TeamFatigue {
	out := TeamFatigue{Level: LevelFresh}
	if len(recent) == 0 {
		return out
	}
	up := upcoming.UTC()

	var latest time.Time
	for _, m := range recent {
		m = m.UTC()
		if m.After(up) {
			continue
		}
		out.RecentMatches++
		daysAgo := up.Sub(m).Hours() / 24
		if daysAgo < minDays {
			daysAgo = minDays
		}
		// Matches inside a congested week weigh heavier.
		w := 1.0
		if daysAgo <= 4 {
			w = 1.5
		}
		out.Index += w / daysAgo
		if m.After(latest) {
			latest = m
		}
	}
	if out.RecentMatches == 0 {
		return TeamFatigue{Level: LevelFresh}
	}

	// Deep squads absorb congestion: elite scales the index down, thin
	// squads scale it up.
	if mult, ok := depthMultiplier[depth]; ok && mult > 0 {
		out.Index *= mult
	}

	out.HoursSinceLast = up.Sub(latest).Hours()
	out.Level = levelFor(out.HoursSinceLast)
	out.Index = math.Round(out.Index*1000) / 1000
	return out
}

func levelFor(hoursSinceLast float64) Level {
	switch {
	case hoursSinceLast <= 0:
		return LevelFresh
	case hoursSinceLast < 72:
		return LevelCritical
	case hoursSinceLast < 96:
		return LevelHigh
	case hoursSinceLast < 120:
		return LevelMedium
	case hoursSinceLast < 168:
		return LevelLow
	default:
		return LevelFresh
	}
}

// Comparison is the two-sided fatigue picture.
type Comparison struct {
	Home         TeamFatigue `json:"home"`
	Away         TeamFatigue `json:"away"`
	Differential float64     `json:"differential"` // home - away
	Advantage    Advantage   `json:"advantage"`
}

// advantageMargin is the index gap below which neither side gets the edge.
const advantageMargin = 0.35

// Compare builds the match-level fatigue comparison. The advantage goes to
// the fresher side; a critically short-rested side concedes it regardless
// of index magnitude.
func Compare(home, away TeamFatigue) Comparison {
	c := Comparison{Home: home, Away: away, Differential: home.Index - away.Index, Advantage: AdvantageNeutral}

	switch {
	case home.Level == LevelCritical && away.Level != LevelCritical:
		c.Advantage = AdvantageAway
	case away.Level == LevelCritical && home.Level != LevelCritical:
		c.Advantage = AdvantageHome
	case c.Differential > advantageMargin:
		c.Advantage = AdvantageAway // home carries more fatigue
	case c.Differential < -advantageMargin:
		c.Advantage = AdvantageHome
	}
	return c
}
