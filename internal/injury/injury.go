// Package injury scores the impact of missing players per team and the
// differential between the two sides of a match.
package injury

import (
	"strings"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Severity buckets a team's aggregate injury impact.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

const (
	maxPlayerImpact    = 10.0
	maxScoreAdjustment = 1.8
	keyPlayerBonus     = 1.5
)

var positionBase = map[models.PlayerPosition]float64{
	models.PosGK:  3.0,
	models.PosDEF: 2.2,
	models.PosMID: 2.0,
	models.PosFWD: 2.5,
	models.PosUNK: 1.0,
}

var roleMultiplier = map[models.PlayerRole]float64{
	models.RoleStarter:  1.6,
	models.RoleRotation: 1.0,
	models.RoleBackup:   0.5,
	models.RoleYouth:    0.3,
}

// TeamImpact is the aggregated absence picture for one team.
type TeamImpact struct {
	Total           float64  `json:"total_impact_score"`
	MissingStarters int      `json:"missing_starters"`
	MissingRotation int      `json:"missing_rotation"`
	MissingBackups  int      `json:"missing_backups"`
	KeyPlayersOut   []string `json:"key_players_out"`
	DefensiveImpact float64  `json:"defensive_impact"`
	OffensiveImpact float64  `json:"offensive_impact"`
	Severity        Severity `json:"severity"`
}

// SquadInfo carries optional squad knowledge used to resolve role and
// position when the absence feed does not state them.
type SquadInfo struct {
	// PositionGroups maps position -> ordered player names (first listed is
	// the presumed starter).
	PositionGroups map[models.PlayerPosition][]string
	// Appearances maps player name -> appearance count this season.
	Appearances map[string]int
}

// starterAppearances is the appearance count above which a player is
// presumed a starter.
const starterAppearances = 15

// ResolveRole fills in role/position for a player using squad data, with
// fallback heuristics when the squad is unknown.
func ResolveRole(p models.MissingPlayer, squad *SquadInfo) models.MissingPlayer {
	if p.Position == "" {
		p.Position = models.PosUNK
	}
	if p.Role != "" {
		return p
	}
	if squad == nil {
		p.Role = models.RoleBackup
		return p
	}

	group := squad.PositionGroups[p.Position]
	if len(group) <= 0 {
		p.Role = models.RoleBackup
		return p
	}
	if strings.EqualFold(group[0], p.Name) {
		p.Role = models.RoleStarter
		return p
	}
	if squad.Appearances[p.Name] >= starterAppearances {
		p.Role = models.RoleStarter
		return p
	}
	// Unknown player in a known but small group.
	if len(group) <= 3 {
		p.Role = models.RoleBackup
		return p
	}
	p.Role = models.RoleRotation
	return p
}

// ScoreTeam aggregates the missing-player list into a team impact. Empty or
// nil lists yield zero; entries without a name are skipped.
func ScoreTeam(missing []models.MissingPlayer, squad *SquadInfo) TeamImpact {
	var out TeamImpact
	for _, raw := range missing {
		if strings.TrimSpace(raw.Name) == "" {
			continue
		}
		p := ResolveRole(raw, squad)

		impact := positionBase[p.Position] * roleMultiplier[p.Role]
		if p.KeyPlayer {
			impact += keyPlayerBonus
			out.KeyPlayersOut = append(out.KeyPlayersOut, p.Name)
		}
		if impact < 0 {
			impact = 0
		}
		if impact > maxPlayerImpact {
			impact = maxPlayerImpact
		}
		out.Total += impact

		switch p.Role {
		case models.RoleStarter:
			out.MissingStarters++
		case models.RoleRotation:
			out.MissingRotation++
		case models.RoleBackup:
			out.MissingBackups++
		}
		switch p.Position {
		case models.PosGK, models.PosDEF:
			out.DefensiveImpact += impact
		case models.PosFWD:
			out.OffensiveImpact += impact
		case models.PosMID:
			out.DefensiveImpact += impact / 2
			out.OffensiveImpact += impact / 2
		}
	}
	out.Severity = severityFor(out)
	return out
}

func severityFor(t TeamImpact) Severity {
	switch {
	case t.Total >= 15 || t.MissingStarters >= 3:
		return SeverityCritical
	case t.Total >= 8 || t.MissingStarters >= 2:
		return SeverityHigh
	case t.Total >= 4 || t.MissingStarters >= 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Differential compares the two teams' impact.
type Differential struct {
	Home            TeamImpact `json:"home"`
	Away            TeamImpact `json:"away"`
	Diff            float64    `json:"diff"`             // home.Total - away.Total; >0 means home more affected
	ScoreAdjustment float64    `json:"score_adjustment"` // Diff capped to +-1.8
}

// Compare builds the match differential.
func Compare(home, away TeamImpact) Differential {
	d := Differential{Home: home, Away: away, Diff: home.Total - away.Total}
	adj := d.Diff
	if adj > maxScoreAdjustment {
		adj = maxScoreAdjustment
	}
	if adj < -maxScoreAdjustment {
		adj = -maxScoreAdjustment
	}
	d.ScoreAdjustment = adj
	return d
}

// ApplyToScore applies the context-aware inversion: a home-win
// recommendation is penalized when home is more affected; an away-win
// recommendation is boosted by the same amount. Other markets are handled
// through the defensive/offensive split, not here.
func (d Differential) ApplyToScore(score float64, market models.Market) float64 {
	switch market {
	case models.MarketHome:
		return score - d.ScoreAdjustment
	case models.MarketAway:
		return score + d.ScoreAdjustment
	default:
		return score
	}
}
