package models

import "time"

// PlayerRole describes where a player sits in the squad pecking order.
type PlayerRole string

const (
	RoleStarter  PlayerRole = "starter"
	RoleRotation PlayerRole = "rotation"
	RoleBackup   PlayerRole = "backup"
	RoleYouth    PlayerRole = "youth"
)

// PlayerPosition is the broad positional group of a player.
type PlayerPosition string

const (
	PosGK  PlayerPosition = "GK"
	PosDEF PlayerPosition = "DEF"
	PosMID PlayerPosition = "MID"
	PosFWD PlayerPosition = "FWD"
	PosUNK PlayerPosition = "UNK"
)

// SquadDepth categorizes how well a squad absorbs absences.
type SquadDepth string

const (
	DepthElite SquadDepth = "elite"
	DepthUpper SquadDepth = "upper"
	DepthMid   SquadDepth = "mid"
	DepthLower SquadDepth = "lower"
	DepthLow   SquadDepth = "low"
)

// MissingPlayer is one confirmed or suspected absence.
type MissingPlayer struct {
	Name      string         `json:"name"`
	Reason    string         `json:"reason"`
	Role      PlayerRole     `json:"role"`
	Position  PlayerPosition `json:"position"`
	KeyPlayer bool           `json:"key_player"`
}

// TeamContext is the per-team, per-match situational picture.
type TeamContext struct {
	Team             string          `json:"team"`
	Missing          []MissingPlayer `json:"missing"`
	Depth            SquadDepth      `json:"depth"`
	RecentMatches    []time.Time     `json:"recent_matches"` // UTC, most recent last
	TablePosition    int             `json:"table_position"` // 0 = unknown
	Points           int             `json:"points"`
	TableSize        int             `json:"table_size"`
	MatchesRemaining int             `json:"matches_remaining"` // 0 = unknown
	PointsNeeded     int             `json:"points_needed"`     // 1 = a draw secures the objective
	TurnoverRisk     string          `json:"turnover_risk"`
}

// TableKnown reports whether league-table context was resolved.
func (tc TeamContext) TableKnown() bool {
	return tc.TablePosition > 0 && tc.TableSize > 0
}
