package enrich

import (
	"context"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Coords locates a stadium.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RefereeInfo is the appointed official and their card tendency.
type RefereeInfo struct {
	Name           string  `json:"name"`
	CardsPerMatch  float64 `json:"cards_per_match"`
	PenaltiesBias  float64 `json:"penalties_bias"`
}

// TeamStats are season aggregates used by the quantitative engine.
type TeamStats struct {
	Matches       int     `json:"matches"`
	GoalsScored   float64 `json:"goals_scored_avg"`
	GoalsConceded float64 `json:"goals_conceded_avg"`
	FormPoints    float64 `json:"form_points"` // last 5, 0..15
}

// WeatherImpact summarizes conditions at kickoff.
type WeatherImpact struct {
	Summary     string  `json:"summary"`
	WindKmh     float64 `json:"wind_kmh"`
	RainMm      float64 `json:"rain_mm"`
	TempC       float64 `json:"temp_c"`
	GoalsImpact float64 `json:"goals_impact"` // negative = suppresses goals
	Alert       bool    `json:"alert"`
}

// Sources is the set of independent per-match fetches the orchestrator fans
// out over. Implementations do their own rate limiting through the shared
// client; tasks share no mutable state.
type Sources interface {
	TeamContext(ctx context.Context, team string, m models.Match) (models.TeamContext, error)
	TurnoverRisk(ctx context.Context, team string, m models.Match) (string, error)
	Referee(ctx context.Context, m models.Match) (RefereeInfo, error)
	StadiumCoords(ctx context.Context, m models.Match) (Coords, error)
	TeamStats(ctx context.Context, team string, m models.Match) (TeamStats, error)
	TacticalInsights(ctx context.Context, m models.Match) (string, error)
	Weather(ctx context.Context, at Coords, m models.Match) (WeatherImpact, error)
}
