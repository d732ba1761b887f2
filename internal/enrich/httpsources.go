package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/models"
	"github.com/pitchedge/pitchedge/internal/net/httpx"
	"github.com/pitchedge/pitchedge/internal/provider"
)

// HTTPSources implements Sources over the stats aggregator and the weather
// vendor, both behind their federation guards. Match-level fetches go
// through an in-memory cache whose TTL shrinks as kickoff approaches.
type HTTPSources struct {
	StatsGuard   *provider.Guard
	WeatherGuard *provider.Guard
	StatsBase    string
	WeatherBase  string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// NewHTTPSources wires the two guarded vendors.
func NewHTTPSources(stats, weather *provider.Guard) *HTTPSources {
	return &HTTPSources{
		StatsGuard:   stats,
		WeatherGuard: weather,
		StatsBase:    "https://www.fotmob.com/api",
		WeatherBase:  "https://api.open-meteo.com/v1",
		cache:        make(map[string]cacheEntry),
	}
}

// ttlFor shortens cache lifetimes near kickoff.
func ttlFor(kickoff time.Time) time.Duration {
	until := time.Until(kickoff)
	switch {
	case until < 2*time.Hour:
		return 10 * time.Minute
	case until < 12*time.Hour:
		return 30 * time.Minute
	default:
		return 2 * time.Hour
	}
}

func (s *HTTPSources) cached(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	if !ok || time.Now().After(e.expires) {
		delete(s.cache, key)
		return nil, false
	}
	return e.value, true
}

func (s *HTTPSources) store(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{value: value, expires: time.Now().Add(ttl)}
}

// fetchJSON runs a guarded GET with the match-scoped cache in front.
func (s *HTTPSources) fetchJSON(ctx context.Context, g *provider.Guard, cacheKey, url string, ttl time.Duration, out any) error {
	if body, ok := s.cached(cacheKey); ok {
		return json.Unmarshal(body, out)
	}
	resp, err := g.Do(ctx, provider.Request{
		Component: "enrichment",
		Build: func(key string) (string, map[string]string) {
			headers := map[string]string{"Accept": "application/json"}
			if key != "" {
				headers["X-API-Key"] = key
			}
			return url, headers
		},
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("malformed body from %s: %w", g.Name, err)
	}
	s.store(cacheKey, resp.Body, ttl)
	return nil
}

// teamPayload is the tolerant intermediate record for the aggregator's team
// endpoint; raw vendor JSON never travels past this adapter.
type teamPayload struct {
	Missing []struct {
		Name     string `json:"name"`
		Reason   string `json:"reason"`
		Role     string `json:"role"`
		Position string `json:"position"`
		Key      bool   `json:"key_player"`
	} `json:"missing"`
	Depth            string   `json:"squad_depth"`
	RecentMatches    []string `json:"recent_matches"`
	TablePosition    int      `json:"table_position"`
	Points           int      `json:"points"`
	TableSize        int      `json:"table_size"`
	MatchesRemaining int      `json:"matches_remaining"`
	PointsNeeded     int      `json:"points_needed"`
	TurnoverRisk     string   `json:"turnover_risk"`
}

func (s *HTTPSources) teamPayload(ctx context.Context, team string, m models.Match) (teamPayload, error) {
	var p teamPayload
	url := httpx.BuildURL(s.StatsBase+"/team", map[string]string{"name": team, "league": m.League})
	err := s.fetchJSON(ctx, s.StatsGuard, "team:"+strings.ToLower(team), url, ttlFor(m.Kickoff), &p)
	return p, err
}

// TeamContext resolves the situational picture for one team.
func (s *HTTPSources) TeamContext(ctx context.Context, team string, m models.Match) (models.TeamContext, error) {
	p, err := s.teamPayload(ctx, team, m)
	if err != nil {
		return models.TeamContext{}, err
	}

	tc := models.TeamContext{
		Team:             team,
		Depth:            models.SquadDepth(p.Depth),
		TablePosition:    p.TablePosition,
		Points:           p.Points,
		TableSize:        p.TableSize,
		MatchesRemaining: p.MatchesRemaining,
		PointsNeeded:     p.PointsNeeded,
		TurnoverRisk:     p.TurnoverRisk,
	}
	for _, mp := range p.Missing {
		if strings.TrimSpace(mp.Name) == "" {
			continue
		}
		tc.Missing = append(tc.Missing, models.MissingPlayer{
			Name:      mp.Name,
			Reason:    mp.Reason,
			Role:      models.PlayerRole(mp.Role),
			Position:  models.PlayerPosition(mp.Position),
			KeyPlayer: mp.Key,
		})
	}
	for _, ts := range p.RecentMatches {
		// Naive timestamps are promoted to UTC at this boundary.
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			tc.RecentMatches = append(tc.RecentMatches, t.UTC())
		} else if t, err := time.Parse("2006-01-02 15:04", ts); err == nil {
			tc.RecentMatches = append(tc.RecentMatches, t.UTC())
		}
	}
	return tc, nil
}

// TurnoverRisk resolves the rotation-risk category.
func (s *HTTPSources) TurnoverRisk(ctx context.Context, team string, m models.Match) (string, error) {
	p, err := s.teamPayload(ctx, team, m)
	if err != nil {
		return "", err
	}
	if p.TurnoverRisk == "" {
		return "Unknown", nil
	}
	return p.TurnoverRisk, nil
}

// matchPayload is the aggregator's match-details record.
type matchPayload struct {
	Home    string  `json:"home"`
	Away    string  `json:"away"`
	Kickoff string  `json:"kickoff"`
	Referee struct {
		Name          string  `json:"name"`
		CardsPerMatch float64 `json:"cards_per_match"`
		PenaltiesBias float64 `json:"penalties_bias"`
	} `json:"referee"`
	Stadium struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"stadium"`
	Tactical string `json:"tactical_preview"`
}

func (s *HTTPSources) matchPayload(ctx context.Context, m models.Match) (matchPayload, error) {
	var p matchPayload
	url := httpx.BuildURL(s.StatsBase+"/match", map[string]string{
		"home": m.Home, "away": m.Away, "date": m.Kickoff.UTC().Format("2006-01-02"),
	})
	if err := s.fetchJSON(ctx, s.StatsGuard, "match:"+m.ID, url, ttlFor(m.Kickoff), &p); err != nil {
		return p, err
	}

	fetched := FetchedFixture{Home: p.Home, Away: p.Away}
	if t, err := time.Parse(time.RFC3339, p.Kickoff); err == nil {
		fetched.Kickoff = t.UTC()
	}
	switch ValidateIdentity(m, fetched) {
	case IdentityMismatch:
		log.Warn().Str("match", m.ID).Str("fetched_home", p.Home).Str("fetched_away", p.Away).
			Msg("dropping enrichment item: fixture identity mismatch")
		return p, fmt.Errorf("fixture identity mismatch for %s", m.ID)
	case IdentitySwapped:
		p.Home, p.Away = p.Away, p.Home
	}
	return p, nil
}

// Referee resolves the appointed official.
func (s *HTTPSources) Referee(ctx context.Context, m models.Match) (RefereeInfo, error) {
	p, err := s.matchPayload(ctx, m)
	if err != nil {
		return RefereeInfo{}, err
	}
	if p.Referee.Name == "" {
		return RefereeInfo{}, fmt.Errorf("no referee appointed yet for %s", m.ID)
	}
	return RefereeInfo{
		Name:          p.Referee.Name,
		CardsPerMatch: p.Referee.CardsPerMatch,
		PenaltiesBias: p.Referee.PenaltiesBias,
	}, nil
}

// StadiumCoords resolves the venue location for the weather fetch.
func (s *HTTPSources) StadiumCoords(ctx context.Context, m models.Match) (Coords, error) {
	p, err := s.matchPayload(ctx, m)
	if err != nil {
		return Coords{}, err
	}
	if p.Stadium.Lat == 0 && p.Stadium.Lon == 0 {
		return Coords{}, fmt.Errorf("no stadium coordinates for %s", m.ID)
	}
	return Coords{Lat: p.Stadium.Lat, Lon: p.Stadium.Lon}, nil
}

// TacticalInsights resolves the aggregator's tactical preview text.
func (s *HTTPSources) TacticalInsights(ctx context.Context, m models.Match) (string, error) {
	p, err := s.matchPayload(ctx, m)
	if err != nil {
		return "", err
	}
	return p.Tactical, nil
}

// TeamStats resolves season scoring aggregates.
func (s *HTTPSources) TeamStats(ctx context.Context, team string, m models.Match) (TeamStats, error) {
	var p struct {
		Matches       int     `json:"matches"`
		GoalsScored   float64 `json:"goals_scored_avg"`
		GoalsConceded float64 `json:"goals_conceded_avg"`
		FormPoints    float64 `json:"form_points"`
	}
	url := httpx.BuildURL(s.StatsBase+"/team/stats", map[string]string{"name": team, "league": m.League})
	if err := s.fetchJSON(ctx, s.StatsGuard, "stats:"+strings.ToLower(team), url, ttlFor(m.Kickoff), &p); err != nil {
		return TeamStats{}, err
	}
	return TeamStats(p), nil
}

// Weather resolves kickoff-hour conditions at the stadium and derives the
// goals impact.
func (s *HTTPSources) Weather(ctx context.Context, at Coords, m models.Match) (WeatherImpact, error) {
	var p struct {
		Hourly struct {
			Temperature   []float64 `json:"temperature_2m"`
			Precipitation []float64 `json:"precipitation"`
			WindSpeed     []float64 `json:"wind_speed_10m"`
		} `json:"hourly"`
	}
	url := httpx.BuildURL(s.WeatherBase+"/forecast", map[string]string{
		"latitude":  fmt.Sprintf("%.4f", at.Lat),
		"longitude": fmt.Sprintf("%.4f", at.Lon),
		"hourly":    "temperature_2m,precipitation,wind_speed_10m",
	})
	if err := s.fetchJSON(ctx, s.WeatherGuard, "weather:"+m.ID, url, ttlFor(m.Kickoff), &p); err != nil {
		return WeatherImpact{}, err
	}

	idx := kickoffHourIndex(m.Kickoff)
	w := WeatherImpact{Summary: "clear"}
	if idx < len(p.Hourly.Temperature) {
		w.TempC = p.Hourly.Temperature[idx]
	}
	if idx < len(p.Hourly.Precipitation) {
		w.RainMm = p.Hourly.Precipitation[idx]
	}
	if idx < len(p.Hourly.WindSpeed) {
		w.WindKmh = p.Hourly.WindSpeed[idx]
	}

	switch {
	case w.RainMm >= 5 || w.WindKmh >= 45:
		w.Summary = "severe"
		w.GoalsImpact = -0.35
		w.Alert = true
	case w.RainMm >= 1 || w.WindKmh >= 30:
		w.Summary = "poor"
		w.GoalsImpact = -0.15
	}
	return w, nil
}

// kickoffHourIndex maps kickoff to the forecast's hourly array, which
// starts at today's 00:00 UTC.
func kickoffHourIndex(kickoff time.Time) int {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	idx := int(kickoff.UTC().Sub(midnight).Hours())
	if idx < 0 {
		idx = 0
	}
	return idx
}
