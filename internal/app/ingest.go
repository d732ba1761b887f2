package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/ai"
	"github.com/pitchedge/pitchedge/internal/models"
	"github.com/pitchedge/pitchedge/internal/net/httpx"
	"github.com/pitchedge/pitchedge/internal/provider"
)

const oddsBase = "https://api.the-odds-api.com/v4/sports"

// oddsEvent is the odds feed's event record, digested to the markets the
// pipeline prices.
type oddsEvent struct {
	ID         string `json:"id"`
	HomeTeam   string `json:"home_team"`
	AwayTeam   string `json:"away_team"`
	Commence   string `json:"commence_time"`
	Bookmakers []struct {
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
				Point float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// RefreshFixtures pulls upcoming fixtures and current prices for the
// selected leagues and upserts them. Feed trouble degrades to analyzing
// whatever the store already holds.
func (a *App) RefreshFixtures(ctx context.Context, leagues []string) {
	g := a.Guards["odds"]
	if g == nil || a.Store == nil {
		return
	}
	now := time.Now().UTC()
	for _, lg := range leagues {
		events, err := a.fetchLeagueOdds(ctx, g, lg)
		if err != nil {
			log.Warn().Str("league", lg).Err(err).Msg("odds feed fetch failed")
			continue
		}
		for _, ev := range events {
			m, ok := eventToMatch(ev, lg, now)
			if !ok {
				continue
			}
			if err := a.Store.UpsertMatch(ctx, m); err != nil {
				log.Warn().Str("match", m.ID).Err(err).Msg("match upsert failed")
			}
		}
	}
}

func (a *App) fetchLeagueOdds(ctx context.Context, g *provider.Guard, league string) ([]oddsEvent, error) {
	resp, err := g.Do(ctx, provider.Request{
		Component: "odds_feed",
		Critical:  true,
		Build: func(key string) (string, map[string]string) {
			url := httpx.BuildURL(oddsBase+"/"+league+"/odds", map[string]string{
				"apiKey":     key,
				"regions":    "eu",
				"markets":    "h2h,totals",
				"oddsFormat": "decimal",
			})
			return url, nil
		},
	})
	if err != nil {
		return nil, err
	}
	var events []oddsEvent
	if err := json.Unmarshal(resp.Body, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// eventToMatch flattens the first bookmaker's prices into an OddsSet.
// Events already underway never enter the store.
func eventToMatch(ev oddsEvent, league string, now time.Time) (models.Match, bool) {
	kickoff, err := time.Parse(time.RFC3339, ev.Commence)
	if err != nil || ev.HomeTeam == "" || ev.AwayTeam == "" {
		return models.Match{}, false
	}
	if !kickoff.After(now) {
		return models.Match{}, false
	}
	m := models.Match{
		ID:      matchID(ev.ID, league, ev.HomeTeam, ev.AwayTeam),
		League:  league,
		Home:    ev.HomeTeam,
		Away:    ev.AwayTeam,
		Kickoff: kickoff.UTC(),
	}
	for _, bk := range ev.Bookmakers {
		for _, mk := range bk.Markets {
			switch mk.Key {
			case "h2h":
				for _, o := range mk.Outcomes {
					switch o.Name {
					case ev.HomeTeam:
						m.CurrentOdds.Home = o.Price
					case ev.AwayTeam:
						m.CurrentOdds.Away = o.Price
					case "Draw":
						m.CurrentOdds.Draw = o.Price
					}
				}
			case "totals":
				for _, o := range mk.Outcomes {
					if o.Point == 2.5 && strings.EqualFold(o.Name, "Over") {
						m.CurrentOdds.Over25 = o.Price
					}
				}
			}
		}
		if m.CurrentOdds.Has(models.MarketHome) {
			break
		}
	}
	return m, m.CurrentOdds.Has(models.MarketHome)
}

// matchID keeps feed identifiers when present and mints a stable UUID from
// the fixture key otherwise.
func matchID(feedID, league, home, away string) string {
	if feedID != "" {
		return feedID
	}
	key := strings.ToLower(league + "|" + home + "|" + away)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func aiIdentity(m models.Match) ai.MatchIdentity {
	return ai.MatchIdentity{Home: m.Home, Away: m.Away, League: m.League, Kickoff: m.Kickoff}
}
