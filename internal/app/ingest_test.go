package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchedge/pitchedge/internal/models"
)

func sampleEvent(commence string) oddsEvent {
	raw := `{
		"id": "feed-1",
		"home_team": "Milan",
		"away_team": "Inter",
		"commence_time": "` + commence + `",
		"bookmakers": [{
			"markets": [{
				"key": "h2h",
				"outcomes": [
					{"name": "Milan", "price": 1.85},
					{"name": "Inter", "price": 4.2},
					{"name": "Draw", "price": 3.4}
				]
			}]
		}]
	}`
	var ev oddsEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		panic(err)
	}
	return ev
}

func TestEventToMatchFlattensOdds(t *testing.T) {
	now := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	ev := sampleEvent("2026-09-06T19:45:00Z")

	m, ok := eventToMatch(ev, "serie_a", now)
	require.True(t, ok)
	assert.Equal(t, "feed-1", m.ID)
	assert.Equal(t, "Milan", m.Home)
	assert.Equal(t, 1.85, m.CurrentOdds.Home)
	assert.Equal(t, 3.4, m.CurrentOdds.Draw)
	assert.Equal(t, 4.2, m.CurrentOdds.Away)
	assert.Equal(t, time.Date(2026, 9, 6, 19, 45, 0, 0, time.UTC), m.Kickoff)
}

func TestEventToMatchSkipsStartedEvents(t *testing.T) {
	now := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)

	_, ok := eventToMatch(sampleEvent("2026-09-05T09:00:00Z"), "serie_a", now)
	assert.False(t, ok, "kickoff in the past never enters the store")

	_, ok = eventToMatch(sampleEvent("2026-09-05T10:00:00Z"), "serie_a", now)
	assert.False(t, ok, "kickoff exactly now counts as started")
}

func TestEventToMatchRejectsIncomplete(t *testing.T) {
	now := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)

	ev := sampleEvent("2026-09-06T19:45:00Z")
	ev.HomeTeam = ""
	_, ok := eventToMatch(ev, "serie_a", now)
	assert.False(t, ok)

	ev = sampleEvent("not-a-timestamp")
	_, ok = eventToMatch(ev, "serie_a", now)
	assert.False(t, ok)

	ev = sampleEvent("2026-09-06T19:45:00Z")
	ev.Bookmakers = nil
	_, ok = eventToMatch(ev, "serie_a", now)
	assert.False(t, ok, "a fixture without a home price is unanalyzable")
}

func TestMatchIDStableWithoutFeedID(t *testing.T) {
	a := matchID("", "serie_a", "Milan", "Inter")
	b := matchID("", "serie_a", "Milan", "Inter")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, matchID("", "serie_a", "Inter", "Milan"))

	m := models.Match{ID: matchID("feed-9", "serie_a", "Milan", "Inter")}
	assert.Equal(t, "feed-9", m.ID)
}
