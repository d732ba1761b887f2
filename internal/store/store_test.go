package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchedge/pitchedge/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func sampleMatch() models.Match {
	return models.Match{
		ID: "m1", League: "serie_a", Home: "Milan", Away: "Inter",
		Kickoff:     time.Date(2026, 9, 6, 19, 45, 0, 0, time.UTC),
		CurrentOdds: models.OddsSet{Home: 1.85, Draw: 3.4, Away: 4.2, Over25: 1.9},
	}
}

func TestUpsertMatch(t *testing.T) {
	s, mock := newMockStore(t)
	m := sampleMatch()

	mock.ExpectExec(`INSERT INTO matches`).
		WithArgs(m.ID, m.League, m.Home, m.Away, m.Kickoff.UTC(),
			1.85, 3.4, 4.2, 1.9, 0.0, 0.0, m.LastDeepDive.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertMatch(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordHighestScore(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE matches SET highest_score = GREATEST`).
		WithArgs("m1", 8.2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.RecordHighestScore(context.Background(), "m1", 8.2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeepDive(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 9, 6, 14, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE matches SET last_deep_dive`).
		WithArgs("m1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkDeepDive(context.Background(), "m1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAndReadOddsHistory(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO odds_snapshots`).
		WithArgs("m1", at, 1.85, 3.4, 4.2, 1.9, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.AppendOddsSnapshot(context.Background(), models.OddsSnapshot{
		MatchID: "m1", CapturedAt: at,
		Odds: models.OddsSet{Home: 1.85, Draw: 3.4, Away: 4.2, Over25: 1.9},
	}))

	rows := sqlmock.NewRows([]string{"match_id", "captured_at", "home_odd", "draw_odd", "away_odd", "over25_odd", "btts_odd"}).
		AddRow("m1", at.Add(-time.Hour), 2.0, 3.3, 4.0, 1.95, 0.0).
		AddRow("m1", at, 1.85, 3.4, 4.2, 1.9, 0.0)
	mock.ExpectQuery(`(?s)SELECT match_id, captured_at.*FROM odds_snapshots`).
		WithArgs("m1", at.Add(-2*time.Hour)).
		WillReturnRows(rows)

	got, err := s.ReadOddsHistory(context.Background(), "m1", at.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Odds.Home)
	assert.Equal(t, 1.85, got[1].Odds.Home)
	assert.True(t, got[0].CapturedAt.Before(got[1].CapturedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaptureClosingLine(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 9, 6, 19, 30, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT INTO odds_snapshots.*TRUE`).
		WithArgs("m1", at, 1.80, 3.5, 4.4, 1.88, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CaptureClosingLine(context.Background(), models.OddsSnapshot{
		MatchID: "m1", CapturedAt: at,
		Odds: models.OddsSet{Home: 1.80, Draw: 3.5, Away: 4.4, Over25: 1.88},
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadPendingMatches(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	ko := now.Add(26 * time.Hour)

	cols := []string{"id", "league", "home_team", "away_team", "kickoff",
		"open_home", "open_draw", "open_away", "open_over25", "open_btts",
		"cur_home", "cur_draw", "cur_away", "cur_over25", "cur_btts",
		"highest_score", "last_deep_dive"}
	mock.ExpectQuery(`(?s)SELECT id, league.*FROM matches`).
		WithArgs("serie_a", "premier_league", now, now.Add(48*time.Hour)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "serie_a", "Milan", "Inter", ko,
				2.0, 3.3, 4.0, 1.95, 0.0,
				1.85, 3.4, 4.2, 1.9, 0.0,
				0.0, time.Time{}))

	got, err := s.ReadPendingMatches(context.Background(), []string{"serie_a", "premier_league"}, now, 48*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Milan", got[0].Home)
	assert.Equal(t, 2.0, got[0].OpeningOdds.Home)
	assert.Equal(t, 1.85, got[0].CurrentOdds.Home)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAlertAndCount(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	r := models.AnalysisResult{
		MatchID: "m1", Verdict: models.VerdictBet, Confidence: 78,
		RecommendedMarket: "1", Reasoning: "edge",
		Quant:        models.QuantBlock{EdgePct: 8.2, KellyPct: 1.4},
		Verification: models.VerificationConfirmed,
	}

	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs("m1", at, r.Verdict, 78, "1", "edge", 8.2, 1.4, r.Verification).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.RecordAlert(context.Background(), r, at))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM alerts`).
		WithArgs(at.Add(-24 * time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	n, err := s.AlertCountSince(context.Background(), at.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection refused")

	for i := 0; i < 5; i++ {
		mock.ExpectExec(`INSERT INTO odds_snapshots`).WillReturnError(boom)
		err := s.AppendOddsSnapshot(context.Background(), models.OddsSnapshot{MatchID: "m1"})
		require.Error(t, err)
	}

	// Sixth call is refused by the breaker without touching the database.
	err := s.AppendOddsSnapshot(context.Background(), models.OddsSnapshot{MatchID: "m1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, boom)
}
