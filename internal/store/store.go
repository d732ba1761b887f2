// Package store persists matches, odds history, news and emitted alerts in
// Postgres, with a redis cache in front of the slow-moving team context.
package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/pitchedge/pitchedge/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
    id            TEXT PRIMARY KEY,
    league        TEXT NOT NULL,
    home_team     TEXT NOT NULL,
    away_team     TEXT NOT NULL,
    kickoff       TIMESTAMPTZ NOT NULL,
    open_home     DOUBLE PRECISION NOT NULL DEFAULT 0,
    open_draw     DOUBLE PRECISION NOT NULL DEFAULT 0,
    open_away     DOUBLE PRECISION NOT NULL DEFAULT 0,
    open_over25   DOUBLE PRECISION NOT NULL DEFAULT 0,
    open_btts     DOUBLE PRECISION NOT NULL DEFAULT 0,
    cur_home      DOUBLE PRECISION NOT NULL DEFAULT 0,
    cur_draw      DOUBLE PRECISION NOT NULL DEFAULT 0,
    cur_away      DOUBLE PRECISION NOT NULL DEFAULT 0,
    cur_over25    DOUBLE PRECISION NOT NULL DEFAULT 0,
    cur_btts      DOUBLE PRECISION NOT NULL DEFAULT 0,
    highest_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_deep_dive TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);
CREATE INDEX IF NOT EXISTS idx_matches_kickoff ON matches (kickoff);

CREATE TABLE IF NOT EXISTS odds_snapshots (
    match_id    TEXT NOT NULL REFERENCES matches(id),
    captured_at TIMESTAMPTZ NOT NULL,
    home_odd    DOUBLE PRECISION NOT NULL DEFAULT 0,
    draw_odd    DOUBLE PRECISION NOT NULL DEFAULT 0,
    away_odd    DOUBLE PRECISION NOT NULL DEFAULT 0,
    over25_odd  DOUBLE PRECISION NOT NULL DEFAULT 0,
    btts_odd    DOUBLE PRECISION NOT NULL DEFAULT 0,
    closing     BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_snapshots_match ON odds_snapshots (match_id, captured_at);

CREATE TABLE IF NOT EXISTS news_items (
    fingerprint  TEXT PRIMARY KEY,
    match_id     TEXT NOT NULL,
    title        TEXT NOT NULL,
    snippet      TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ,
    confidence   TEXT NOT NULL DEFAULT 'LOW',
    priority_boost DOUBLE PRECISION NOT NULL DEFAULT 0,
    deep_dive_applied BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS alerts (
    id          BIGSERIAL PRIMARY KEY,
    match_id    TEXT NOT NULL,
    emitted_at  TIMESTAMPTZ NOT NULL,
    verdict     TEXT NOT NULL,
    confidence  INT NOT NULL,
    market      TEXT NOT NULL DEFAULT '',
    reasoning   TEXT NOT NULL DEFAULT '',
    edge_pct    DOUBLE PRECISION NOT NULL DEFAULT 0,
    kelly_pct   DOUBLE PRECISION NOT NULL DEFAULT 0,
    verification TEXT NOT NULL DEFAULT 'UNVERIFIED'
);
CREATE INDEX IF NOT EXISTS idx_alerts_match ON alerts (match_id, emitted_at);
`

// Store wraps the Postgres handle behind a circuit breaker so a database
// outage degrades the pipeline instead of stalling it.
type Store struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
}

// Open connects, applies the schema and arms the breaker.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle; tests use this with sqlmock.
func NewWithDB(db *sqlx.DB) *Store {
	settings := gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("store breaker state change")
		},
	}
	return &Store{db: db, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) exec(fn func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// UpsertMatch inserts or refreshes a match row. Opening odds are written
// only on first sight; current odds always.
func (s *Store) UpsertMatch(ctx context.Context, m models.Match) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO matches (id, league, home_team, away_team, kickoff,
				open_home, open_draw, open_away, open_over25, open_btts,
				cur_home, cur_draw, cur_away, cur_over25, cur_btts,
				highest_score, last_deep_dive)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO UPDATE SET
				kickoff = EXCLUDED.kickoff,
				cur_home = EXCLUDED.cur_home,
				cur_draw = EXCLUDED.cur_draw,
				cur_away = EXCLUDED.cur_away,
				cur_over25 = EXCLUDED.cur_over25,
				cur_btts = EXCLUDED.cur_btts`,
			m.ID, m.League, m.Home, m.Away, m.Kickoff.UTC(),
			m.CurrentOdds.Home, m.CurrentOdds.Draw, m.CurrentOdds.Away,
			m.CurrentOdds.Over25, m.CurrentOdds.BTTS,
			m.HighestScore, m.LastDeepDive.UTC())
		return err
	})
}

// RecordHighestScore raises the match's emitted-score high-water mark. The
// mark only ever goes up; re-analysis below it stays silent.
func (s *Store) RecordHighestScore(ctx context.Context, matchID string, score float64) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE matches SET highest_score = GREATEST(highest_score, $2) WHERE id = $1`,
			matchID, score)
		return err
	})
}

// MarkDeepDive stamps the last tactical deep dive so the throttle can hold
// repeat calls for the same match.
func (s *Store) MarkDeepDive(ctx context.Context, matchID string, at time.Time) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE matches SET last_deep_dive = $2 WHERE id = $1`,
			matchID, at.UTC())
		return err
	})
}

// AppendOddsSnapshot records one timestamped odds capture.
func (s *Store) AppendOddsSnapshot(ctx context.Context, snap models.OddsSnapshot) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO odds_snapshots (match_id, captured_at, home_odd, draw_odd, away_odd, over25_odd, btts_odd)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			snap.MatchID, snap.CapturedAt.UTC(),
			snap.Odds.Home, snap.Odds.Draw, snap.Odds.Away, snap.Odds.Over25, snap.Odds.BTTS)
		return err
	})
}

// CaptureClosingLine stores the final pre-kickoff odds, marked so CLV
// reports can find them.
func (s *Store) CaptureClosingLine(ctx context.Context, snap models.OddsSnapshot) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO odds_snapshots (match_id, captured_at, home_odd, draw_odd, away_odd, over25_odd, btts_odd, closing)
			VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE)`,
			snap.MatchID, snap.CapturedAt.UTC(),
			snap.Odds.Home, snap.Odds.Draw, snap.Odds.Away, snap.Odds.Over25, snap.Odds.BTTS)
		return err
	})
}

type snapshotRow struct {
	MatchID    string    `db:"match_id"`
	CapturedAt time.Time `db:"captured_at"`
	HomeOdd    float64   `db:"home_odd"`
	DrawOdd    float64   `db:"draw_odd"`
	AwayOdd    float64   `db:"away_odd"`
	Over25Odd  float64   `db:"over25_odd"`
	BTTSOdd    float64   `db:"btts_odd"`
}

// ReadOddsHistory returns a match's snapshots in capture order.
func (s *Store) ReadOddsHistory(ctx context.Context, matchID string, since time.Time) ([]models.OddsSnapshot, error) {
	var rows []snapshotRow
	err := s.exec(func() error {
		return s.db.SelectContext(ctx, &rows, `
			SELECT match_id, captured_at, home_odd, draw_odd, away_odd, over25_odd, btts_odd
			FROM odds_snapshots
			WHERE match_id = $1 AND captured_at >= $2
			ORDER BY captured_at ASC`, matchID, since.UTC())
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.OddsSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.OddsSnapshot{
			MatchID:    r.MatchID,
			CapturedAt: r.CapturedAt,
			Odds: models.OddsSet{
				Home: r.HomeOdd, Draw: r.DrawOdd, Away: r.AwayOdd,
				Over25: r.Over25Odd, BTTS: r.BTTSOdd,
			},
		})
	}
	return out, nil
}

// UpsertNews stores a news item keyed by its fingerprint; duplicates across
// providers collapse onto the first row seen.
func (s *Store) UpsertNews(ctx context.Context, item models.NewsItem) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO news_items (fingerprint, match_id, title, snippet, source, published_at, confidence, priority_boost, deep_dive_applied)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (fingerprint) DO UPDATE SET
				priority_boost = EXCLUDED.priority_boost,
				deep_dive_applied = news_items.deep_dive_applied OR EXCLUDED.deep_dive_applied`,
			item.Fingerprint(), item.MatchID, item.Title, item.Snippet, item.Source,
			item.PublishedAt, item.Confidence, item.PriorityBoost, item.DeepDiveApplied)
		return err
	})
}

type matchRow struct {
	ID           string    `db:"id"`
	League       string    `db:"league"`
	Home         string    `db:"home_team"`
	Away         string    `db:"away_team"`
	Kickoff      time.Time `db:"kickoff"`
	OpenHome     float64   `db:"open_home"`
	OpenDraw     float64   `db:"open_draw"`
	OpenAway     float64   `db:"open_away"`
	OpenOver25   float64   `db:"open_over25"`
	OpenBTTS     float64   `db:"open_btts"`
	CurHome      float64   `db:"cur_home"`
	CurDraw      float64   `db:"cur_draw"`
	CurAway      float64   `db:"cur_away"`
	CurOver25    float64   `db:"cur_over25"`
	CurBTTS      float64   `db:"cur_btts"`
	HighestScore float64   `db:"highest_score"`
	LastDeepDive time.Time `db:"last_deep_dive"`
}

func (r matchRow) toModel() models.Match {
	return models.Match{
		ID: r.ID, League: r.League, Home: r.Home, Away: r.Away,
		Kickoff: r.Kickoff,
		OpeningOdds: models.OddsSet{
			Home: r.OpenHome, Draw: r.OpenDraw, Away: r.OpenAway,
			Over25: r.OpenOver25, BTTS: r.OpenBTTS,
		},
		CurrentOdds: models.OddsSet{
			Home: r.CurHome, Draw: r.CurDraw, Away: r.CurAway,
			Over25: r.CurOver25, BTTS: r.CurBTTS,
		},
		HighestScore: r.HighestScore,
		LastDeepDive: r.LastDeepDive,
	}
}

// ReadPendingMatches returns matches kicking off strictly after now and
// within the horizon, ordered by kickoff.
func (s *Store) ReadPendingMatches(ctx context.Context, leagues []string, now time.Time, horizon time.Duration) ([]models.Match, error) {
	query, args, err := sqlx.In(`
		SELECT id, league, home_team, away_team, kickoff,
			open_home, open_draw, open_away, open_over25, open_btts,
			cur_home, cur_draw, cur_away, cur_over25, cur_btts,
			highest_score, last_deep_dive
		FROM matches
		WHERE league IN (?) AND kickoff > ? AND kickoff <= ?
		ORDER BY kickoff ASC`, leagues, now.UTC(), now.UTC().Add(horizon))
	if err != nil {
		return nil, err
	}
	var rows []matchRow
	err = s.exec(func() error {
		return s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...)
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Match, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// RecordAlert persists an emitted decision for audit and dry-cycle
// accounting.
func (s *Store) RecordAlert(ctx context.Context, r models.AnalysisResult, at time.Time) error {
	return s.exec(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO alerts (match_id, emitted_at, verdict, confidence, market, reasoning, edge_pct, kelly_pct, verification)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			r.MatchID, at.UTC(), r.Verdict, r.Confidence, r.RecommendedMarket,
			r.Reasoning, r.Quant.EdgePct, r.Quant.KellyPct, r.Verification)
		return err
	})
}

// AlertCountSince reports how many alerts went out since the cutoff, used
// by the scheduler's dry-cycle accounting on restart.
func (s *Store) AlertCountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.exec(func() error {
		return s.db.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM alerts WHERE emitted_at >= $1`, since.UTC())
	})
	return n, err
}
