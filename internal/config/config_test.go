package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
keys:
  search_primary: ["bk1", "bk2"]
  odds: "odds-key"
budgets:
  brave:
    monthly_limit: 2000
    degraded_threshold: 0.8
    critical: ["triangulation"]
rate_limits:
  fotmob:
    min_interval: 6s
    jitter_min: 1s
    jitter_max: 3s
tiers:
  tier1: ["premier_league", "serie_a"]
  tier2: ["eredivisie"]
leagues:
  serie_a:
    home_advantage: 0.28
  brasileirao:
    minor_league: true
    active_hours:
      from_utc: 18
      to_utc: 4
pipeline:
  cycle_interval: 10m
  confidence_gate: 70
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"bk1", "bk2"}, cfg.Keys.SearchPrimary)
	assert.Equal(t, "odds-key", cfg.Keys.Odds)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.CycleInterval.Std(), "explicit value kept")
	assert.Equal(t, 70, cfg.Pipeline.ConfidenceGate)
	assert.Equal(t, 48*time.Hour, cfg.Pipeline.AnalysisHorizon.Std(), "default filled")
	assert.Equal(t, -0.07, cfg.Pipeline.DixonColesRho)
	assert.Equal(t, 5.0, cfg.Pipeline.SteamThresholdPct)
	assert.Equal(t, ":9180", cfg.Metrics.ListenAddr)
	assert.Equal(t, 6*time.Second, cfg.RateLimits["fotmob"].MinInterval.Std())
	assert.Equal(t, int64(2000), cfg.Budgets["brave"].MonthlyLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("SEARCH_PRIMARY_KEYS", "env1, env2 ,")
	t.Setenv("ODDS_API_KEY", "env-odds")
	t.Setenv("POSTGRES_DSN", "postgres://env")

	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"env1", "env2"}, cfg.Keys.SearchPrimary, "env wins over file")
	assert.Equal(t, "env-odds", cfg.Keys.Odds)
	assert.Equal(t, "postgres://env", cfg.Store.PostgresDSN)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AI_PRIMARY_KEY", "sk-primary")

	cfg := FromEnv()
	assert.Equal(t, "sk-primary", cfg.Keys.AIPrimary)
	assert.Equal(t, 65, cfg.Pipeline.ConfidenceGate)
	assert.NotNil(t, cfg.Leagues)
}

func TestLeagueDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	serieA := cfg.League("serie_a")
	assert.Equal(t, 0.28, serieA.HomeAdvantage, "configured value kept")
	assert.Equal(t, 0.10, serieA.NewsDecayLambda, "default filled")
	assert.Equal(t, 2.50, serieA.DrawOddsThreshold)

	minor := cfg.League("brasileirao")
	assert.Equal(t, 2.60, minor.DrawOddsThreshold, "minor leagues get the looser draw threshold")
	require.NotNil(t, minor.ActiveHours)
	assert.Equal(t, 18, minor.ActiveHours.FromUTC)

	unknown := cfg.League("ruritanian_first")
	assert.Equal(t, 0.30, unknown.HomeAdvantage)
	assert.Equal(t, 2.50, unknown.DrawOddsThreshold)
}

func TestLeagueKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"premier_league", "serie_a", "eredivisie"}, cfg.LeagueKeys())
}

func TestHourRangeContains(t *testing.T) {
	plain := HourRange{FromUTC: 9, ToUTC: 17}
	assert.True(t, plain.Contains(9))
	assert.True(t, plain.Contains(16))
	assert.False(t, plain.Contains(17), "upper bound exclusive")
	assert.False(t, plain.Contains(3))

	wrap := HourRange{FromUTC: 22, ToUTC: 4}
	assert.True(t, wrap.Contains(23))
	assert.True(t, wrap.Contains(0))
	assert.True(t, wrap.Contains(3))
	assert.False(t, wrap.Contains(4))
	assert.False(t, wrap.Contains(12))

	always := HourRange{FromUTC: 0, ToUTC: 0}
	assert.True(t, always.Contains(13))
}
