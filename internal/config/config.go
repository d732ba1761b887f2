// Package config loads the flat configuration surface for the whole
// pipeline: provider credentials, budgets, rate limits, league parameters
// and pipeline gates. The result is an immutable value constructed once at
// startup and passed by reference; nothing re-reads globals afterwards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Keys       KeysConfig                 `yaml:"keys"`
	Budgets    map[string]BudgetConfig    `yaml:"budgets"`
	RateLimits map[string]RateLimitConfig `yaml:"rate_limits"`
	Leagues    map[string]LeagueConfig    `yaml:"leagues"`
	Tiers      TiersConfig                `yaml:"tiers"`
	Pipeline   PipelineConfig             `yaml:"pipeline"`
	Enrichment EnrichmentConfig           `yaml:"enrichment"`
	Store      StoreConfig                `yaml:"store"`
	Alert      AlertConfig                `yaml:"alert"`
	Metrics    MetricsConfig              `yaml:"metrics"`
}

// Duration parses Go duration strings ("6s", "15m") from YAML; bare
// integers are taken as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration node %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// KeysConfig holds provider credentials. Multi-key providers carry a pool
// that the key rotator walks through.
type KeysConfig struct {
	SearchPrimary   []string `yaml:"search_primary"`   // paid, high quality
	SearchTertiary  []string `yaml:"search_tertiary"`  // paid, small budget
	AIPrimary       string   `yaml:"ai_primary"`
	AIFallback      string   `yaml:"ai_fallback"`
	Odds            string   `yaml:"odds"`
	Weather         string   `yaml:"weather"`
	SocialIntel     string   `yaml:"social_intel"`
}

// BudgetConfig parameterizes the tier policy for one provider.
type BudgetConfig struct {
	MonthlyLimit      int64          `yaml:"monthly_limit"`      // 0 = unlimited / monitoring only
	DegradedThreshold float64        `yaml:"degraded_threshold"` // fraction of monthly limit
	DisabledThreshold float64        `yaml:"disabled_threshold"` // fraction of monthly limit
	Components        map[string]int `yaml:"components"`         // per-component allocations
	Critical          []string       `yaml:"critical"`           // always-allowed components
}

// RateLimitConfig is the per-host pacing for the shared HTTP client.
type RateLimitConfig struct {
	MinInterval Duration `yaml:"min_interval"`
	JitterMin   Duration `yaml:"jitter_min"`
	JitterMax   Duration `yaml:"jitter_max"`
	Burst       int      `yaml:"burst"`
}

// HourRange is a UTC active-hours window; wrap-around (22 -> 4) is allowed.
type HourRange struct {
	FromUTC int `yaml:"from_utc"`
	ToUTC   int `yaml:"to_utc"`
}

// Contains reports whether the UTC hour falls inside the window.
func (h HourRange) Contains(hour int) bool {
	if h.FromUTC == h.ToUTC {
		return true
	}
	if h.FromUTC < h.ToUTC {
		return hour >= h.FromUTC && hour < h.ToUTC
	}
	return hour >= h.FromUTC || hour < h.ToUTC
}

// LeagueConfig holds the per-league model parameters.
type LeagueConfig struct {
	HomeAdvantage     float64    `yaml:"home_advantage"`      // additive on lambda_home
	NewsDecayLambda   float64    `yaml:"news_decay_lambda"`   // per-hour decay rate
	DrawOddsThreshold float64    `yaml:"draw_odds_threshold"` // biscotto base threshold
	MinorLeague       bool       `yaml:"minor_league"`
	ActiveHours       *HourRange `yaml:"active_hours,omitempty"`
}

// TiersConfig defines the scheduling tiers.
type TiersConfig struct {
	Tier1 []string `yaml:"tier1"` // always scanned
	Tier2 []string `yaml:"tier2"` // round-robin batches
}

// PipelineConfig collects the decision gates and model constants.
type PipelineConfig struct {
	AlertThresholdHigh     float64  `yaml:"alert_threshold_high"`
	VerificationScore      float64  `yaml:"verification_score_threshold"`
	ConfidenceGate         int      `yaml:"confidence_gate"`
	MaxStakePct            float64  `yaml:"max_stake_pct"`
	DixonColesRho          float64  `yaml:"dixon_coles_rho"`
	AnalysisHorizon        Duration `yaml:"analysis_horizon"`
	CycleInterval          Duration `yaml:"cycle_interval"`
	Tier2PerCycle          int      `yaml:"tier2_per_cycle"`
	Tier2DryCycles         int      `yaml:"tier2_dry_cycles_threshold"`
	Tier2FallbackDailyMax  int      `yaml:"tier2_fallback_daily_limit"`
	SteamThresholdPct      float64  `yaml:"steam_threshold_pct"`
	SteamWindow            Duration `yaml:"steam_window"`
	RLMThresholdPct        float64  `yaml:"rlm_threshold_pct"`
	FormDeviationThreshold float64  `yaml:"form_deviation_threshold"`
	H2HCardsThreshold      float64  `yaml:"h2h_cards_threshold"`
	H2HCornersThreshold    float64  `yaml:"h2h_corners_threshold"`
}

// EnrichmentConfig bounds the parallel fan-out.
type EnrichmentConfig struct {
	Concurrency int      `yaml:"concurrency"`
	TaskTimeout Duration `yaml:"task_timeout"`
	TotalBudget Duration `yaml:"total_budget"`
}

// StoreConfig points at the persistent store and the redis cache.
type StoreConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
}

// AlertConfig parameterizes the one-way alert channel.
type AlertConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// MetricsConfig controls the metrics/health HTTP listener.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads the YAML file, overlays secrets from the environment and
// applies defaults. Missing required credentials do not fail the load; the
// affected federation member is disabled at construction time instead.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.overlayEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// FromEnv builds a configuration entirely from the environment, used when no
// config file is supplied.
func FromEnv() *Config {
	cfg := &Config{}
	cfg.overlayEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) overlayEnv() {
	if v := os.Getenv("SEARCH_PRIMARY_KEYS"); v != "" {
		c.Keys.SearchPrimary = splitKeys(v)
	}
	if v := os.Getenv("SEARCH_TERTIARY_KEYS"); v != "" {
		c.Keys.SearchTertiary = splitKeys(v)
	}
	overlay := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	overlay(&c.Keys.AIPrimary, "AI_PRIMARY_KEY")
	overlay(&c.Keys.AIFallback, "AI_FALLBACK_KEY")
	overlay(&c.Keys.Odds, "ODDS_API_KEY")
	overlay(&c.Keys.Weather, "WEATHER_API_KEY")
	overlay(&c.Keys.SocialIntel, "SOCIAL_INTEL_KEY")
	overlay(&c.Store.PostgresDSN, "POSTGRES_DSN")
	overlay(&c.Store.RedisAddr, "REDIS_ADDR")
	overlay(&c.Alert.BotToken, "ALERT_BOT_TOKEN")
	overlay(&c.Alert.ChatID, "ALERT_CHAT_ID")
}

func splitKeys(v string) []string {
	var keys []string
	for _, k := range strings.Split(v, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c *Config) applyDefaults() {
	if c.Pipeline.AlertThresholdHigh == 0 {
		c.Pipeline.AlertThresholdHigh = 7.5
	}
	if c.Pipeline.VerificationScore == 0 {
		c.Pipeline.VerificationScore = 7.0
	}
	if c.Pipeline.ConfidenceGate == 0 {
		c.Pipeline.ConfidenceGate = 65
	}
	if c.Pipeline.MaxStakePct == 0 {
		c.Pipeline.MaxStakePct = 5.0
	}
	if c.Pipeline.DixonColesRho == 0 {
		c.Pipeline.DixonColesRho = -0.07
	}
	if c.Pipeline.AnalysisHorizon == 0 {
		c.Pipeline.AnalysisHorizon = Duration(48 * time.Hour)
	}
	if c.Pipeline.CycleInterval == 0 {
		c.Pipeline.CycleInterval = Duration(15 * time.Minute)
	}
	if c.Pipeline.Tier2PerCycle == 0 {
		c.Pipeline.Tier2PerCycle = 3
	}
	if c.Pipeline.Tier2DryCycles == 0 {
		c.Pipeline.Tier2DryCycles = 4
	}
	if c.Pipeline.Tier2FallbackDailyMax == 0 {
		c.Pipeline.Tier2FallbackDailyMax = 6
	}
	if c.Pipeline.SteamThresholdPct == 0 {
		c.Pipeline.SteamThresholdPct = 5.0
	}
	if c.Pipeline.SteamWindow == 0 {
		c.Pipeline.SteamWindow = Duration(15 * time.Minute)
	}
	if c.Pipeline.RLMThresholdPct == 0 {
		c.Pipeline.RLMThresholdPct = 3.0
	}
	if c.Pipeline.FormDeviationThreshold == 0 {
		c.Pipeline.FormDeviationThreshold = 1.5
	}
	if c.Pipeline.H2HCardsThreshold == 0 {
		c.Pipeline.H2HCardsThreshold = 4.5
	}
	if c.Pipeline.H2HCornersThreshold == 0 {
		c.Pipeline.H2HCornersThreshold = 9.5
	}
	if c.Enrichment.Concurrency == 0 {
		c.Enrichment.Concurrency = 4
	}
	if c.Enrichment.TaskTimeout == 0 {
		c.Enrichment.TaskTimeout = Duration(12 * time.Second)
	}
	if c.Enrichment.TotalBudget == 0 {
		c.Enrichment.TotalBudget = Duration(45 * time.Second)
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9180"
	}
	if c.Budgets == nil {
		c.Budgets = map[string]BudgetConfig{}
	}
	if c.RateLimits == nil {
		c.RateLimits = map[string]RateLimitConfig{}
	}
	if c.Leagues == nil {
		c.Leagues = map[string]LeagueConfig{}
	}
}

// League returns the parameters for a league key, with model defaults for
// unknown leagues.
func (c *Config) League(key string) LeagueConfig {
	if lc, ok := c.Leagues[key]; ok {
		if lc.HomeAdvantage == 0 {
			lc.HomeAdvantage = 0.30
		}
		if lc.NewsDecayLambda == 0 {
			lc.NewsDecayLambda = 0.10
		}
		if lc.DrawOddsThreshold == 0 {
			lc.DrawOddsThreshold = defaultDrawThreshold(lc.MinorLeague)
		}
		return lc
	}
	return LeagueConfig{
		HomeAdvantage:     0.30,
		NewsDecayLambda:   0.10,
		DrawOddsThreshold: defaultDrawThreshold(false),
	}
}

// LeagueKeys returns every scheduled league across both tiers.
func (c *Config) LeagueKeys() []string {
	keys := make([]string, 0, len(c.Tiers.Tier1)+len(c.Tiers.Tier2))
	keys = append(keys, c.Tiers.Tier1...)
	keys = append(keys, c.Tiers.Tier2...)
	return keys
}

func defaultDrawThreshold(minor bool) float64 {
	if minor {
		return 2.60
	}
	return 2.50
}
