// Package app wires the federation layers, the engines and the analyzer
// into the scan pipeline and owns the main loop.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/ai"
	"github.com/pitchedge/pitchedge/internal/alert"
	"github.com/pitchedge/pitchedge/internal/analyzer"
	"github.com/pitchedge/pitchedge/internal/config"
	"github.com/pitchedge/pitchedge/internal/enrich"
	"github.com/pitchedge/pitchedge/internal/league"
	"github.com/pitchedge/pitchedge/internal/metrics"
	"github.com/pitchedge/pitchedge/internal/net/budget"
	"github.com/pitchedge/pitchedge/internal/net/circuit"
	"github.com/pitchedge/pitchedge/internal/net/httpx"
	"github.com/pitchedge/pitchedge/internal/net/ratelimit"
	"github.com/pitchedge/pitchedge/internal/provider"
	"github.com/pitchedge/pitchedge/internal/search"
	"github.com/pitchedge/pitchedge/internal/store"
)

// App is the assembled pipeline. Everything here is process-wide and built
// exactly once.
type App struct {
	Cfg *config.Config

	Client   *httpx.Client
	Budgets  *budget.Manager
	Circuits *circuit.Manager
	Guards   map[string]*provider.Guard

	Search       *search.Federation
	Router       *ai.Router
	Orchestrator *enrich.Orchestrator
	Analyzer     *analyzer.Analyzer
	Brain        *league.Brain

	Store   *store.Store
	Cache   *store.TeamCache
	Emitter *alert.Emitter
	Metrics *metrics.Collectors
}

// New builds and wires the whole pipeline from configuration.
func New(cfg *config.Config, collectors *metrics.Collectors) (*App, error) {
	limiter := ratelimit.NewLimiter(ratelimit.KeyConfig{
		MinInterval: 1 * time.Second,
		JitterMin:   100 * time.Millisecond,
		JitterMax:   400 * time.Millisecond,
		Burst:       1,
	})
	for key, rl := range cfg.RateLimits {
		limiter.Configure(key, ratelimit.KeyConfig{
			MinInterval: rl.MinInterval.Std(),
			JitterMin:   rl.JitterMin.Std(),
			JitterMax:   rl.JitterMax.Std(),
			Burst:       rl.Burst,
		})
	}

	client := httpx.NewClient(httpx.Config{
		MaxConcurrency: 8,
		RequestTimeout: 20 * time.Second,
		MaxRetries:     2,
	}, limiter)

	budgets := budget.NewManager()
	for name, b := range cfg.Budgets {
		components := make(map[string]int64, len(b.Components))
		for comp, alloc := range b.Components {
			components[comp] = int64(alloc)
		}
		critical := make(map[string]bool, len(b.Critical))
		for _, comp := range b.Critical {
			critical[comp] = true
		}
		budgets.AddProvider(budget.Config{
			Provider:          name,
			MonthlyLimit:      b.MonthlyLimit,
			DegradedThreshold: b.DegradedThreshold,
			DisabledThreshold: b.DisabledThreshold,
			Components:        components,
			Critical:          critical,
		})
	}

	circuits := circuit.NewManager()

	a := &App{
		Cfg:      cfg,
		Client:   client,
		Budgets:  budgets,
		Circuits: circuits,
		Guards:   make(map[string]*provider.Guard),
		Metrics:  collectors,
	}

	a.newGuard("brave", cfg.Keys.SearchPrimary)
	a.newGuard("serper", cfg.Keys.SearchTertiary)
	a.newGuard("duckduckgo", nil)
	a.newGuard("mojeek", nil)
	a.newGuard("stats", []string{cfg.Keys.SocialIntel})
	a.newGuard("weather", []string{cfg.Keys.Weather})
	a.newGuard("odds", []string{cfg.Keys.Odds})

	seen := provider.NewSeenCache(6 * time.Hour)
	a.Search = search.NewFederation([]search.Provider{
		&search.BraveProvider{Guard: a.Guards["brave"]},
		&search.DuckDuckGoProvider{Guard: a.Guards["duckduckgo"]},
		&search.SerperProvider{Guard: a.Guards["serper"]},
		&search.MojeekProvider{Guard: a.Guards["mojeek"]},
	}, seen, nil)

	primary := &ai.ChatVendor{
		Label:   "deepseek",
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
		APIKey:  cfg.Keys.AIPrimary,
		Client:  client,
		RateKey: "ai_primary",
	}
	fallback := &ai.ChatVendor{
		Label:   "gemini",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:   "gemini-2.0-flash",
		APIKey:  cfg.Keys.AIFallback,
		Client:  client,
		RateKey: "ai_fallback",
	}
	a.Router = ai.NewRouter(primary, fallback, a.Search, 3*time.Second)
	if collectors != nil {
		a.Router.OnFailover = collectors.AIFailovers.Inc
	}

	sources := enrich.NewHTTPSources(a.Guards["stats"], a.Guards["weather"])
	a.Orchestrator = enrich.NewOrchestrator(sources, enrich.Config{
		Concurrency: cfg.Enrichment.Concurrency,
		TaskTimeout: cfg.Enrichment.TaskTimeout.Std(),
		TotalBudget: cfg.Enrichment.TotalBudget.Std(),
	})

	a.Analyzer = analyzer.New(a.Router, cfg.Pipeline.ConfidenceGate)
	a.Brain = league.NewBrain(cfg.Tiers, cfg.Leagues, cfg.Pipeline)

	if cfg.Store.PostgresDSN != "" {
		st, err := store.Open(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.Store = st
	}
	a.Cache = store.NewTeamCache(cfg.Store.RedisAddr, cfg.Store.RedisDB)
	a.Emitter = alert.NewEmitter(alert.NewTelegram(client, cfg.Alert.BotToken, cfg.Alert.ChatID))

	return a, nil
}

// newGuard registers one provider guard. Providers without credentials get
// an empty rotator; their Available checks handle the rest.
func (a *App) newGuard(name string, keys []string) {
	clean := keys[:0:0]
	for _, k := range keys {
		if k != "" {
			clean = append(clean, k)
		}
	}

	tracker, ok := a.Budgets.Get(name)
	if !ok {
		a.Budgets.AddProvider(budget.Config{Provider: name})
		tracker, _ = a.Budgets.Get(name)
	}
	a.Circuits.AddProvider(name, circuit.Config{})
	breaker, _ := a.Circuits.Get(name)

	g := &provider.Guard{
		Name:    name,
		Budget:  tracker,
		Circuit: breaker,
		Keys:    provider.NewKeyRotator(clean),
		Client:  a.Client,
		RateKey: name,
	}
	if a.Metrics != nil {
		g.OnResult = func(success bool) {
			a.Metrics.ProviderCalls.WithLabelValues(name).Inc()
			if !success {
				a.Metrics.ProviderFailures.WithLabelValues(name).Inc()
			}
		}
	}
	a.Guards[name] = g
}

// EmergencyMode reports whether any critical provider budget has tipped
// into the disabled tier; the scheduler then narrows to Tier 1.
func (a *App) EmergencyMode() bool {
	for name, st := range a.Budgets.Snapshot() {
		if st.Disabled {
			log.Warn().Str("provider", name).Float64("pct", st.Percentage).
				Msg("provider budget disabled, emergency mode")
			return true
		}
	}
	return false
}

// ObserveInfra refreshes the budget and circuit gauges. Called once per
// cycle so scrapes between cycles see the last settled state.
func (a *App) ObserveInfra() {
	if a.Metrics == nil {
		return
	}
	for name, st := range a.Budgets.Snapshot() {
		a.Metrics.BudgetUtilization.WithLabelValues(name).Set(st.Percentage)
	}
	for name, st := range a.Circuits.Snapshot() {
		open := 0.0
		if st.State == "open" {
			open = 1
		}
		a.Metrics.CircuitOpen.WithLabelValues(name).Set(open)
	}
}

// Health backs the /health endpoint.
func (a *App) Health(ctx context.Context) map[string]string {
	out := map[string]string{}
	if a.Store != nil {
		out["postgres"] = "ok"
	} else {
		out["postgres"] = "disabled"
	}
	if err := a.Cache.Ping(ctx); err != nil {
		out["redis"] = "unreachable"
	} else {
		out["redis"] = "ok"
	}
	for name, st := range a.Circuits.Snapshot() {
		if st.State != "closed" {
			out["circuit_"+name] = st.State
		}
	}
	return out
}

// Close releases held connections.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	a.Cache.Close()
}
