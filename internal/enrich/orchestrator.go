package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Result is the aggregated enrichment for one match. Any field may be
// missing; downstream consumers degrade gracefully.
type Result struct {
	HomeContext      *models.TeamContext `json:"home_context,omitempty"`
	AwayContext      *models.TeamContext `json:"away_context,omitempty"`
	HomeTurnoverRisk string              `json:"home_turnover_risk,omitempty"`
	AwayTurnoverRisk string              `json:"away_turnover_risk,omitempty"`
	Referee          *RefereeInfo        `json:"referee,omitempty"`
	Stadium          *Coords             `json:"stadium,omitempty"`
	HomeStats        *TeamStats          `json:"home_stats,omitempty"`
	AwayStats        *TeamStats          `json:"away_stats,omitempty"`
	Tactical         string              `json:"tactical,omitempty"`
	Weather          *WeatherImpact      `json:"weather,omitempty"`

	ElapsedMs       int64            `json:"elapsed_ms"`
	SuccessfulCalls int              `json:"successful_calls"`
	FailedCalls     map[string]error `json:"-"`
}

// Config bounds the fan-out.
type Config struct {
	Concurrency int           // parallel task cap, default 4
	TaskTimeout time.Duration // per-task budget
	TotalBudget time.Duration // wall-clock deadline for the whole fan-out
}

// Orchestrator runs the nine independent fetches in parallel and the
// dependent weather fetch afterwards.
type Orchestrator struct {
	sources Sources
	cfg     Config
}

// NewOrchestrator builds the orchestrator with defaults applied.
func NewOrchestrator(sources Sources, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 12 * time.Second
	}
	if cfg.TotalBudget <= 0 {
		cfg.TotalBudget = 45 * time.Second
	}
	return &Orchestrator{sources: sources, cfg: cfg}
}

type taskResult struct {
	key   string
	err   error
	apply func(*Result)
}

// Enrich runs the fan-out. Failed tasks land in FailedCalls and never abort
// the others; the weather fetch runs sequentially after the join point and
// is skipped when no stadium coordinates were resolved.
func (o *Orchestrator) Enrich(ctx context.Context, m models.Match) Result {
	start := time.Now()
	out := Result{FailedCalls: map[string]error{}}

	total, cancel := context.WithTimeout(ctx, o.cfg.TotalBudget)
	defer cancel()

	tasks := []struct {
		key string
		run func(ctx context.Context) taskResult
	}{
		{"home_context", func(ctx context.Context) taskResult {
			v, err := o.sources.TeamContext(ctx, m.Home, m)
			return taskResult{err: err, apply: func(r *Result) { r.HomeContext = &v }}
		}},
		{"away_context", func(ctx context.Context) taskResult {
			v, err := o.sources.TeamContext(ctx, m.Away, m)
			return taskResult{err: err, apply: func(r *Result) { r.AwayContext = &v }}
		}},
		{"home_turnover", func(ctx context.Context) taskResult {
			v, err := o.sources.TurnoverRisk(ctx, m.Home, m)
			return taskResult{err: err, apply: func(r *Result) { r.HomeTurnoverRisk = v }}
		}},
		{"away_turnover", func(ctx context.Context) taskResult {
			v, err := o.sources.TurnoverRisk(ctx, m.Away, m)
			return taskResult{err: err, apply: func(r *Result) { r.AwayTurnoverRisk = v }}
		}},
		{"referee", func(ctx context.Context) taskResult {
			v, err := o.sources.Referee(ctx, m)
			return taskResult{err: err, apply: func(r *Result) { r.Referee = &v }}
		}},
		{"stadium_coords", func(ctx context.Context) taskResult {
			v, err := o.sources.StadiumCoords(ctx, m)
			return taskResult{err: err, apply: func(r *Result) { r.Stadium = &v }}
		}},
		{"home_stats", func(ctx context.Context) taskResult {
			v, err := o.sources.TeamStats(ctx, m.Home, m)
			return taskResult{err: err, apply: func(r *Result) { r.HomeStats = &v }}
		}},
		{"away_stats", func(ctx context.Context) taskResult {
			v, err := o.sources.TeamStats(ctx, m.Away, m)
			return taskResult{err: err, apply: func(r *Result) { r.AwayStats = &v }}
		}},
		{"tactical", func(ctx context.Context) taskResult {
			v, err := o.sources.TacticalInsights(ctx, m)
			return taskResult{err: err, apply: func(r *Result) { r.Tactical = v }}
		}},
	}

	sem := make(chan struct{}, o.cfg.Concurrency)
	results := make(chan taskResult, len(tasks))
	var wg sync.WaitGroup

	for _, t := range tasks {
		wg.Add(1)
		go func(key string, run func(ctx context.Context) taskResult) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-total.Done():
				results <- taskResult{key: key, err: total.Err()}
				return
			}

			taskCtx, taskCancel := context.WithTimeout(total, o.cfg.TaskTimeout)
			defer taskCancel()

			res := run(taskCtx)
			res.key = key
			results <- res
		}(t.key, t.run)
	}

	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			out.FailedCalls[res.key] = res.err
			continue
		}
		res.apply(&out)
		out.SuccessfulCalls++
	}

	// Dependent fetch: weather needs the stadium coordinates.
	if out.Stadium != nil && total.Err() == nil {
		wctx, wcancel := context.WithTimeout(total, o.cfg.TaskTimeout)
		w, err := o.sources.Weather(wctx, *out.Stadium, m)
		wcancel()
		if err != nil {
			out.FailedCalls["weather"] = err
		} else {
			out.Weather = &w
			out.SuccessfulCalls++
		}
	}

	out.ElapsedMs = time.Since(start).Milliseconds()
	if len(out.FailedCalls) > 0 {
		log.Debug().Str("match", m.ID).Int("ok", out.SuccessfulCalls).
			Int("failed", len(out.FailedCalls)).Int64("elapsed_ms", out.ElapsedMs).
			Msg("enrichment completed with partial results")
	}
	return out
}
