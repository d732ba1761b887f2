// Package metrics exposes the pipeline's prometheus collectors and the
// /metrics and /health HTTP surface.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Collectors holds the pipeline-wide instruments. One instance lives for
// the whole process.
type Collectors struct {
	CyclesTotal       prometheus.Counter
	CycleDuration     prometheus.Histogram
	MatchesAnalyzed   prometheus.Counter
	AlertsEmitted     *prometheus.CounterVec
	ProviderCalls     *prometheus.CounterVec
	ProviderFailures  *prometheus.CounterVec
	BudgetUtilization *prometheus.GaugeVec
	CircuitOpen       *prometheus.GaugeVec
	EnrichmentPartial prometheus.Counter
	AIFailovers       prometheus.Counter
}

// NewCollectors registers the instruments on the given registry, or the
// default one when nil.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collectors{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchedge_cycles_total",
			Help: "Completed scan cycles.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitchedge_cycle_duration_seconds",
			Help:    "Wall-clock duration of a scan cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		MatchesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchedge_matches_analyzed_total",
			Help: "Matches taken through the full analysis pipeline.",
		}),
		AlertsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchedge_alerts_emitted_total",
			Help: "Alerts emitted, by verification status.",
		}, []string{"verification"}),
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchedge_provider_calls_total",
			Help: "Outbound provider calls.",
		}, []string{"provider"}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchedge_provider_failures_total",
			Help: "Failed provider calls.",
		}, []string{"provider"}),
		BudgetUtilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pitchedge_budget_utilization",
			Help: "Monthly budget utilization percent per provider.",
		}, []string{"provider"}),
		CircuitOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pitchedge_circuit_open",
			Help: "1 when the provider circuit is open.",
		}, []string{"provider"}),
		EnrichmentPartial: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchedge_enrichment_partial_total",
			Help: "Enrichment runs that completed with failed tasks.",
		}),
		AIFailovers: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchedge_ai_failovers_total",
			Help: "Primary AI failures that fell through to the fallback.",
		}),
	}
}

// HealthFunc reports component health for /health.
type HealthFunc func(ctx context.Context) map[string]string

// Server exposes the observability endpoints.
type Server struct {
	addr   string
	health HealthFunc
	srv    *http.Server
}

func NewServer(addr string, health HealthFunc) *Server {
	return &Server{addr: addr, health: health}
}

// Start runs the HTTP server in the background until Stop.
func (s *Server) Start() {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", s.addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		for k, v := range s.health(ctx) {
			status[k] = v
			if v != "ok" {
				status["status"] = "degraded"
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if status["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
