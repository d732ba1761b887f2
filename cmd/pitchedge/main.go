package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pitchedge/pitchedge/internal/app"
	"github.com/pitchedge/pitchedge/internal/config"
	"github.com/pitchedge/pitchedge/internal/metrics"
	"github.com/pitchedge/pitchedge/internal/models"
)

const (
	appName = "pitchedge"
	version = "v0.4.0"
)

var (
	flagConfig   string
	flagLoop     bool
	flagInterval time.Duration
	flagMatch    string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Football betting intelligence pipeline",
		Version: version,
		Long: `pitchedge scans upcoming football fixtures, prices them with a
Dixon-Coles adjusted Poisson model, layers market intelligence and
situational engines on top and triangulates a final verdict through the
AI federation.`,
	}
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "configuration file")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run scan cycles over the scheduled leagues",
		RunE:  runScan,
	}
	scanCmd.Flags().BoolVar(&flagLoop, "loop", false, "keep scanning on the configured interval")
	scanCmd.Flags().DurationVar(&flagInterval, "interval", 0, "override the cycle interval")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a single stored match",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&flagMatch, "match", "", "match id (required)")
	analyzeCmd.MarkFlagRequired("match")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print budget, circuit and scheduler state",
		RunE:  runStatus,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan loop with the metrics endpoint",
		RunE:  runServe,
	}

	rootCmd.AddCommand(scanCmd, analyzeCmd, statusCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildApp(withMetrics bool) (*app.App, *metrics.Collectors, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	var collectors *metrics.Collectors
	if withMetrics {
		collectors = metrics.NewCollectors(nil)
	}
	a, err := app.New(cfg, collectors)
	if err != nil {
		return nil, nil, err
	}
	return a, collectors, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := signalContext()
	if !flagLoop {
		a.RunCycle(ctx)
		return nil
	}

	interval := flagInterval
	if interval <= 0 {
		interval = a.Cfg.Pipeline.CycleInterval.Std()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scan loop stopped")
			return nil
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Store == nil {
		return fmt.Errorf("analyze needs a configured postgres store")
	}

	ctx := signalContext()
	now := time.Now().UTC()
	matches, err := a.Store.ReadPendingMatches(ctx, a.Cfg.LeagueKeys(), now, a.Cfg.Pipeline.AnalysisHorizon.Std())
	if err != nil {
		return err
	}
	var target *models.Match
	for i := range matches {
		if matches[i].ID == flagMatch {
			target = &matches[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("match %s not found in the pending window", flagMatch)
	}

	res := a.AnalyzeMatch(ctx, *target)
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	status := map[string]any{
		"budgets":   a.Budgets.Snapshot(),
		"circuits":  a.Circuits.Snapshot(),
		"scheduler": a.Brain.Stats(),
		"http_pool": a.Client.Stats(),
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, _, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := metrics.NewServer(a.Cfg.Metrics.ListenAddr, a.Health)
	srv.Start()

	ctx := signalContext()
	ticker := time.NewTicker(a.Cfg.Pipeline.CycleInterval.Std())
	defer ticker.Stop()

	a.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdown)
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		log.Info().Msg("shutdown signal received")
		cancel()
	}()
	return ctx
}
