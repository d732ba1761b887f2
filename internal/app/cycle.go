package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/analyzer"
	"github.com/pitchedge/pitchedge/internal/collusion"
	"github.com/pitchedge/pitchedge/internal/enrich"
	"github.com/pitchedge/pitchedge/internal/fatigue"
	"github.com/pitchedge/pitchedge/internal/injury"
	"github.com/pitchedge/pitchedge/internal/market"
	"github.com/pitchedge/pitchedge/internal/models"
	"github.com/pitchedge/pitchedge/internal/quant"
)

// closingLineWindow is how close to kickoff a snapshot counts as the
// closing line.
const closingLineWindow = 30 * time.Minute

// RunCycle executes one full scan: league selection, fixture refresh,
// per-match analysis, alerting. Returns the number of alerts emitted.
func (a *App) RunCycle(ctx context.Context) int {
	start := time.Now()
	leagues := a.Brain.ForCycle(a.EmergencyMode())
	log.Info().Strs("leagues", leagues).Msg("cycle started")

	a.RefreshFixtures(ctx, leagues)

	alerts := 0
	if a.Store != nil {
		now := time.Now().UTC()
		matches, err := a.Store.ReadPendingMatches(ctx, leagues, now, a.Cfg.Pipeline.AnalysisHorizon.Std())
		if err != nil {
			log.Error().Err(err).Msg("pending matches read failed")
		}
		for _, m := range matches {
			if !m.Analyzable(now, a.Cfg.Pipeline.AnalysisHorizon.Std()) {
				continue
			}
			res := a.AnalyzeMatch(ctx, m)
			if a.Metrics != nil {
				a.Metrics.MatchesAnalyzed.Inc()
			}
			if alertWorthy(res, m, a.Cfg.Pipeline.AlertThresholdHigh) {
				a.Emitter.Emit(ctx, m, res)
				if err := a.Store.RecordAlert(ctx, res, time.Now()); err != nil {
					log.Error().Str("match", m.ID).Err(err).Msg("alert record failed")
				}
				if err := a.Store.RecordHighestScore(ctx, m.ID, res.Score); err != nil {
					log.Error().Str("match", m.ID).Err(err).Msg("highest score record failed")
				}
				if a.Metrics != nil {
					a.Metrics.AlertsEmitted.WithLabelValues(string(res.Verification)).Inc()
				}
				alerts++
			}
		}
	}

	a.Brain.RecordCycleOutcome(alerts)
	a.ObserveInfra()
	if a.Metrics != nil {
		a.Metrics.CyclesTotal.Inc()
		a.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}
	log.Info().Int("alerts", alerts).Dur("elapsed", time.Since(start)).Msg("cycle finished")
	return alerts
}

// AnalyzeMatch runs the whole per-match pipeline: market intelligence,
// enrichment, quantitative pricing, situational engines, AI triangulation
// and post-AI verification. At most one decision per call.
func (a *App) AnalyzeMatch(ctx context.Context, m models.Match) models.AnalysisResult {
	now := time.Now().UTC()

	if a.Store != nil {
		snap := models.OddsSnapshot{MatchID: m.ID, CapturedAt: now, Odds: m.CurrentOdds}
		var err error
		if time.Until(m.Kickoff) <= closingLineWindow {
			err = a.Store.CaptureClosingLine(ctx, snap)
		} else {
			err = a.Store.AppendOddsSnapshot(ctx, snap)
		}
		if err != nil {
			log.Warn().Str("match", m.ID).Err(err).Msg("snapshot append failed")
		}
	}

	steam, rlm := a.marketSignals(ctx, m)
	er := a.Orchestrator.Enrich(ctx, m)
	if len(er.FailedCalls) > 0 && a.Metrics != nil {
		a.Metrics.EnrichmentPartial.Inc()
	}

	lcfg := a.Cfg.League(m.League)
	assessment := a.priceMatch(m, er, lcfg.HomeAdvantage)

	var homeImpact, awayImpact *injury.TeamImpact
	if er.HomeContext != nil {
		t := injury.ScoreTeam(er.HomeContext.Missing, nil)
		homeImpact = &t
	}
	if er.AwayContext != nil {
		t := injury.ScoreTeam(er.AwayContext.Missing, nil)
		awayImpact = &t
	}

	fat := fatigueComparison(m, er)
	biscotto := a.detectCollusion(ctx, m, er, lcfg.DrawOddsThreshold)

	official := officialData(er, homeImpact, awayImpact, fat)
	if er.HomeContext == nil && er.AwayContext == nil {
		official += a.recoveredContext(ctx, m)
	}

	dossier := analyzer.Dossier{
		Today:               now,
		Match:               m,
		NewsSnippet:         a.newsSnippet(ctx, m),
		MarketStatus:        marketStatus(m, steam, rlm),
		OfficialData:        official,
		TeamStats:           statsBlock(er, assessment),
		TacticalContext:     a.tacticalBlock(ctx, m, er),
		InvestigationStatus: investigationBlock(biscotto),
	}

	res := a.Analyzer.Analyze(ctx, dossier, assessment.QuantBlock())

	var diff *injury.Differential
	if homeImpact != nil && awayImpact != nil {
		d := injury.Compare(*homeImpact, *awayImpact)
		diff = &d
	}
	res.Score = preliminaryScore(res, diff)

	if res.Verdict == models.VerdictBet && res.Score >= a.Cfg.Pipeline.VerificationScore {
		ev := a.buildEvidence(m, er, homeImpact, awayImpact)
		ev.CitedPlayers = res.CitedPlayers
		if a.Router != nil {
			stats, err := a.Router.BettingStats(ctx, m.Home, m.Away, m.Kickoff.UTC().Format("2006-01-02"), m.League)
			if err != nil {
				log.Warn().Str("match", m.ID).Err(err).Msg("betting stats lookup failed")
			} else {
				ev.H2H = &stats
			}
		}
		analyzer.Verify(&res, ev, a.verifyConfig())
		res.Normalize(a.Cfg.Pipeline.ConfidenceGate)
		res.Score = preliminaryScore(res, diff)
	}
	return res
}

func (a *App) verifyConfig() analyzer.VerifyConfig {
	vcfg := analyzer.DefaultVerifyConfig()
	vcfg.FormDeviationThreshold = a.Cfg.Pipeline.FormDeviationThreshold
	vcfg.H2HCardsThreshold = a.Cfg.Pipeline.H2HCardsThreshold
	vcfg.H2HCornersThreshold = a.Cfg.Pipeline.H2HCornersThreshold
	return vcfg
}

func (a *App) buildEvidence(m models.Match, er enrich.Result, homeImpact, awayImpact *injury.TeamImpact) analyzer.Evidence {
	ev := analyzer.Evidence{
		HomeImpact: homeImpact,
		AwayImpact: awayImpact,
		Odds:       m.CurrentOdds,
		Referee:    er.Referee,
	}
	if er.HomeContext != nil {
		ev.OfficialMissing = append(ev.OfficialMissing, er.HomeContext.Missing...)
	}
	if er.AwayContext != nil {
		ev.OfficialMissing = append(ev.OfficialMissing, er.AwayContext.Missing...)
	}
	if er.HomeStats != nil && er.AwayStats != nil {
		ev.HomeFormPPG = er.HomeStats.FormPoints / 5
		ev.AwayFormPPG = er.AwayStats.FormPoints / 5
		ev.LeagueMeanPPG = 1.35
	}
	return ev
}

// marketSignals reads the stored odds history and runs the steam and RLM
// detectors over it.
func (a *App) marketSignals(ctx context.Context, m models.Match) (*market.SteamMove, *market.RLMSignal) {
	var history []models.OddsSnapshot
	if a.Store != nil {
		var err error
		history, err = a.Store.ReadOddsHistory(ctx, m.ID, time.Now().Add(-2*time.Hour))
		if err != nil {
			log.Warn().Str("match", m.ID).Err(err).Msg("odds history read failed")
		}
	}
	steam := market.DetectSteam(history, market.SteamConfig{
		ThresholdPct: a.Cfg.Pipeline.SteamThresholdPct,
		Window:       a.Cfg.Pipeline.SteamWindow.Std(),
	})
	rlm := market.DetectRLM(
		m.OpeningOdds.Home, m.CurrentOdds.Home,
		m.OpeningOdds.Away, m.CurrentOdds.Away,
		market.PublicSplit{}, a.Cfg.Pipeline.RLMThresholdPct)
	return steam, rlm
}

// priceMatch builds the Poisson grid and the edge assessment. Without
// enriched stats the league average carries the model so the dossier still
// gets a quantitative anchor, at low sample weight.
func (a *App) priceMatch(m models.Match, er enrich.Result, homeAdvantage float64) quant.Assessment {
	model := quant.NewModel(1.35, homeAdvantage, a.Cfg.Pipeline.DixonColesRho)

	home := quant.TeamRates{Scored: model.LeagueAvg, Conceded: model.LeagueAvg, Matches: 0}
	away := home
	if er.HomeStats != nil {
		home = quant.TeamRates{
			Scored:   er.HomeStats.GoalsScored,
			Conceded: er.HomeStats.GoalsConceded,
			Matches:  er.HomeStats.Matches,
		}
	}
	if er.AwayStats != nil {
		away = quant.TeamRates{
			Scored:   er.AwayStats.GoalsScored,
			Conceded: er.AwayStats.GoalsConceded,
			Matches:  er.AwayStats.Matches,
		}
	}

	n := home.Matches
	if away.Matches < n {
		n = away.Matches
	}
	grid := model.Score(home, away)
	return quant.Assess(grid, m.CurrentOdds, n, a.Cfg.Pipeline.MaxStakePct)
}

// fatigueComparison scores both schedules when the contexts carry them.
func fatigueComparison(m models.Match, er enrich.Result) *fatigue.Comparison {
	if er.HomeContext == nil || er.AwayContext == nil {
		return nil
	}
	home := fatigue.ScoreTeam(er.HomeContext.RecentMatches, m.Kickoff, er.HomeContext.Depth)
	away := fatigue.ScoreTeam(er.AwayContext.RecentMatches, m.Kickoff, er.AwayContext.Depth)
	cmp := fatigue.Compare(home, away)
	return &cmp
}

// detectCollusion runs the draw-anomaly engine over the market and table
// picture, then asks the AI federation to confirm or downgrade strong hits.
func (a *App) detectCollusion(ctx context.Context, m models.Match, er enrich.Result, drawThreshold float64) collusion.Result {
	r := collusion.Detect(collusionInput(m, er), collusion.Config{
		DrawThreshold:      drawThreshold,
		SignificantDropPct: 12,
		CrashDropPct:       25,
		LeagueAvgDrawProb:  0.26,
		LeagueDrawStdDev:   0.05,
	})
	if r.Severity != collusion.SeverityHigh && r.Severity != collusion.SeverityExtreme {
		return r
	}
	if a.Router == nil {
		return r
	}
	pattern := fmt.Sprintf("draw %.2f (open %.2f, drop %.1f%%)", m.CurrentOdds.Draw, m.OpeningOdds.Draw, r.DropPct)
	facts, err := a.Router.ConfirmCollusion(ctx, aiIdentity(m), pattern, seasonContext(er), r.Factors)
	if err != nil {
		log.Warn().Str("match", m.ID).Err(err).Msg("collusion confirmation failed, keeping quantitative read")
		return r
	}
	if !facts.Plausible {
		r.Severity = collusion.SeverityMedium
		r.Recommendation = "MONITOR"
		r.Factors = append(r.Factors, "qualitative review found no mutual benefit")
	}
	return r
}

// collusionInput flattens the enrichment picture into the detector's input.
// MatchesRemaining takes the smaller known value so the run-in signal never
// fires early for only one side.
func collusionInput(m models.Match, er enrich.Result) collusion.Input {
	in := collusion.Input{
		CurrentDrawOdd: m.CurrentOdds.Draw,
		OpeningDrawOdd: m.OpeningOdds.Draw,
	}
	if er.HomeContext != nil {
		in.HomeCtx = *er.HomeContext
		in.MatchesRemaining = er.HomeContext.MatchesRemaining
		in.HomePointsNeeded = er.HomeContext.PointsNeeded
	}
	if er.AwayContext != nil {
		in.AwayCtx = *er.AwayContext
		in.AwayPointsNeeded = er.AwayContext.PointsNeeded
		if rem := er.AwayContext.MatchesRemaining; rem > 0 && (in.MatchesRemaining == 0 || rem < in.MatchesRemaining) {
			in.MatchesRemaining = rem
		}
	}
	return in
}

// seasonContext renders the standings picture for the confirmation prompt.
func seasonContext(er enrich.Result) string {
	var parts []string
	for _, c := range []*models.TeamContext{er.HomeContext, er.AwayContext} {
		if c == nil || !c.TableKnown() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: position %d/%d, %d points, %d matches remaining",
			c.Team, c.TablePosition, c.TableSize, c.Points, c.MatchesRemaining))
	}
	if len(parts) == 0 {
		return "standings unknown"
	}
	return strings.Join(parts, "; ")
}

// newsVerifyImpact is the decayed weight above which a headline is worth an
// AI fact-check before it enters the dossier.
const newsVerifyImpact = 8.0

// newsSnippet aggregates fresh search hits about both teams, decayed by
// age so stale headlines stop driving verdicts. High-impact items are
// fact-checked; a debunked one is dropped before it can sway the verdict.
func (a *App) newsSnippet(ctx context.Context, m models.Match) string {
	lcfg := a.Cfg.League(m.League)
	query := fmt.Sprintf("%s %s team news injuries lineup", m.Home, m.Away)
	hits := a.Search.Search(ctx, query, 5)

	var b strings.Builder
	for _, h := range hits {
		ageMin := market.ParseFreshness(h.Freshness)
		impact := market.DecayedImpact(10, time.Duration(ageMin)*time.Minute, lcfg.NewsDecayLambda, h.SourceType)
		if impact < 1 {
			continue
		}
		confidence := models.ConfidenceMedium
		if impact >= newsVerifyImpact && a.Router != nil {
			facts, err := a.Router.VerifyNews(ctx, h.Title, h.Snippet, fmt.Sprintf("%s / %s", m.Home, m.Away), "")
			switch {
			case err != nil:
				log.Warn().Str("match", m.ID).Err(err).Msg("news verification failed, keeping item unverified")
			case !facts.Confirmed && facts.Confidence >= 60:
				log.Info().Str("match", m.ID).Str("title", h.Title).Msg("dropping debunked news item")
				continue
			case facts.Confirmed:
				confidence = models.ConfidenceHigh
			}
		}
		fmt.Fprintf(&b, "- [%s, weight %.1f] %s: %s\n", h.Source, impact, h.Title, h.Snippet)
		if a.Store != nil {
			item := models.NewsItem{
				MatchID:    m.ID,
				Title:      h.Title,
				Snippet:    h.Snippet,
				Source:     h.Source,
				Confidence: confidence,
			}
			if err := a.Store.UpsertNews(ctx, item); err != nil {
				log.Warn().Str("match", m.ID).Err(err).Msg("news upsert failed")
			}
		}
	}
	return b.String()
}

// recoveredContext asks the AI federation for qualitative context when the
// stats aggregator yielded nothing for either side.
func (a *App) recoveredContext(ctx context.Context, m models.Match) string {
	if a.Router == nil {
		return ""
	}
	ec, err := a.Router.EnrichContext(ctx, aiIdentity(m), m.League, "")
	if err != nil {
		log.Warn().Str("match", m.ID).Err(err).Msg("context recovery failed")
		return ""
	}
	var b strings.Builder
	for _, f := range ec.NewFacts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if ec.MotivationHome != "" {
		fmt.Fprintf(&b, "Motivation home: %s\n", ec.MotivationHome)
	}
	if ec.MotivationAway != "" {
		fmt.Fprintf(&b, "Motivation away: %s\n", ec.MotivationAway)
	}
	return b.String()
}

// marketStatus summarizes current vs opening prices plus detected market
// intelligence tags.
func marketStatus(m models.Match, steam *market.SteamMove, rlm *market.RLMSignal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "1: %.2f (open %.2f) | X: %.2f (open %.2f) | 2: %.2f (open %.2f)\n",
		m.CurrentOdds.Home, m.OpeningOdds.Home,
		m.CurrentOdds.Draw, m.OpeningOdds.Draw,
		m.CurrentOdds.Away, m.OpeningOdds.Away)
	if m.CurrentOdds.Has(models.MarketOver25) {
		fmt.Fprintf(&b, "O2.5: %.2f | BTTS: %.2f\n", m.CurrentOdds.Over25, m.CurrentOdds.BTTS)
	}
	if steam != nil {
		fmt.Fprintf(&b, "STEAM: %s dropped %.1f%% (%.2f -> %.2f)\n", steam.Market, steam.DropPct, steam.From, steam.To)
	}
	if rlm != nil {
		fmt.Fprintf(&b, "REVERSE LINE MOVE: sharp side %s, %.1f%% against the public (%s confidence)\n",
			rlm.SharpSide, rlm.MovePct, rlm.Confidence)
	}
	return b.String()
}

// officialData lists absences, referee, weather and fatigue.
func officialData(er enrich.Result, homeImpact, awayImpact *injury.TeamImpact, fat *fatigue.Comparison) string {
	var b strings.Builder
	writeImpact := func(side string, ctx *models.TeamContext, imp *injury.TeamImpact) {
		if ctx == nil {
			return
		}
		names := make([]string, 0, len(ctx.Missing))
		for _, p := range ctx.Missing {
			names = append(names, fmt.Sprintf("%s (%s, %s)", p.Name, p.Position, p.Reason))
		}
		sev := ""
		if imp != nil {
			sev = fmt.Sprintf(" severity=%s impact=%.1f", imp.Severity, imp.Total)
		}
		fmt.Fprintf(&b, "%s missing:%s %s\n", side, sev, strings.Join(names, ", "))
	}
	writeImpact("HOME", er.HomeContext, homeImpact)
	writeImpact("AWAY", er.AwayContext, awayImpact)

	if er.HomeTurnoverRisk != "" || er.AwayTurnoverRisk != "" {
		fmt.Fprintf(&b, "Rotation risk: home %s, away %s\n",
			riskLabel(er.HomeTurnoverRisk), riskLabel(er.AwayTurnoverRisk))
	}
	if er.Referee != nil {
		fmt.Fprintf(&b, "Referee: %s (%.1f cards/match)\n", er.Referee.Name, er.Referee.CardsPerMatch)
	}
	if er.Weather != nil && er.Weather.Alert {
		fmt.Fprintf(&b, "WEATHER ALERT: %s, wind %.0f km/h, rain %.1f mm\n",
			er.Weather.Summary, er.Weather.WindKmh, er.Weather.RainMm)
	}
	if fat != nil && fat.Advantage != fatigue.AdvantageNeutral {
		fmt.Fprintf(&b, "Fatigue edge: %s (home %s vs away %s)\n",
			fat.Advantage, fat.Home.Level, fat.Away.Level)
	}
	return b.String()
}

// statsBlock renders season aggregates and the model's pricing.
func statsBlock(er enrich.Result, assessment quant.Assessment) string {
	var b strings.Builder
	if er.HomeStats != nil {
		fmt.Fprintf(&b, "Home: %.2f scored / %.2f conceded per match over %d\n",
			er.HomeStats.GoalsScored, er.HomeStats.GoalsConceded, er.HomeStats.Matches)
	}
	if er.AwayStats != nil {
		fmt.Fprintf(&b, "Away: %.2f scored / %.2f conceded per match over %d\n",
			er.AwayStats.GoalsScored, er.AwayStats.GoalsConceded, er.AwayStats.Matches)
	}
	g := assessment.Grid
	fmt.Fprintf(&b, "Model: 1 %.1f%% X %.1f%% 2 %.1f%% | O2.5 %.1f%% BTTS %.1f%%\n",
		g.HomeWin*100, g.Draw*100, g.AwayWin*100, g.Over25*100, g.BTTS*100)
	if assessment.Best != nil {
		fmt.Fprintf(&b, "Best value: %s edge %.1f%% (fair %.2f vs offered %.2f)\n",
			assessment.Best.Market, assessment.Best.EdgePct, assessment.Best.FairOdd, assessment.Best.ActualOdd)
	}
	return b.String()
}

// deepDiveInterval is how long a tactical deep dive stays fresh for a match.
const deepDiveInterval = 6 * time.Hour

// tacticalBlock refreshes the deep dive when the last one has gone stale.
// While throttled, or when the dive fails, the aggregator's tactical preview
// carries the section instead.
func (a *App) tacticalBlock(ctx context.Context, m models.Match, er enrich.Result) string {
	if time.Since(m.LastDeepDive) < deepDiveInterval {
		return er.Tactical
	}
	if a.Router == nil {
		return er.Tactical
	}
	id := aiIdentity(m)
	var missing []string
	if er.HomeContext != nil {
		for _, p := range er.HomeContext.Missing {
			missing = append(missing, p.Name)
		}
	}
	if er.AwayContext != nil {
		for _, p := range er.AwayContext.Missing {
			missing = append(missing, p.Name)
		}
	}
	referee := ""
	if er.Referee != nil {
		referee = er.Referee.Name
	}
	dd, err := a.Router.DeepDive(ctx, id, referee, missing)
	if err != nil {
		log.Warn().Str("match", m.ID).Err(err).Msg("deep dive failed")
		return er.Tactical
	}
	if !dd.IdentityOK {
		log.Warn().Str("match", m.ID).Msg("deep dive flagged identity mismatch, discarding")
		return er.Tactical
	}
	if a.Store != nil {
		if err := a.Store.MarkDeepDive(ctx, m.ID, time.Now().UTC()); err != nil {
			log.Warn().Str("match", m.ID).Err(err).Msg("deep dive stamp failed")
		}
	}
	var b strings.Builder
	b.WriteString(dd.TacticalSummary)
	if len(dd.KeyBattles) > 0 {
		fmt.Fprintf(&b, "\nKey battles: %s", strings.Join(dd.KeyBattles, "; "))
	}
	return b.String()
}

func riskLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func investigationBlock(r collusion.Result) string {
	if !r.Suspect {
		return "No draw anomaly detected."
	}
	return fmt.Sprintf("Draw anomaly %s (drop %.1f%%, factors: %s). %s",
		r.Severity, r.DropPct, strings.Join(r.Factors, "; "), r.Recommendation)
}
