package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/search"
)

// Searcher is the slice of the search federation the router needs for web
// pre-enrichment.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []search.Result
}

// brandScrub scrubs leftover vendor search branding from assembled prompts.
var brandScrub = strings.NewReplacer(
	"Brave Search", "web search",
	"DuckDuckGo", "web search",
	"Serper", "web search",
	"Mojeek", "web search",
)

// Router is the intelligence router: primary AI, optional web-search
// enrichment and a fallback AI behind one interface.
type Router struct {
	primary     Vendor
	fallback    Vendor
	searcher    Searcher
	minInterval time.Duration

	// OnFailover, when set, observes each fall-through to the fallback vendor.
	OnFailover func()

	mu       sync.Mutex
	lastCall time.Time
}

// NewRouter wires the two vendors and the search federation. minInterval is
// the local floor between AI calls.
func NewRouter(primary, fallback Vendor, searcher Searcher, minInterval time.Duration) *Router {
	if minInterval <= 0 {
		minInterval = 3 * time.Second
	}
	return &Router{primary: primary, fallback: fallback, searcher: searcher, minInterval: minInterval}
}

// pace enforces the router-local minimum interval between AI calls.
func (r *Router) pace(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	wait := r.minInterval - now.Sub(r.lastCall)
	if wait < 0 {
		wait = 0
	}
	r.lastCall = now.Add(wait)
	r.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// webBlock runs the search federation and formats a bounded excerpt for
// prompt injection.
func (r *Router) webBlock(ctx context.Context, query string, limit int) string {
	if r.searcher == nil || query == "" {
		return ""
	}
	hits := r.searcher.Search(ctx, query, limit)
	if len(hits) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[WEB SEARCH RESULTS]\n")
	for i, h := range hits {
		if i >= limit {
			break
		}
		snippet := h.Snippet
		if len(snippet) > 240 {
			snippet = snippet[:240]
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", h.Title, h.URL, snippet)
	}
	return b.String()
}

// ask assembles the final prompt, paces, calls primary then fallback on
// transient failure, and returns the first successfully parsed JSON object.
func (r *Router) ask(ctx context.Context, preamble, userPayload string) (map[string]any, error) {
	userPayload = brandScrub.Replace(userPayload)

	if err := r.pace(ctx); err != nil {
		return nil, err
	}

	vendors := []Vendor{r.primary}
	if r.fallback != nil {
		vendors = append(vendors, r.fallback)
	}

	var lastErr error
	for i, v := range vendors {
		if v == nil {
			continue
		}
		if i > 0 && r.OnFailover != nil {
			r.OnFailover()
		}
		text, err := v.Chat(ctx, preamble, userPayload)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrTransient) {
				log.Warn().Str("vendor", v.Name()).Err(err).Msg("ai vendor transient failure, failing over")
				continue
			}
			continue
		}
		obj, err := ExtractJSON(text)
		if err != nil {
			// Malformed output counts as a provider failure for this call.
			lastErr = fmt.Errorf("%s: %w", v.Name(), err)
			continue
		}
		return obj, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no ai vendor configured")
	}
	return nil, lastErr
}

// MatchIdentity names the fixture an operation is about.
type MatchIdentity struct {
	Home    string
	Away    string
	League  string
	Kickoff time.Time
}

func (m MatchIdentity) String() string {
	return fmt.Sprintf("%s vs %s (%s, kickoff %s)", m.Home, m.Away, m.League, m.Kickoff.UTC().Format(time.RFC3339))
}

// DeepDive produces the tactical assessment for a fixture.
func (r *Router) DeepDive(ctx context.Context, id MatchIdentity, referee string, missing []string) (DeepDiveResult, error) {
	web := r.webBlock(ctx, fmt.Sprintf("%s vs %s tactical preview lineup", id.Home, id.Away), 5)
	payload := fmt.Sprintf("MATCH: %s\nREFEREE: %s\nMISSING PLAYERS: %s\n%s",
		id, orUnknown(referee), orUnknown(strings.Join(missing, ", ")), web)

	obj, err := r.ask(ctx, PreambleDeepDive, payload)
	if err != nil {
		return DeepDiveResult{}, err
	}
	return DeepDiveResult{
		TacticalSummary:      GetString(obj, "tactical_summary", ""),
		KeyBattles:           GetStrings(obj, "key_battles"),
		ExpectedApproachHome: GetString(obj, "expected_approach_home", ""),
		ExpectedApproachAway: GetString(obj, "expected_approach_away", ""),
		Confidence:           GetInt(obj, "confidence", 0, 0, 100),
		IdentityOK:           GetBool(obj, "identity_ok", true),
	}, nil
}

// VerifyNews fact-checks one news item against team context.
func (r *Router) VerifyNews(ctx context.Context, title, snippet, team, context string) (VerificationFacts, error) {
	web := r.webBlock(ctx, fmt.Sprintf("%s %s", team, title), 3)
	payload := fmt.Sprintf("TEAM: %s\nNEWS TITLE: %s\nNEWS SNIPPET: %s\nKNOWN CONTEXT: %s\n%s",
		team, title, snippet, orUnknown(context), web)

	obj, err := r.ask(ctx, PreambleVerifyNews, payload)
	if err != nil {
		return VerificationFacts{}, err
	}
	return VerificationFacts{
		Confirmed:   GetBool(obj, "confirmed", false),
		Confidence:  GetInt(obj, "confidence", 0, 0, 100),
		PlayerNames: GetStrings(obj, "player_names"),
		ImpactNote:  GetString(obj, "impact_note", ""),
	}, nil
}

// ConfirmCollusion asks for a qualitative read on a detected draw anomaly.
func (r *Router) ConfirmCollusion(ctx context.Context, id MatchIdentity, oddsPattern, seasonContext string, factors []string) (ConfirmationFacts, error) {
	payload := fmt.Sprintf("MATCH: %s\nODDS PATTERN: %s\nSEASON CONTEXT: %s\nDETECTED FACTORS:\n- %s",
		id, oddsPattern, seasonContext, strings.Join(factors, "\n- "))

	obj, err := r.ask(ctx, PreambleConfirmCollusion, payload)
	if err != nil {
		return ConfirmationFacts{}, err
	}
	return ConfirmationFacts{
		Plausible:      GetBool(obj, "plausible", false),
		Confidence:     GetInt(obj, "confidence", 0, 0, 100),
		Reasoning:      GetString(obj, "reasoning", ""),
		CounterSignals: GetStrings(obj, "counter_signals"),
	}, nil
}

// BettingStats grounds head-to-head and scoring statistics in web results.
func (r *Router) BettingStats(ctx context.Context, home, away, date, league string) (BettingStatsResult, error) {
	web := r.webBlock(ctx, fmt.Sprintf("%s vs %s head to head statistics %s", home, away, league), 5)
	payload := fmt.Sprintf("FIXTURE: %s vs %s\nDATE: %s\nLEAGUE: %s\n%s", home, away, date, league, web)

	obj, err := r.ask(ctx, PreambleBettingStats, payload)
	if err != nil {
		return BettingStatsResult{}, err
	}
	return BettingStatsResult{
		H2HMatches:  GetInt(obj, "h2h_matches", 0, 0, 1000),
		H2HHomeWins: GetInt(obj, "h2h_home_wins", 0, 0, 1000),
		H2HDraws:    GetInt(obj, "h2h_draws", 0, 0, 1000),
		H2HAwayWins: GetInt(obj, "h2h_away_wins", 0, 0, 1000),
		AvgGoals:    GetFloat(obj, "avg_goals", 0),
		AvgCards:    GetFloat(obj, "avg_cards", 0),
		AvgCorners:  GetFloat(obj, "avg_corners", 0),
		Notes:       GetString(obj, "notes", ""),
	}, nil
}

// EnrichContext adds qualitative context beyond what is already known.
func (r *Router) EnrichContext(ctx context.Context, id MatchIdentity, league, existing string) (EnrichedContext, error) {
	web := r.webBlock(ctx, fmt.Sprintf("%s vs %s news %s", id.Home, id.Away, league), 5)
	payload := fmt.Sprintf("MATCH: %s\nLEAGUE: %s\nKNOWN CONTEXT: %s\n%s", id, league, orUnknown(existing), web)

	obj, err := r.ask(ctx, PreambleEnrichContext, payload)
	if err != nil {
		return EnrichedContext{}, err
	}
	return EnrichedContext{
		NewFacts:       GetStrings(obj, "new_facts"),
		MotivationHome: GetString(obj, "motivation_home", ""),
		MotivationAway: GetString(obj, "motivation_away", ""),
		Confidence:     GetInt(obj, "confidence", 0, 0, 100),
	}, nil
}

// Triangulate runs the final-verdict prompt over an assembled user dossier.
func (r *Router) Triangulate(ctx context.Context, userDossier string) (Verdict, error) {
	obj, err := r.ask(ctx, PreambleTriangulation, userDossier)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		FinalVerdict:      GetString(obj, "final_verdict", "NO BET"),
		Confidence:        GetInt(obj, "confidence", 0, 0, 100),
		RecommendedMarket: GetString(obj, "recommended_market", ""),
		ComboReasoning:    GetString(obj, "combo_reasoning", ""),
		PrimaryDriver:     GetString(obj, "primary_driver", ""),
		CitedPlayers:      GetStrings(obj, "cited_players"),
	}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
