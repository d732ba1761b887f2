// Package enrich fans out the per-match context fetches in parallel and
// validates that external sources are talking about the same fixture.
package enrich

import (
	"strings"
	"time"

	"github.com/pitchedge/pitchedge/internal/models"
)

// maxKickoffDrift is the largest kickoff disagreement two sources may have
// and still describe the same fixture.
const maxKickoffDrift = 4 * time.Hour

// IdentityOutcome classifies a cross-source fixture comparison.
type IdentityOutcome int

const (
	IdentityMatched IdentityOutcome = iota
	IdentitySwapped                 // same fixture, home/away inverted
	IdentityMismatch
)

func (o IdentityOutcome) String() string {
	switch o {
	case IdentityMatched:
		return "matched"
	case IdentitySwapped:
		return "swap"
	default:
		return "not-matched"
	}
}

// FetchedFixture is a fixture as reported by an external source.
type FetchedFixture struct {
	Home    string
	Away    string
	Kickoff time.Time
}

// ValidateIdentity compares a fetched fixture against the scheduled match.
// A kickoff drift beyond four hours or an opponent mismatch drops the item;
// a confident home/away inversion is corrected by the caller via the swap
// outcome.
func ValidateIdentity(scheduled models.Match, fetched FetchedFixture) IdentityOutcome {
	if !fetched.Kickoff.IsZero() {
		drift := scheduled.Kickoff.UTC().Sub(fetched.Kickoff.UTC())
		if drift < 0 {
			drift = -drift
		}
		if drift > maxKickoffDrift {
			return IdentityMismatch
		}
	}

	homeHome := teamsEqual(scheduled.Home, fetched.Home)
	awayAway := teamsEqual(scheduled.Away, fetched.Away)
	if homeHome && awayAway {
		return IdentityMatched
	}
	if teamsEqual(scheduled.Home, fetched.Away) && teamsEqual(scheduled.Away, fetched.Home) {
		return IdentitySwapped
	}
	return IdentityMismatch
}

// teamAliases expands the abbreviations the odds feeds like to use.
var teamAliases = map[string]string{
	"utd":    "united",
	"intl":   "international",
	"atl":    "atletico",
	"ath":    "athletic",
	"dep":    "deportivo",
	"spurs":  "tottenham",
	"wolves": "wolverhampton",
	"gladbach": "monchengladbach",
}

// fillerTokens carry no identity.
var fillerTokens = map[string]bool{
	"fc": true, "cf": true, "afc": true, "ac": true, "as": true, "ssc": true,
	"sc": true, "cd": true, "club": true, "de": true, "the": true,
	"calcio": true, "1.": true,
}

func normalizeTeamTokens(name string) []string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	var out []string
	for _, tok := range strings.Fields(b.String()) {
		if fillerTokens[tok] {
			continue
		}
		if alias, ok := teamAliases[tok]; ok {
			tok = alias
		}
		out = append(out, tok)
	}
	return out
}

// teamsEqual reports whether two names plausibly refer to the same team.
func teamsEqual(a, b string) bool {
	return tokenSimilarity(normalizeTeamTokens(a), normalizeTeamTokens(b)) >= 0.5
}

// tokenSimilarity scores token overlap, counting prefix matches so that
// "Man" still lines up with "Manchester".
func tokenSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := 0
	used := make([]bool, len(b))
	for _, ta := range a {
		for j, tb := range b {
			if used[j] {
				continue
			}
			if ta == tb || prefixMatch(ta, tb) {
				matched++
				used[j] = true
				break
			}
		}
	}
	denom := len(a)
	if len(b) < denom {
		denom = len(b)
	}
	return float64(matched) / float64(denom)
}

func prefixMatch(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return strings.HasPrefix(b, a)
}

// FuzzyMatchTeam picks the candidate most similar to the given name, or ""
// when nothing clears the similarity bar.
func FuzzyMatchTeam(name string, candidates []string) string {
	tokens := normalizeTeamTokens(name)
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := tokenSimilarity(tokens, normalizeTeamTokens(c))
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < 0.5 {
		return ""
	}
	return best
}
