// Package analyzer assembles the per-match dossier, drives the final AI
// verdict and runs the post-AI verification layer before anything is
// allowed to alert.
package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Dossier is the dynamic user payload for the triangulation call. The
// system preamble stays byte-stable; every per-call variable, including
// today's date, travels here.
type Dossier struct {
	Today               time.Time
	Match               models.Match
	NewsSnippet         string
	MarketStatus        string
	OfficialData        string
	TeamStats           string
	TacticalContext     string
	InvestigationStatus string
}

// Render produces the user payload in a fixed section order so prompts stay
// comparable across runs.
func (d Dossier) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TODAY: %s\n", d.Today.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "HOME_TEAM: %s\n", d.Match.Home)
	fmt.Fprintf(&b, "AWAY_TEAM: %s\n", d.Match.Away)
	fmt.Fprintf(&b, "LEAGUE: %s\n", d.Match.League)
	fmt.Fprintf(&b, "KICKOFF_UTC: %s\n", d.Match.Kickoff.UTC().Format(time.RFC3339))

	section(&b, "NEWS", d.NewsSnippet)
	section(&b, "MARKET_STATUS", d.MarketStatus)
	section(&b, "OFFICIAL_DATA", d.OfficialData)
	section(&b, "TEAM_STATS", d.TeamStats)
	section(&b, "TACTICAL_CONTEXT", d.TacticalContext)
	section(&b, "INVESTIGATION_STATUS", d.InvestigationStatus)
	return b.String()
}

func section(b *strings.Builder, name, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		body = "None available."
	}
	fmt.Fprintf(b, "\n[%s]\n%s\n", name, body)
}
