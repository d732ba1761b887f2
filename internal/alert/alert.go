// Package alert delivers final recommendations over a one-way channel.
// Delivery is best effort: a failed send is logged and never blocks or
// re-runs analysis.
package alert

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/models"
)

// Channel is a one-way alert sink.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// Emitter formats and dispatches decisions.
type Emitter struct {
	channel Channel
}

func NewEmitter(ch Channel) *Emitter {
	return &Emitter{channel: ch}
}

// Emit sends one formatted alert. Errors are swallowed after logging so a
// messenger outage cannot stall the cycle.
func (e *Emitter) Emit(ctx context.Context, m models.Match, r models.AnalysisResult) {
	if e == nil || e.channel == nil {
		return
	}
	if err := e.channel.Send(ctx, Format(m, r)); err != nil {
		log.Error().Str("match", m.ID).Err(err).Msg("alert delivery failed")
	}
}

// Format renders the HTML alert body.
func Format(m models.Match, r models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s vs %s</b>\n", html.EscapeString(m.Home), html.EscapeString(m.Away))
	fmt.Fprintf(&b, "%s | %s UTC\n\n", html.EscapeString(m.League), m.Kickoff.UTC().Format("Mon 02 Jan 15:04"))
	fmt.Fprintf(&b, "Verdict: <b>%s</b> (%d%%)\n", r.Verdict, r.Confidence)
	if r.RecommendedMarket != "" {
		fmt.Fprintf(&b, "Market: <b>%s</b>\n", html.EscapeString(r.RecommendedMarket))
	}
	if r.Quant.BestMarket != "" {
		fmt.Fprintf(&b, "Edge: %.1f%% | Kelly: %.2f%% | fair %.2f vs offered %.2f\n",
			r.Quant.EdgePct, r.Quant.KellyPct, r.Quant.FairOdd, r.Quant.ActualOdd)
	}
	fmt.Fprintf(&b, "Verification: %s\n", r.Verification)
	if r.PrimaryDriver != "" {
		fmt.Fprintf(&b, "Driver: %s\n", html.EscapeString(r.PrimaryDriver))
	}
	if r.Reasoning != "" {
		fmt.Fprintf(&b, "\n%s", html.EscapeString(r.Reasoning))
	}
	return b.String()
}
