// Package search federates heterogeneous web-search providers behind one
// interface: an ordered chain (quality-first, then free, then last-resort)
// with uniform query scrubbing, cross-provider dedup and sport-exclusion
// filtering.
package search

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/provider"
)

// Result is one search hit.
type Result struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	Source     string `json:"source"`
	Freshness  string `json:"freshness,omitempty"`   // provider age label, e.g. "2 hours ago"
	SourceType string `json:"source_type,omitempty"` // official / journalist / aggregator / rumor
}

// Provider is one member of the federation. Search returns its hits for an
// already-scrubbed query; Available lets a member refuse up front (budget,
// circuit, missing credentials).
type Provider interface {
	Name() string
	Available() bool
	SupportsExclusions() bool
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Federation walks its providers in order and returns the first non-empty
// answer. It never returns an error to callers: when every member refuses
// or fails, the answer is an empty list.
type Federation struct {
	providers []Provider
	seen      *provider.SeenCache
	filter    *ExclusionFilter
}

// NewFederation builds the ordered chain.
func NewFederation(providers []Provider, seen *provider.SeenCache, filter *ExclusionFilter) *Federation {
	if filter == nil {
		filter = DefaultExclusionFilter()
	}
	return &Federation{providers: providers, seen: seen, filter: filter}
}

// Search runs the chain. Negative-term operators are stripped for providers
// that cannot parse them and re-applied as post-fetch filters; the
// sport-exclusion vocabulary is applied to every provider's output.
func (f *Federation) Search(ctx context.Context, query string, limit int) []Result {
	base, negations := SplitNegations(query)

	for _, p := range f.providers {
		if !p.Available() {
			continue
		}
		q := query
		if !p.SupportsExclusions() {
			q = base
		}

		hits, err := p.Search(ctx, q, limit)
		if err != nil {
			log.Debug().Str("provider", p.Name()).Err(err).Msg("search provider failed, falling through")
			continue
		}
		if len(hits) == 0 {
			continue
		}

		filtered := f.postFilter(hits, p, negations)
		if len(filtered) > 0 {
			return filtered
		}
	}
	return nil
}

func (f *Federation) postFilter(hits []Result, p Provider, negations []string) []Result {
	var out []Result
	for _, h := range hits {
		if f.filter.Excluded(h.Title) || f.filter.Excluded(h.Snippet) {
			continue
		}
		if !p.SupportsExclusions() && matchesAnyNegation(h, negations) {
			continue
		}
		if f.seen != nil {
			if f.seen.IsSeen(h.Title, h.Source) {
				continue
			}
			f.seen.MarkSeen(h.Title, h.Source)
		}
		out = append(out, h)
	}
	return out
}
