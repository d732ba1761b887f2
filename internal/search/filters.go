package search

import (
	"regexp"
	"strings"
)

// shortTermLen is the length at or below which exclusion terms require
// word-boundary matching (so "NFL" does not fire inside "sNFLake").
const shortTermLen = 5

// ExclusionFilter drops results about other football codes or the wrong
// competition gender.
type ExclusionFilter struct {
	substrings []string
	boundary   []*regexp.Regexp
}

// DefaultExclusionVocabulary is the configured sport/gender exclusion list.
var DefaultExclusionVocabulary = []string{
	"nfl", "nba", "nhl", "mlb", "ncaa",
	"american football", "college football", "rugby", "futsal",
	"beach soccer", "gaelic",
	"women", "women's", "femminile", "feminine", "femenino", "wsl",
}

// DefaultExclusionFilter builds the filter over the default vocabulary.
func DefaultExclusionFilter() *ExclusionFilter {
	return NewExclusionFilter(DefaultExclusionVocabulary)
}

// NewExclusionFilter compiles the vocabulary; short terms get word-boundary
// regexes, longer phrases plain substring matching.
func NewExclusionFilter(vocab []string) *ExclusionFilter {
	f := &ExclusionFilter{}
	for _, term := range vocab {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if len(term) <= shortTermLen && !strings.Contains(term, " ") {
			f.boundary = append(f.boundary, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
		} else {
			f.substrings = append(f.substrings, term)
		}
	}
	return f
}

// Excluded reports whether the text trips the vocabulary.
func (f *ExclusionFilter) Excluded(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, s := range f.substrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, re := range f.boundary {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var negationRe = regexp.MustCompile(`(^|\s)-("[^"]+"|\S+)`)

// SplitNegations strips `-term` operators from a query, returning the bare
// query and the negated terms. Providers that cannot parse the operator get
// the bare query and the terms re-applied as post-fetch filters.
func SplitNegations(query string) (base string, negations []string) {
	matches := negationRe.FindAllStringSubmatch(query, -1)
	for _, m := range matches {
		term := strings.Trim(m[2], `"`)
		if term != "" {
			negations = append(negations, strings.ToLower(term))
		}
	}
	base = negationRe.ReplaceAllString(query, " ")
	base = strings.Join(strings.Fields(base), " ")
	return base, negations
}

func matchesAnyNegation(h Result, negations []string) bool {
	if len(negations) == 0 {
		return false
	}
	text := strings.ToLower(h.Title + " " + h.Snippet)
	for _, n := range negations {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
