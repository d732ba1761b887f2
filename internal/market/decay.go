// Package market holds the market-intelligence detectors: news impact
// decay, steam moves and reverse line movement.
package market

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// minImpactFloor is the 1% floor applied after 24 hours.
const minImpactFloor = 0.01

// SourceModifier tunes the decay rate per source type (official feeds decay
// slower than rumor mills).
var sourceModifier = map[string]float64{
	"official":  0.7,
	"tier1":     0.85,
	"insider":   1.0,
	"aggregate": 1.2,
	"social":    1.5,
}

// DecayedImpact applies Impact_t = Impact_0 * e^(-lambda*t) with t in
// hours. Non-positive ages return the initial impact; non-positive scores
// return 0.
func DecayedImpact(initial float64, age time.Duration, leagueLambda float64, sourceType string) float64 {
	if initial <= 0 {
		return 0
	}
	if age <= 0 {
		return initial
	}
	lambda := leagueLambda
	if lambda <= 0 {
		lambda = 0.10
	}
	if mod, ok := sourceModifier[strings.ToLower(sourceType)]; ok {
		lambda *= mod
	}
	hours := age.Hours()
	impact := initial * math.Exp(-lambda*hours)
	if hours >= 24 && impact < initial*minImpactFloor {
		impact = initial * minImpactFloor
	}
	return impact
}

var (
	relativeRe = regexp.MustCompile(`(?i)(\d+)\s*(minute|min|hour|hr|day)s?\s*ago`)
	justNowRe  = regexp.MustCompile(`(?i)^\s*(just now|now|moments ago)\s*$`)
)

// defaultFreshnessMinutes is assumed when a freshness string cannot be
// parsed.
const defaultFreshnessMinutes = 30

// ParseFreshness converts strings like "just now", "15 minutes ago",
// "2 hours ago" or "3 days ago" into an age in minutes.
func ParseFreshness(s string) int {
	if justNowRe.MatchString(s) {
		return 0
	}
	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return defaultFreshnessMinutes
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultFreshnessMinutes
	}
	switch strings.ToLower(m[2]) {
	case "minute", "min":
		return n
	case "hour", "hr":
		return n * 60
	case "day":
		return n * 24 * 60
	default:
		return defaultFreshnessMinutes
	}
}
