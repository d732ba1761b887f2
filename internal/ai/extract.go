// Package ai routes analysis prompts to a primary and fallback AI vendor
// behind one interface, with optional web-search pre-enrichment and a
// tolerant JSON extraction layer.
package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no valid JSON object can be extracted.
var ErrNoJSON = errors.New("no valid JSON object in response")

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// ExtractJSON pulls the last valid JSON object out of free-form model
// output. It tolerates surrounding prose, markdown fences and <think>
// blocks; when multiple objects are present, the last valid one wins.
func ExtractJSON(text string) (map[string]any, error) {
	text = thinkRe.ReplaceAllString(text, "")

	// Prefer fenced blocks when present.
	var candidates []string
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, text)

	var last map[string]any
	for _, c := range candidates {
		for _, raw := range scanObjects(c) {
			var obj map[string]any
			if err := json.Unmarshal([]byte(raw), &obj); err == nil {
				last = obj
			}
		}
	}
	if last == nil {
		return nil, ErrNoJSON
	}
	return last, nil
}

// scanObjects returns every balanced top-level {...} span, honoring string
// literals and escapes.
func scanObjects(s string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return spans
}

// GetString reads a string field with a typed default.
func GetString(obj map[string]any, key, def string) string {
	if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// GetInt reads a numeric field, clamped into [lo, hi].
func GetInt(obj map[string]any, key string, def, lo, hi int) int {
	v, ok := obj[key]
	if !ok {
		return clampInt(def, lo, hi)
	}
	switch n := v.(type) {
	case float64:
		return clampInt(int(n), lo, hi)
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(n)), &f); err == nil {
			return clampInt(int(f), lo, hi)
		}
	}
	return clampInt(def, lo, hi)
}

// GetFloat reads a float field with a default.
func GetFloat(obj map[string]any, key string, def float64) float64 {
	if v, ok := obj[key].(float64); ok {
		return v
	}
	return def
}

// GetBool reads a bool field with a default.
func GetBool(obj map[string]any, key string, def bool) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return def
}

// GetStrings reads a string-array field.
func GetStrings(obj map[string]any, key string) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
