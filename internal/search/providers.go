package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"

	"github.com/pitchedge/pitchedge/internal/net/httpx"
	"github.com/pitchedge/pitchedge/internal/provider"
)

// BraveProvider is the primary paid, high-quality stage.
type BraveProvider struct {
	Guard *provider.Guard
}

func (b *BraveProvider) Name() string              { return "brave" }
func (b *BraveProvider) SupportsExclusions() bool  { return true }
func (b *BraveProvider) Available() bool {
	if b.Guard == nil || b.Guard.Keys == nil {
		return false
	}
	if _, ok := b.Guard.Keys.Current(); !ok {
		return false
	}
	return b.Guard.Budget == nil || b.Guard.Budget.CanCall("search", false)
}

func (b *BraveProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	resp, err := b.Guard.Do(ctx, provider.Request{
		Component: "search",
		Build: func(key string) (string, map[string]string) {
			url := httpx.BuildURL("https://api.search.brave.com/res/v1/web/search", map[string]string{
				"q":     query,
				"count": fmt.Sprint(limit),
			})
			return url, map[string]string{"X-Subscription-Token": key, "Accept": "application/json"}
		},
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("brave: malformed body: %w", err)
	}
	var out []Result
	for _, r := range body.Web.Results {
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: r.Description, Source: "brave"})
	}
	return out, nil
}

// DuckDuckGoProvider is the free, self-rate-limited secondary stage. It
// scrapes the HTML endpoint, so it cannot parse negation operators.
type DuckDuckGoProvider struct {
	Guard *provider.Guard
}

func (d *DuckDuckGoProvider) Name() string             { return "duckduckgo" }
func (d *DuckDuckGoProvider) SupportsExclusions() bool { return false }
func (d *DuckDuckGoProvider) Available() bool          { return d.Guard != nil }

var ddgResultRe = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>.*?<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
var tagRe = regexp.MustCompile(`<[^>]+>`)

func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	resp, err := d.Guard.Do(ctx, provider.Request{
		Component: "search",
		Build: func(string) (string, map[string]string) {
			return httpx.BuildURL("https://html.duckduckgo.com/html/", map[string]string{"q": query}), nil
		},
	})
	if err != nil {
		return nil, err
	}

	var out []Result
	for _, m := range ddgResultRe.FindAllStringSubmatch(string(resp.Body), limit) {
		out = append(out, Result{
			Title:   html.UnescapeString(tagRe.ReplaceAllString(m[2], "")),
			URL:     m[1],
			Snippet: html.UnescapeString(tagRe.ReplaceAllString(m[3], "")),
			Source:  "duckduckgo",
		})
	}
	return out, nil
}

// SerperProvider is the tertiary paid, small-budget stage.
type SerperProvider struct {
	Guard *provider.Guard
}

func (s *SerperProvider) Name() string             { return "serper" }
func (s *SerperProvider) SupportsExclusions() bool { return true }
func (s *SerperProvider) Available() bool {
	if s.Guard == nil || s.Guard.Keys == nil {
		return false
	}
	_, ok := s.Guard.Keys.Current()
	return ok
}

func (s *SerperProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	key, ok := s.Guard.Keys.Current()
	if !ok {
		return nil, provider.ErrNoKey
	}
	if s.Guard.Budget != nil && !s.Guard.Budget.CanCall("search", false) {
		return nil, provider.ErrBudgetRefused
	}
	if s.Guard.Circuit != nil && !s.Guard.Circuit.ShouldAllow() {
		return nil, provider.ErrCircuitOpen
	}

	payload, _ := json.Marshal(map[string]any{"q": query, "num": limit})
	resp, err := s.Guard.Client.Post(ctx, s.Guard.RateKey, "https://google.serper.dev/search",
		map[string]string{"X-API-KEY": key, "Content-Type": "application/json"}, payload)
	if err != nil {
		if s.Guard.Circuit != nil {
			s.Guard.Circuit.RecordFailure()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if s.Guard.Circuit != nil {
			s.Guard.Circuit.RecordFailure()
		}
		return nil, &provider.HTTPError{Provider: s.Name(), StatusCode: resp.StatusCode}
	}
	s.Guard.Keys.RecordCall()
	if s.Guard.Budget != nil {
		s.Guard.Budget.RecordCall("search")
	}
	if s.Guard.Circuit != nil {
		s.Guard.Circuit.RecordSuccess()
	}

	var body struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("serper: malformed body: %w", err)
	}
	var out []Result
	for _, r := range body.Organic {
		out = append(out, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet, Source: "serper"})
	}
	return out, nil
}

// MojeekProvider is the free unlimited last resort.
type MojeekProvider struct {
	Guard *provider.Guard
}

func (m *MojeekProvider) Name() string             { return "mojeek" }
func (m *MojeekProvider) SupportsExclusions() bool { return false }
func (m *MojeekProvider) Available() bool          { return m.Guard != nil }

var mojeekResultRe = regexp.MustCompile(`(?s)<a class="title" href="([^"]+)"[^>]*>(.*?)</a>.*?<p class="s">(.*?)</p>`)

func (m *MojeekProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	resp, err := m.Guard.Do(ctx, provider.Request{
		Component: "search",
		Build: func(string) (string, map[string]string) {
			return httpx.BuildURL("https://www.mojeek.com/search", map[string]string{"q": query}), nil
		},
	})
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, hit := range mojeekResultRe.FindAllStringSubmatch(string(resp.Body), limit) {
		out = append(out, Result{
			Title:   html.UnescapeString(tagRe.ReplaceAllString(hit[2], "")),
			URL:     hit[1],
			Snippet: html.UnescapeString(tagRe.ReplaceAllString(hit[3], "")),
			Source:  "mojeek",
		})
	}
	return out, nil
}
