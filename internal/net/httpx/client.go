// Package httpx is the shared outbound HTTP client. One pool exists per
// process; every component's network I/O goes through it. It owns per-host
// rate limiting, bounded retries with exponential backoff, and browser
// fingerprint rotation for scraped endpoints.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/net/ratelimit"
)

// userAgents is the fingerprint pool rotated on 403/429 from scraped hosts.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.2420.81",
}

// Config bounds the client pool.
type Config struct {
	MaxConcurrency int
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
}

// Response is the digested result of one HTTP round-trip.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Client is the process-wide HTTP pool.
type Client struct {
	config    Config
	semaphore chan struct{}
	client    *http.Client
	limiter   *ratelimit.Limiter
	uaIndex   atomic.Int64
	mu        sync.Mutex
	stats     PoolStats
}

// PoolStats counts pool activity.
type PoolStats struct {
	TotalRequests   int64 `json:"total_requests"`
	SuccessRequests int64 `json:"success_requests"`
	FailedRequests  int64 `json:"failed_requests"`
	RetriedRequests int64 `json:"retried_requests"`
	RotatedAgents   int64 `json:"rotated_agents"`
}

// NewClient creates the shared pool over the given per-host limiter.
func NewClient(config Config, limiter *ratelimit.Limiter) *Client {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 8
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 400 * time.Millisecond
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = 20 * time.Second
	}
	return &Client{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client:    &http.Client{Timeout: config.RequestTimeout},
		limiter:   limiter,
	}
}

// BuildURL is the single query encoder in the process: callers pass raw
// parameter values and encoding happens exactly once.
func BuildURL(base string, params map[string]string) string {
	if len(params) == 0 {
		return base
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// Get performs a rate-limited GET against the given rate-limit key.
func (c *Client) Get(ctx context.Context, rateKey, rawURL string, headers map[string]string) (*Response, error) {
	return c.do(ctx, rateKey, http.MethodGet, rawURL, headers, nil)
}

// Post performs a rate-limited POST with the given body.
func (c *Client) Post(ctx context.Context, rateKey, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	return c.do(ctx, rateKey, http.MethodPost, rawURL, headers, body)
}

func (c *Client) do(ctx context.Context, rateKey, method, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.bump(func(s *PoolStats) { s.TotalRequests++ })

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.bump(func(s *PoolStats) { s.RetriedRequests++ })
			backoff := c.backoff(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, rateKey); err != nil {
				return nil, err
			}
		}

		resp, err := c.roundTrip(ctx, method, rawURL, headers, body)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
			// Scraped hosts answer 403/429 to stale fingerprints.
			c.rotateAgent(rateKey)
			lastErr = fmt.Errorf("http %d from %s", resp.StatusCode, rateKey)
			if resp.StatusCode == http.StatusTooManyRequests && attempt == c.config.MaxRetries {
				// Surface the final 429 so callers can rotate credentials.
				c.bump(func(s *PoolStats) { s.FailedRequests++ })
				return resp, nil
			}
		case resp.StatusCode == http.StatusServiceUnavailable:
			lastErr = fmt.Errorf("http 503 from %s", rateKey)
		default:
			c.bump(func(s *PoolStats) { s.SuccessRequests++ })
			return resp, nil
		}
	}

	c.bump(func(s *PoolStats) { s.FailedRequests++ })
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgents[int(c.uaIndex.Load())%len(userAgents)])
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: data, Header: resp.Header}, nil
}

func (c *Client) rotateAgent(rateKey string) {
	idx := c.uaIndex.Add(1)
	c.bump(func(s *PoolStats) { s.RotatedAgents++ })
	log.Debug().Str("rate_key", rateKey).Int64("fingerprint", idx%int64(len(userAgents))).
		Msg("rotated user agent fingerprint")
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.BackoffBase << uint(attempt-1)
	if d > c.config.BackoffMax {
		d = c.config.BackoffMax
	}
	return d
}

func (c *Client) bump(fn func(*PoolStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

// Stats returns a copy of the pool counters.
func (c *Client) Stats() PoolStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
