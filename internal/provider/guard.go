package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pitchedge/pitchedge/internal/net/budget"
	"github.com/pitchedge/pitchedge/internal/net/circuit"
	"github.com/pitchedge/pitchedge/internal/net/httpx"
)

var (
	// ErrBudgetRefused is returned when the budget tier policy blocks a call.
	ErrBudgetRefused = errors.New("budget refused call")
	// ErrCircuitOpen is returned when the provider's circuit is open.
	ErrCircuitOpen = errors.New("provider circuit open")
	// ErrNoKey is returned when the key pool is fully exhausted.
	ErrNoKey = errors.New("no usable credential")
)

// statusKeyExhausted is the vendor-specific "key quota spent" answer some
// aggregators use alongside 429.
const statusKeyExhausted = 432

// Guard composes the federation safety layers for one provider. Every call
// site goes through Do, which applies, in order: lazy budget resets, the
// tier policy, the circuit breaker, key selection, the shared HTTP client,
// key rotation on quota answers, and usage accounting.
type Guard struct {
	Name    string
	Budget  *budget.Tracker
	Circuit *circuit.Breaker
	Keys    *KeyRotator
	Client  *httpx.Client
	RateKey string

	// OnResult, when set, observes the outcome of every attempted call.
	OnResult func(success bool)
}

// Request is one guarded fetch. BuildURL receives the active credential and
// returns the full URL plus headers.
type Request struct {
	Component string
	Critical  bool
	Build     func(key string) (url string, headers map[string]string)
}

// Do executes the guarded call. Transient provider trouble is recovered
// locally (retry in the HTTP client, key rotation here); the caller sees an
// error only when this provider is out of the game for the current call.
func (g *Guard) Do(ctx context.Context, req Request) (*httpx.Response, error) {
	if g.Budget != nil && !g.Budget.CanCall(req.Component, req.Critical) {
		return nil, ErrBudgetRefused
	}
	if g.Circuit != nil && !g.Circuit.ShouldAllow() {
		return nil, ErrCircuitOpen
	}

	key := ""
	if g.Keys != nil {
		k, ok := g.Keys.Current()
		if !ok {
			if !g.Keys.RotateToNext() {
				return nil, ErrNoKey
			}
			k, _ = g.Keys.Current()
		}
		key = k
	}

	resp, err := g.fetch(ctx, req, key)

	// One retry after rotating the credential on quota answers.
	if err == nil && keyQuotaStatus(resp.StatusCode) && g.Keys != nil {
		log.Warn().Str("provider", g.Name).Int("status", resp.StatusCode).
			Msg("credential exhausted, rotating")
		g.Keys.MarkExhausted()
		if g.Keys.RotateToNext() {
			if k, ok := g.Keys.Current(); ok {
				resp, err = g.fetch(ctx, req, k)
			}
		}
	}

	switch {
	case err != nil:
		if g.Circuit != nil {
			g.Circuit.RecordFailure()
		}
		if g.OnResult != nil {
			g.OnResult(false)
		}
		return nil, err
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if g.Keys != nil {
			g.Keys.RecordCall()
		}
		if g.Budget != nil {
			g.Budget.RecordCall(req.Component)
		}
		if g.Circuit != nil {
			g.Circuit.RecordSuccess()
		}
		if g.OnResult != nil {
			g.OnResult(true)
		}
		return resp, nil
	default:
		if g.Circuit != nil {
			g.Circuit.RecordFailure()
		}
		if g.OnResult != nil {
			g.OnResult(false)
		}
		return resp, &HTTPError{Provider: g.Name, StatusCode: resp.StatusCode}
	}
}

func (g *Guard) fetch(ctx context.Context, req Request, key string) (*httpx.Response, error) {
	url, headers := req.Build(key)
	return g.Client.Get(ctx, g.RateKey, url, headers)
}

func keyQuotaStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == statusKeyExhausted
}

// HTTPError is a non-2xx answer that survived the retry ladder.
type HTTPError struct {
	Provider   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.StatusCode) + " from " + e.Provider
}
