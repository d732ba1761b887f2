package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pitchedge/pitchedge/internal/net/httpx"
)

// ErrTransient marks a vendor failure the router recovers from by failing
// over, without tripping a global cooldown.
var ErrTransient = errors.New("transient ai vendor failure")

// Vendor is one chat-completion backend.
type Vendor interface {
	Name() string
	Chat(ctx context.Context, system, user string) (string, error)
}

// ChatVendor speaks the OpenAI-compatible chat completions wire format used
// by both configured backends.
type ChatVendor struct {
	Label   string
	BaseURL string
	Model   string
	APIKey  string
	Client  *httpx.Client
	RateKey string
}

func (v *ChatVendor) Name() string { return v.Label }

// Chat sends one completion request. HTTP 429 and connection errors are
// wrapped as ErrTransient so the router fails over instead of cooling down.
func (v *ChatVendor) Chat(ctx context.Context, system, user string) (string, error) {
	if v.APIKey == "" {
		return "", fmt.Errorf("%s: %w", v.Label, ErrTransient)
	}

	payload, err := json.Marshal(map[string]any{
		"model": v.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.2,
	})
	if err != nil {
		return "", err
	}

	resp, err := v.Client.Post(ctx, v.RateKey, v.BaseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + v.APIKey,
		"Content-Type":  "application/json",
	}, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", v.Label, err, ErrTransient)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%s: rate limited: %w", v.Label, ErrTransient)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: http %d", v.Label, resp.StatusCode)
	}

	var body struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("%s: malformed body: %w", v.Label, err)
	}
	if len(body.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", v.Label)
	}
	return body.Choices[0].Message.Content, nil
}
