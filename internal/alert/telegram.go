package alert

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pitchedge/pitchedge/internal/net/httpx"
)

// Telegram sends alerts through the bot API. It shares the process-wide
// HTTP client, so the host rate limiter applies.
type Telegram struct {
	client   *httpx.Client
	botToken string
	chatID   string
}

// NewTelegram builds the channel. Empty credentials yield nil, which the
// emitter treats as alerts disabled.
func NewTelegram(client *httpx.Client, botToken, chatID string) *Telegram {
	if botToken == "" || chatID == "" {
		return nil
	}
	return &Telegram{client: client, botToken: botToken, chatID: chatID}
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	resp, err := t.client.Post(ctx, "telegram", endpoint, headers, []byte(form.Encode()))
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}
	return nil
}
