// Package telegram delivers formatted items to a channel via the bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsflow/internal/domain"
	"newsflow/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Publisher sends one message per item to a Telegram chat.
type Publisher struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher registers bot token and chat identifier.
func NewPublisher(botToken, chatID string) *Publisher {
	return &Publisher{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish posts the formatted item. A 429 from the API is surfaced as
// ports.RateLimitedError carrying the wait Telegram asked for.
func (p *Publisher) Publish(ctx context.Context, item domain.Item, result domain.ScoreResult) error {
	if p.botToken == "" || p.chatID == "" {
		return fmt.Errorf("telegram publisher misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.botToken)
	form := url.Values{}
	form.Set("chat_id", p.chatID)
	form.Set("text", FormatMessage(item, result))
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ports.RateLimitedError{RetryAfter: retryAfter(resp)}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatMessage renders the outgoing text: hashtag line (with an urgency
// marker), the summary, and the source link.
func FormatMessage(item domain.Item, result domain.ScoreResult) string {
	var parts []string

	if tag := hashtag(item.SourceTag); tag != "" {
		if result.Urgent {
			tag = "⚡" + tag
		}
		parts = append(parts, html.EscapeString(tag))
	}

	summary := result.Summary
	if summary == "" {
		summary = item.Title
	}
	if summary != "" {
		parts = append(parts, html.EscapeString(summary))
	}

	if item.Link != "" {
		parts = append(parts, fmt.Sprintf(`<a href="%s">Read the full story</a>`,
			html.EscapeString(item.Link)))
	}

	return strings.Join(parts, "\n")
}

func hashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		return "#" + tag
	}
	return tag
}

func retryAfter(resp *http.Response) time.Duration {
	var payload struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Parameters.RetryAfter > 0 {
		return time.Duration(payload.Parameters.RetryAfter) * time.Second
	}
	return 30 * time.Second
}
