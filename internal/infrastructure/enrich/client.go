// Package enrich implements the external inference capability: condensed
// summaries plus urgency and freshness verdicts from an OpenAI-compatible
// chat completions API.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsflow/internal/config"
	"newsflow/internal/normalize"
	"newsflow/internal/ports"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Enricher = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.EnrichmentConfig) *Client {
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: cfg.Timeout()},
	}
}

// Summarize requests a digest bounded by maxChars. The budget is part of
// the prompt; the reply is additionally truncated on sentence boundaries
// as models routinely overshoot.
func (c *Client) Summarize(ctx context.Context, title, body string, maxChars int) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize this news item in at most %d characters. Keep all important names, places, dates and figures. Reply with the summary only.\n\nTitle: %s\n\n%s",
		maxChars, title, body)

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	return normalize.TruncateSentences(reply, maxChars), nil
}

// CheckUrgency asks whether the item is breaking news that should bypass
// normal pacing.
func (c *Client) CheckUrgency(ctx context.Context, title, body string) (bool, error) {
	prompt := fmt.Sprintf(
		"Is this breaking news of major immediate importance (war escalation, disaster, assassination, market crash)? Answer with exactly YES or NO.\n\nTitle: %s\n\n%s",
		title, body)

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return false, err
	}

	return parseYes(reply), nil
}

// CheckFreshness asks whether the underlying event happened within the
// freshness window; feeds routinely re-serve old stories with new
// timestamps. Ambiguous replies count as fresh.
func (c *Client) CheckFreshness(ctx context.Context, title, body string, maxAge time.Duration) (bool, error) {
	prompt := fmt.Sprintf(
		"Does this news item describe an event from the last %d minutes, as opposed to a recap or an old story resurfaced? Answer with exactly YES or NO.\n\nTitle: %s\n\n%s",
		int(maxAge.Minutes()), title, body)

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return false, err
	}

	return !parseNo(reply), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("enrichment client misconfigured: %w", ports.ErrEnrichmentUnavailable)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion call: %v: %w", err, ports.ErrEnrichmentUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion error %s: %s: %w",
			resp.Status, strings.TrimSpace(string(detail)), ports.ErrEnrichmentUnavailable)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", ports.ErrEnrichmentUnavailable)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func parseYes(reply string) bool {
	head := strings.ToUpper(strings.TrimSpace(reply))
	return strings.HasPrefix(head, "YES") || strings.HasPrefix(head, "ДА")
}

func parseNo(reply string) bool {
	head := strings.ToUpper(strings.TrimSpace(reply))
	return strings.HasPrefix(head, "NO") || strings.HasPrefix(head, "НЕТ")
}
