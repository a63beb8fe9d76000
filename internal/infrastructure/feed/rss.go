// Package feed holds the source scanner strategies for RSS and HTML feeds.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"newsflow/internal/domain"
	"newsflow/internal/normalize"
	"newsflow/internal/source"
)

const userAgent = "newsflow/1.0"

// RSSScanner fetches and normalizes one RSS/Atom feed per configured site.
type RSSScanner struct {
	client *http.Client
	parser *gofeed.Parser
}

var _ source.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; a nil client gets a sane default.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client, parser: gofeed.NewParser()}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads the feed and converts entries into normalized items.
func (s *RSSScanner) Scan(ctx context.Context, req source.Request) ([]domain.Item, error) {
	if req.Site.RSS == "" {
		return nil, fmt.Errorf("site %s has no rss url", req.Site.Name)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Site.RSS, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		title := normalize.CleanText(entry.Title)
		link := normalize.CleanText(entry.Link)
		if title == "" || link == "" {
			continue
		}

		var publishedAt time.Time
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			publishedAt = entry.UpdatedParsed.UTC()
		}

		body := entry.Description
		if body == "" {
			body = entry.Content
		}

		items = append(items, domain.Item{
			ID:             normalize.ItemID(req.Site.Tag, link),
			Title:          title,
			Body:           normalize.CleanText(body),
			Link:           link,
			SourceTag:      req.Site.Tag,
			SourcePriority: req.Site.Priority,
			PublishedAt:    publishedAt,
			FetchedAt:      req.Now,
		})
	}

	return items, nil
}
