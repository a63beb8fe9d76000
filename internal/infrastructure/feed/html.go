package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsflow/internal/domain"
	"newsflow/internal/normalize"
	"newsflow/internal/source"
)

// HTMLScanner extracts items from sites without feeds using config-driven
// CSS selectors. The link selector supports the pseudo syntax
// "a::attr(href)" for picking an attribute instead of text.
type HTMLScanner struct {
	client *http.Client
}

var _ source.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires an HTTP client; a nil client gets a sane default.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (s *HTMLScanner) Name() string {
	return "html"
}

// Scan downloads the page and extracts one item per selector match.
func (s *HTMLScanner) Scan(ctx context.Context, req source.Request) ([]domain.Item, error) {
	site := req.Site
	if site.HTMLURL == "" {
		return nil, fmt.Errorf("site %s has no html url", site.Name)
	}
	if site.Selector.Item == "" || site.Selector.Title == "" || site.Selector.Link == "" {
		return nil, fmt.Errorf("site %s has incomplete selectors", site.Name)
	}

	doc, err := s.fetchDocument(ctx, site.HTMLURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(site.HTMLURL)
	if err != nil {
		return nil, fmt.Errorf("invalid html url %s: %w", site.HTMLURL, err)
	}

	var items []domain.Item
	doc.Find(site.Selector.Item).Each(func(i int, node *goquery.Selection) {
		title := normalize.CleanText(node.Find(site.Selector.Title).First().Text())
		link := extractLink(node, site.Selector.Link)
		if title == "" || link == "" {
			return
		}

		if parsed, err := base.Parse(link); err == nil {
			link = parsed.String()
		}

		body := ""
		if site.Selector.Summary != "" {
			body = normalize.CleanText(node.Find(site.Selector.Summary).First().Text())
		}

		items = append(items, domain.Item{
			ID:             normalize.ItemID(site.Tag, link),
			Title:          title,
			Body:           body,
			Link:           link,
			SourceTag:      site.Tag,
			SourcePriority: site.Priority,
			FetchedAt:      req.Now,
		})
	})

	return items, nil
}

func (s *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractLink(node *goquery.Selection, selector string) string {
	if css, attrPart, found := strings.Cut(selector, "::attr("); found {
		attr := strings.TrimSuffix(strings.TrimSpace(attrPart), ")")
		value, _ := node.Find(css).First().Attr(attr)
		return normalize.CleanText(value)
	}

	value, _ := node.Find(selector).First().Attr("href")
	return normalize.CleanText(value)
}
