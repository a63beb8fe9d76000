// Package filter applies cheap, synchronous keyword and age rules before
// any similarity or enrichment work happens.
package filter

import (
	"strings"
	"time"

	"newsflow/internal/config"
	"newsflow/internal/domain"
)

// Filter holds the compiled keyword and age rules for one cycle.
type Filter struct {
	include []string
	exclude []string
	maxAge  time.Duration
}

// New compiles the configured rules. Keywords are matched case-insensitively
// against title and body.
func New(cfg config.FiltersConfig) *Filter {
	return &Filter{
		include: lowerAll(cfg.IncludeKeywords),
		exclude: lowerAll(cfg.ExcludeKeywords),
		maxAge:  cfg.MaxAge(),
	}
}

// Keep reports whether the item survives keyword and age rules. Items
// without a usable publish timestamp are assumed recent; the scorer's
// freshness check covers them later.
func (f *Filter) Keep(item domain.Item, now time.Time) bool {
	if !item.PublishedAt.IsZero() && now.Sub(item.PublishedAt) > f.maxAge {
		return false
	}

	text := strings.ToLower(item.Title + " " + item.Body)

	for _, keyword := range f.exclude {
		if strings.Contains(text, keyword) {
			return false
		}
	}

	if len(f.include) > 0 {
		for _, keyword := range f.include {
			if strings.Contains(text, keyword) {
				return true
			}
		}
		return false
	}

	return true
}

// Apply returns the items that pass, preserving input order.
func (f *Filter) Apply(items []domain.Item, now time.Time) []domain.Item {
	kept := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if f.Keep(item, now) {
			kept = append(kept, item)
		}
	}
	return kept
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
