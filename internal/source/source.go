// Package source aggregates items across all configured feeds through
// registered scanner strategies.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsflow/internal/config"
	"newsflow/internal/domain"
	"newsflow/internal/ports"
)

// Request carries all parameters required to scan one configured feed.
type Request struct {
	Site config.SourceConfig
	Now  time.Time
}

// Scanner captures a single strategy implementation (RSS, HTML, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Item, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// MultiSource implements ports.Source over the registry and configured
// feeds. One failing feed never aborts the cycle; its error is logged and
// the remaining feeds are scanned.
type MultiSource struct {
	registry *Registry
	sites    []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.Source = (*MultiSource)(nil)

// NewMultiSource wires the scanner registry with config-defined feeds.
func NewMultiSource(reg *Registry, sites []config.SourceConfig, log *slog.Logger) *MultiSource {
	return &MultiSource{registry: reg, sites: sites, logger: log}
}

// Fetch scans every configured feed and returns the aggregated items,
// deduplicated by exact id within the batch.
func (s *MultiSource) Fetch(ctx context.Context, now time.Time) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	var aggregated []domain.Item
	seen := map[string]struct{}{}

	for _, site := range s.sites {
		strategy, err := s.registry.Resolve(scannerFor(site))
		if err != nil {
			s.warn("feed skipped", "site", site.Name, "error", err)
			continue
		}

		results, err := strategy.Scan(ctx, Request{Site: site, Now: now})
		if err != nil {
			if ctx.Err() != nil {
				return aggregated, ctx.Err()
			}
			s.warn("feed scan failed", "site", site.Name, "error", err)
			continue
		}

		for _, item := range results {
			if item.SourceTag == "" {
				item.SourceTag = site.Name
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			aggregated = append(aggregated, item)
		}

		s.debug("feed produced items", "site", site.Name, "count", len(results))
	}

	s.debug("fetch done", "total_items", len(aggregated))
	return aggregated, nil
}

func scannerFor(site config.SourceConfig) string {
	if site.Scanner != "" {
		return site.Scanner
	}
	if site.RSS != "" {
		return "rss"
	}
	return "html"
}

func (s *MultiSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *MultiSource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
