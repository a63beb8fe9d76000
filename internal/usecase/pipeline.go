// Package usecase orchestrates one collection cycle: fetch, filter,
// deduplicate, score, and hand accepted items to the posting queue.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"newsflow/internal/cache"
	"newsflow/internal/dedup"
	"newsflow/internal/domain"
	"newsflow/internal/filter"
	"newsflow/internal/ports"
	"newsflow/internal/queue"
	"newsflow/internal/score"
)

// scoreWorkers bounds concurrent enrichment calls inside one cycle.
const scoreWorkers = 4

// PipelineDeps wires all collaborators into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.Source
	Published ports.PublishedStore
	Filter    *filter.Filter
	Dedup     *dedup.Deduplicator
	Scorer    *score.Scorer
	Cache     *cache.Cache
	Queue     *queue.Queue
	Logger    *slog.Logger

	// MaxPerSource caps how many items one source may enqueue per cycle;
	// zero means unlimited.
	MaxPerSource int
}

// Pipeline implements the collection workflow. A cycle is best-effort per
// item: one bad item or one failing feed never aborts the rest.
type Pipeline struct {
	source       ports.Source
	published    ports.PublishedStore
	filter       *filter.Filter
	dedup        *dedup.Deduplicator
	scorer       *score.Scorer
	cache        *cache.Cache
	queue        *queue.Queue
	logger       *slog.Logger
	maxPerSource int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:       deps.Source,
		published:    deps.Published,
		filter:       deps.Filter,
		dedup:        deps.Dedup,
		scorer:       deps.Scorer,
		cache:        deps.Cache,
		queue:        deps.Queue,
		logger:       deps.Logger,
		maxPerSource: deps.MaxPerSource,
	}
}

// RunCycle executes one collection pass triggered at now. Re-running a
// cycle over the same upstream content is a no-op: published ids and the
// dedup window drop everything already handled.
func (p *Pipeline) RunCycle(ctx context.Context, now time.Time) error {
	if p.source == nil {
		return nil
	}

	items, err := p.source.Fetch(ctx, now)
	if err != nil {
		return fmt.Errorf("fetch items: %w", err)
	}

	if p.filter != nil {
		before := len(items)
		items = p.filter.Apply(items, now)
		p.debug("filter pass", "kept", len(items), "rejected", before-len(items))
	}

	items, err = p.dropPublished(ctx, items)
	if err != nil {
		return err
	}

	items = p.dropDuplicates(items, now)
	if len(items) == 0 {
		p.debug("cycle produced nothing new")
		return nil
	}

	results := p.scoreAll(ctx, items)
	p.enqueue(items, results, now)

	if p.cache != nil {
		if removed := p.cache.Purge(ctx, now); removed > 0 {
			p.debug("expired cache entries purged", "count", removed)
		}
	}

	return nil
}

// dropPublished removes items whose ids were already delivered in an
// earlier run. A store failure aborts the cycle: proceeding blind would
// risk re-publishing the whole batch.
func (p *Pipeline) dropPublished(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if p.published == nil || len(items) == 0 {
		return items, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	seen, err := p.published.Published(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load published ids: %w", err)
	}

	kept := items[:0]
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		kept = append(kept, item)
	}

	p.debug("published check", "kept", len(kept), "already_published", len(items)-len(kept))
	return kept, nil
}

func (p *Pipeline) dropDuplicates(items []domain.Item, now time.Time) []domain.Item {
	if p.dedup == nil {
		return items
	}

	kept := items[:0]
	for _, item := range items {
		verdict := p.dedup.Check(item, now)
		if verdict.Duplicate {
			p.debug("duplicate dropped",
				"item", item.ID, "matched", verdict.MatchedID, "score", verdict.Score)
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

// scoreAll classifies the batch with a bounded worker pool. Results keep
// the input order so the queue sees items in arrival order within a cycle.
func (p *Pipeline) scoreAll(ctx context.Context, items []domain.Item) []domain.ScoreResult {
	p.scorer.BeginCycle()

	results := make([]domain.ScoreResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreWorkers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = p.scorer.Score(gctx, item)
			return nil
		})
	}

	// Workers never return errors; Score degrades instead of failing.
	_ = g.Wait()

	return results
}

func (p *Pipeline) enqueue(items []domain.Item, results []domain.ScoreResult, now time.Time) {
	perSource := map[string]int{}

	for i, item := range items {
		result := results[i]

		if !result.Fresh {
			p.debug("stale item dropped", "item", item.ID, "source", item.SourceTag)
			continue
		}

		if p.maxPerSource > 0 && perSource[item.SourceTag] >= p.maxPerSource {
			p.debug("source cap reached", "item", item.ID, "source", item.SourceTag)
			continue
		}

		outcome := p.queue.Enqueue(item, result, now)
		if !outcome.Accepted {
			p.warn("item dropped at queue",
				"item", item.ID, "source", item.SourceTag, "reason", outcome.DropReason)
			continue
		}
		if outcome.Evicted != nil {
			p.warn("backlog entry evicted",
				"item", outcome.Evicted.Item.ID, "evicted_by", item.ID)
		}

		perSource[item.SourceTag]++
		p.debug("item enqueued",
			"item", item.ID, "tier", result.Tier, "urgent", result.Urgent,
			"degraded", result.Degraded)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
