// Package score classifies unique items into an importance tier and urgency
// flag, consulting the enrichment cache before spending external calls.
package score

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsflow/internal/cache"
	"newsflow/internal/config"
	"newsflow/internal/domain"
	"newsflow/internal/normalize"
	"newsflow/internal/ports"
)

const (
	failureCooldownBase = 30 * time.Second
	failureCooldownMax  = 10 * time.Minute
)

// Scorer produces a ScoreResult per item. Enrichment failures never drop an
// item: the scorer falls back to the keyword heuristic and flags the result
// degraded. Repeated failures open an exponential cool-down window during
// which no external calls are attempted.
type Scorer struct {
	cache    *cache.Cache
	enricher ports.Enricher
	analyzer *Analyzer
	maxAge   time.Duration
	logger   *slog.Logger

	mu              sync.Mutex
	urgencyBudget   int
	freshnessBudget int
	urgencyUsed     int
	freshnessUsed   int
	failures        int
	cooldownUntil   time.Time

	nowFn func() time.Time
}

// New wires the scorer; enricher may be nil, in which case every result is
// heuristic.
func New(cfg config.EnrichmentConfig, maxAge time.Duration, c *cache.Cache, enricher ports.Enricher, logger *slog.Logger) *Scorer {
	return &Scorer{
		cache:           c,
		enricher:        enricher,
		analyzer:        NewAnalyzer(),
		maxAge:          maxAge,
		logger:          logger,
		urgencyBudget:   cfg.MaxUrgencyChecks,
		freshnessBudget: cfg.MaxFreshnessChecks,
		nowFn:           time.Now,
	}
}

// BeginCycle resets the per-cycle enrichment call budgets.
func (s *Scorer) BeginCycle() {
	s.mu.Lock()
	s.urgencyUsed = 0
	s.freshnessUsed = 0
	s.mu.Unlock()
}

// Score classifies one item. A cache hit reuses the cached verdicts
// verbatim; a miss consumes enrichment budget and stores the result with
// the cache TTL. Degraded results are not cached so the next cycle can
// retry enrichment.
func (s *Scorer) Score(ctx context.Context, item domain.Item) domain.ScoreResult {
	now := s.nowFn()
	key := normalize.FingerprintKey(item.Title, item.Body)

	if entry, ok := s.cache.Get(ctx, key); ok {
		return domain.ScoreResult{
			ItemID:   item.ID,
			Tier:     entry.Tier,
			Urgent:   entry.Urgent,
			Fresh:    entry.Fresh,
			Summary:  entry.Summary,
			ScoredAt: now,
		}
	}

	signals := s.analyzer.Analyze(item.Title, item.Body)

	if s.enricher == nil || s.coolingDown(now) {
		return s.heuristicResult(item, signals, now)
	}

	result := domain.ScoreResult{ItemID: item.ID, ScoredAt: now}
	degraded := false

	urgent := signals.Urgent
	if s.takeBudget(&s.urgencyUsed, s.urgencyBudget) {
		verdict, err := s.enricher.CheckUrgency(ctx, item.Title, item.Body)
		if err != nil {
			s.recordFailure(now, "urgency", item.ID, err)
			degraded = true
		} else {
			s.recordSuccess()
			urgent = verdict
		}
	}
	result.Urgent = urgent

	fresh := true
	if s.takeBudget(&s.freshnessUsed, s.freshnessBudget) {
		verdict, err := s.enricher.CheckFreshness(ctx, item.Title, item.Body, s.maxAge)
		if err != nil {
			s.recordFailure(now, "freshness", item.ID, err)
			degraded = true
		} else {
			s.recordSuccess()
			fresh = verdict
		}
	}
	result.Fresh = fresh

	result.Tier = deriveTier(urgent, item.SourcePriority, signals.Tier)

	summary, err := s.enricher.Summarize(ctx, item.Title, item.Body, result.Tier.SummaryBudget())
	if err != nil {
		s.recordFailure(now, "summary", item.ID, err)
		degraded = true
		summary = normalize.TruncateSentences(item.Body, result.Tier.SummaryBudget())
	} else {
		s.recordSuccess()
	}
	result.Summary = summary

	result.Degraded = degraded
	if !degraded {
		s.cache.Put(ctx, key, result)
	}

	return result
}

func (s *Scorer) heuristicResult(item domain.Item, signals Signals, now time.Time) domain.ScoreResult {
	return domain.ScoreResult{
		ItemID:   item.ID,
		Tier:     deriveTier(signals.Urgent, item.SourcePriority, signals.Tier),
		Urgent:   signals.Urgent,
		Fresh:    true,
		Summary:  normalize.TruncateSentences(item.Body, signals.Tier.SummaryBudget()),
		Degraded: true,
		ScoredAt: now,
	}
}

func (s *Scorer) takeBudget(used *int, budget int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if *used >= budget {
		return false
	}
	*used++
	return true
}

func (s *Scorer) coolingDown(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Before(s.cooldownUntil)
}

func (s *Scorer) recordFailure(now time.Time, call, itemID string, err error) {
	s.mu.Lock()
	s.failures++
	cooldown := failureCooldownMax
	if s.failures <= 6 {
		cooldown = failureCooldownBase << (s.failures - 1)
	}
	if cooldown > failureCooldownMax {
		cooldown = failureCooldownMax
	}
	s.cooldownUntil = now.Add(cooldown)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Warn("enrichment call failed",
			"call", call, "item", itemID, "cooldown", cooldown, "error", err)
	}
}

func (s *Scorer) recordSuccess() {
	s.mu.Lock()
	s.failures = 0
	s.cooldownUntil = time.Time{}
	s.mu.Unlock()
}
