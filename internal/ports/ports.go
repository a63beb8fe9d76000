package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsflow/internal/domain"
)

// Source pulls normalized items from upstream feeds.
type Source interface {
	Fetch(ctx context.Context, now time.Time) ([]domain.Item, error)
}

// PublishedStore tracks published item ids across restarts.
type PublishedStore interface {
	Published(ctx context.Context, ids []string) (map[string]bool, error)
	MarkPublished(ctx context.Context, item domain.Item) error
}

// Enricher is the external inference capability: condensed summaries plus
// urgency and freshness verdicts. Implementations may fail or rate-limit;
// callers own budgets and fallbacks.
type Enricher interface {
	Summarize(ctx context.Context, title, body string, maxChars int) (string, error)
	CheckUrgency(ctx context.Context, title, body string) (bool, error)
	CheckFreshness(ctx context.Context, title, body string, maxAge time.Duration) (bool, error)
}

// CacheStore persists enrichment results keyed by content fingerprint.
type CacheStore interface {
	Get(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Put(ctx context.Context, entry domain.CacheEntry) error
	Purge(ctx context.Context, now time.Time) (int, error)
}

// Publisher delivers one formatted item to the output channel.
type Publisher interface {
	Publish(ctx context.Context, item domain.Item, result domain.ScoreResult) error
}

// Scheduler controls when collection cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Clock abstracts time for deterministic scheduler tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// ErrEnrichmentUnavailable signals that the enrichment service could not be
// reached; the scorer degrades to its local heuristic on this error.
var ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

// RateLimitedError reports a downstream rate limit with the wait the channel
// asked for.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
