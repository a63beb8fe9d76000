package domain

import "time"

// Item is a normalized story produced by a source scanner. It is read-only
// once created; the id is deterministic from (SourceTag, Link).
type Item struct {
	ID             string
	Title          string
	Body           string
	Link           string
	SourceTag      string
	SourcePriority int
	PublishedAt    time.Time
	FetchedAt      time.Time
}

// Tier classifies how much attention an item deserves downstream.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Rank orders tiers for queue priority; higher is more important.
func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 3
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}

// SummaryBudget returns the maximum summary length in characters for the
// tier. The budget is passed to the enrichment call up front.
func (t Tier) SummaryBudget() int {
	switch t {
	case TierCritical:
		return 1200
	case TierHigh:
		return 900
	case TierMedium:
		return 500
	default:
		return 400
	}
}

// ScoreResult is the scorer verdict for one item.
type ScoreResult struct {
	ItemID   string
	Tier     Tier
	Urgent   bool
	Fresh    bool
	Summary  string
	Degraded bool
	ScoredAt time.Time
}

// CacheEntry is a persisted enrichment result keyed by content fingerprint.
// Entries are immutable once written and expire by TTL.
type CacheEntry struct {
	Key       string
	Tier      Tier
	Urgent    bool
	Fresh     bool
	Summary   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
