// Package dedup rejects items that are semantically near-identical to
// something accepted within the retention window.
package dedup

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"newsflow/internal/config"
	"newsflow/internal/domain"
	"newsflow/internal/normalize"
)

// Verdict is the outcome of checking one item against the window.
type Verdict struct {
	Duplicate bool
	MatchedID string
	Score     float64
}

type record struct {
	itemID        string
	titleTokens   map[string]struct{}
	contentTokens map[string]struct{}
	insertedAt    time.Time
}

// Deduplicator keeps a rolling fingerprint window bounded by both age and
// count. It performs no I/O; Check is a pure function over the window plus
// the input item.
type Deduplicator struct {
	mu            sync.Mutex
	window        *lru.Cache[string, *record]
	threshold     float64
	titleWeight   float64
	contentWeight float64
	horizon       time.Duration
}

// New builds a window from validated config.
func New(cfg config.DedupConfig) (*Deduplicator, error) {
	window, err := lru.New[string, *record](cfg.MaxWindow)
	if err != nil {
		return nil, err
	}

	return &Deduplicator{
		window:        window,
		threshold:     cfg.SimilarityThreshold,
		titleWeight:   cfg.TitleWeight,
		contentWeight: cfg.ContentWeight,
		horizon:       cfg.Horizon(),
	}, nil
}

// Check classifies the item as unique or a duplicate of a retained item.
// Unique items are inserted into the window. A score exactly at the
// threshold counts as duplicate: the aggregator favors precision over the
// reader's tolerance for repeats. Items whose title and body normalize to
// empty token sets are deduplicated by exact id only.
func (d *Deduplicator) Check(item domain.Item, now time.Time) Verdict {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictAged(now)

	if _, seen := d.window.Get(item.ID); seen {
		return Verdict{Duplicate: true, MatchedID: item.ID, Score: 1}
	}

	titleTokens := normalize.Tokens(item.Title)
	contentTokens := normalize.Tokens(item.Body)

	if len(titleTokens) == 0 && len(contentTokens) == 0 {
		d.insert(item.ID, titleTokens, contentTokens, now)
		return Verdict{}
	}

	best := Verdict{}
	for _, key := range d.window.Keys() {
		rec, ok := d.window.Peek(key)
		if !ok {
			continue
		}

		score := d.titleWeight*normalize.Jaccard(titleTokens, rec.titleTokens) +
			d.contentWeight*normalize.Jaccard(contentTokens, rec.contentTokens)

		if score >= d.threshold && score > best.Score {
			best = Verdict{Duplicate: true, MatchedID: rec.itemID, Score: score}
		}
	}

	if best.Duplicate {
		return best
	}

	d.insert(item.ID, titleTokens, contentTokens, now)
	return Verdict{}
}

// Len reports the current window size.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window.Len()
}

func (d *Deduplicator) insert(id string, title, content map[string]struct{}, now time.Time) {
	d.window.Add(id, &record{
		itemID:        id,
		titleTokens:   title,
		contentTokens: content,
		insertedAt:    now,
	})
}

func (d *Deduplicator) evictAged(now time.Time) {
	cutoff := now.Add(-d.horizon)
	for _, key := range d.window.Keys() {
		rec, ok := d.window.Peek(key)
		if !ok {
			continue
		}
		if rec.insertedAt.Before(cutoff) {
			d.window.Remove(key)
		}
	}
}
