// Package storage persists published-item ids and enrichment cache entries
// in Postgres so both survive process restarts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"newsflow/internal/domain"
	"newsflow/internal/ports"
)

// Postgres implements ports.PublishedStore and ports.CacheStore over one
// database handle.
type Postgres struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.PublishedStore = (*Postgres)(nil)
	_ ports.CacheStore     = (*Postgres)(nil)
)

// Open connects to Postgres and prepares the statement builder.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Postgres {
	return &Postgres{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Migrate creates the tables if they do not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS published_items (
			item_id      TEXT PRIMARY KEY,
			link         TEXT NOT NULL,
			source_tag   TEXT NOT NULL,
			published_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment_cache (
			fingerprint TEXT PRIMARY KEY,
			tier        TEXT NOT NULL,
			urgent      BOOLEAN NOT NULL,
			fresh       BOOLEAN NOT NULL,
			summary     TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichment_cache_expires
			ON enrichment_cache (expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the underlying handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Published returns which of the given ids were already published.
func (p *Postgres) Published(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := p.builder.
		Select("item_id").
		From("published_items").
		Where(sq.Eq{"item_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build published query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query published: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan published id: %w", err)
		}
		result[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("published rows: %w", err)
	}

	return result, nil
}

// MarkPublished records the item id; repeats are ignored so retries stay
// idempotent.
func (p *Postgres) MarkPublished(ctx context.Context, item domain.Item) error {
	var publishedAt any
	if !item.PublishedAt.IsZero() {
		publishedAt = item.PublishedAt
	}

	query, args, err := p.builder.
		Insert("published_items").
		Columns("item_id", "link", "source_tag", "published_at").
		Values(item.ID, item.Link, item.SourceTag, publishedAt).
		Suffix("ON CONFLICT (item_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark query: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}

	return nil
}

// Get looks up one cache entry by fingerprint.
func (p *Postgres) Get(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	query, args, err := p.builder.
		Select("fingerprint", "tier", "urgent", "fresh", "summary", "created_at", "expires_at").
		From("enrichment_cache").
		Where(sq.Eq{"fingerprint": key}).
		ToSql()
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("build cache query: %w", err)
	}

	var entry domain.CacheEntry
	var tier string
	err = p.db.QueryRowContext(ctx, query, args...).Scan(
		&entry.Key, &tier, &entry.Urgent, &entry.Fresh,
		&entry.Summary, &entry.CreatedAt, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("query cache entry: %w", err)
	}

	entry.Tier = domain.Tier(tier)
	return entry, true, nil
}

// Put upserts the entry; last writer wins, which is acceptable because
// payloads for one fingerprint are computation-equivalent.
func (p *Postgres) Put(ctx context.Context, entry domain.CacheEntry) error {
	query, args, err := p.builder.
		Insert("enrichment_cache").
		Columns("fingerprint", "tier", "urgent", "fresh", "summary", "created_at", "expires_at").
		Values(entry.Key, string(entry.Tier), entry.Urgent, entry.Fresh,
			entry.Summary, entry.CreatedAt, entry.ExpiresAt).
		Suffix(`ON CONFLICT (fingerprint) DO UPDATE SET
			tier = EXCLUDED.tier,
			urgent = EXCLUDED.urgent,
			fresh = EXCLUDED.fresh,
			summary = EXCLUDED.summary,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cache upsert: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}

	return nil
}

// Purge removes expired cache entries and reports how many were dropped.
func (p *Postgres) Purge(ctx context.Context, now time.Time) (int, error) {
	query, args, err := p.builder.
		Delete("enrichment_cache").
		Where(sq.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cache purge: %w", err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(affected), nil
}
