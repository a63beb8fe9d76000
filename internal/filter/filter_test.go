package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsflow/internal/config"
	"newsflow/internal/domain"
)

func TestKeepAgeWindow(t *testing.T) {
	t.Parallel()

	f := New(config.FiltersConfig{MaxAgeMinutes: 60})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	fresh := domain.Item{Title: "news", PublishedAt: now.Add(-30 * time.Minute)}
	stale := domain.Item{Title: "news", PublishedAt: now.Add(-2 * time.Hour)}
	undated := domain.Item{Title: "news"}

	require.True(t, f.Keep(fresh, now))
	require.False(t, f.Keep(stale, now))
	// No usable timestamp: assumed recent, freshness is checked later.
	require.True(t, f.Keep(undated, now))
}

func TestKeepExcludeWinsOverInclude(t *testing.T) {
	t.Parallel()

	f := New(config.FiltersConfig{
		IncludeKeywords: []string{"economy"},
		ExcludeKeywords: []string{"advertisement"},
		MaxAgeMinutes:   120,
	})
	now := time.Now()

	require.True(t, f.Keep(domain.Item{Title: "Economy update"}, now))
	require.False(t, f.Keep(domain.Item{Title: "Economy advertisement special"}, now))
	require.False(t, f.Keep(domain.Item{Title: "Sports roundup"}, now))
}

func TestKeepWithoutIncludeListKeepsEverything(t *testing.T) {
	t.Parallel()

	f := New(config.FiltersConfig{MaxAgeMinutes: 120})
	require.True(t, f.Keep(domain.Item{Title: "Anything at all"}, time.Now()))
}

func TestApplyPreservesOrder(t *testing.T) {
	t.Parallel()

	f := New(config.FiltersConfig{
		ExcludeKeywords: []string{"skip"},
		MaxAgeMinutes:   120,
	})
	now := time.Now()

	items := []domain.Item{
		{ID: "1", Title: "first"},
		{ID: "2", Title: "skip this"},
		{ID: "3", Title: "third"},
	}

	kept := f.Apply(items, now)
	require.Len(t, kept, 2)
	require.Equal(t, "1", kept[0].ID)
	require.Equal(t, "3", kept[1].ID)
}
