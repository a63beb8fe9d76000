package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsflow/internal/config"
	"newsflow/internal/domain"
)

type stubScanner struct {
	name  string
	items map[string][]domain.Item
	err   error
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req Request) ([]domain.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[req.Site.Name], nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubScanner{name: "rss"})

	_, err := reg.Resolve("rss")
	require.NoError(t, err)

	_, err = reg.Resolve("html")
	require.Error(t, err)
}

func TestFetchAggregatesAndDedupesBatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubScanner{
		name: "rss",
		items: map[string][]domain.Item{
			"one": {{ID: "a1", Title: "first"}, {ID: "a2", Title: "second"}},
			"two": {{ID: "a2", Title: "second again"}, {ID: "b1", Title: "third"}},
		},
	})

	sites := []config.SourceConfig{
		{Name: "one", Tag: "#one", RSS: "https://example.org/one"},
		{Name: "two", Tag: "#two", RSS: "https://example.org/two"},
	}

	ms := NewMultiSource(reg, sites, nil)
	items, err := ms.Fetch(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestFetchContainsFailingFeed(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubScanner{
		name: "rss",
		items: map[string][]domain.Item{
			"good": {{ID: "a1", Title: "first", SourceTag: "#good"}},
		},
	})
	reg.Register(&stubScanner{name: "html", err: errors.New("selector broke")})

	sites := []config.SourceConfig{
		{Name: "bad", Scanner: "html", HTMLURL: "https://example.org/bad"},
		{Name: "good", RSS: "https://example.org/good"},
	}

	ms := NewMultiSource(reg, sites, nil)
	items, err := ms.Fetch(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "a1", items[0].ID)
}

func TestFetchDefaultsSourceTag(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(&stubScanner{
		name: "rss",
		items: map[string][]domain.Item{
			"plain": {{ID: "a1", Title: "first"}},
		},
	})

	ms := NewMultiSource(reg, []config.SourceConfig{{Name: "plain", RSS: "https://example.org"}}, nil)
	items, err := ms.Fetch(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, "plain", items[0].SourceTag)
}

func TestFetchUnknownScannerSkipsSite(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	ms := NewMultiSource(reg, []config.SourceConfig{{Name: "x", Scanner: "gopher"}}, nil)

	items, err := ms.Fetch(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, items)
}
