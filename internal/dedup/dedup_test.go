package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsflow/internal/config"
	"newsflow/internal/domain"
)

func testConfig() config.DedupConfig {
	return config.DedupConfig{
		SimilarityThreshold: 0.7,
		TitleWeight:         0.6,
		ContentWeight:       0.4,
		HorizonHours:        48,
		MaxWindow:           64,
	}
}

func TestCheckExactIDIsDuplicate(t *testing.T) {
	t.Parallel()

	d, err := New(testConfig())
	require.NoError(t, err)

	now := time.Now()
	item := domain.Item{ID: "a1", Title: "Parliament approves the budget", Body: "Details inside"}

	require.False(t, d.Check(item, now).Duplicate)

	verdict := d.Check(item, now)
	require.True(t, verdict.Duplicate)
	require.Equal(t, "a1", verdict.MatchedID)
	require.Equal(t, 1.0, verdict.Score)
}

func TestCheckRewordedStoryIsDuplicate(t *testing.T) {
	t.Parallel()

	d, err := New(testConfig())
	require.NoError(t, err)

	now := time.Now()
	original := domain.Item{
		ID:    "a1",
		Title: "Prime Minister resigns amid corruption scandal investigation",
		Body:  "The prime minister announced resignation after corruption scandal investigation pressure mounted",
	}
	reworded := domain.Item{
		ID:    "b2",
		Title: "Prime Minister resigns amid corruption scandal",
		Body:  "The prime minister announced resignation after corruption scandal pressure mounted",
	}

	require.False(t, d.Check(original, now).Duplicate)

	verdict := d.Check(reworded, now)
	require.True(t, verdict.Duplicate)
	require.Equal(t, "a1", verdict.MatchedID)
	require.GreaterOrEqual(t, verdict.Score, 0.7)
}

func TestCheckDistinctStoriesPass(t *testing.T) {
	t.Parallel()

	d, err := New(testConfig())
	require.NoError(t, err)

	now := time.Now()
	first := domain.Item{ID: "a1", Title: "Earthquake strikes coastal region", Body: "Magnitude seven earthquake coastal region evacuation"}
	second := domain.Item{ID: "b2", Title: "Central bank raises interest rates", Body: "Monetary policy committee raised rates amid inflation"}

	require.False(t, d.Check(first, now).Duplicate)
	require.False(t, d.Check(second, now).Duplicate)
	require.Equal(t, 2, d.Len())
}

func TestCheckScoreAtThresholdIsDuplicate(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SimilarityThreshold = 0.5
	cfg.TitleWeight = 1.0
	cfg.ContentWeight = 0.0

	d, err := New(cfg)
	require.NoError(t, err)

	now := time.Now()
	// Token sets {alpha beta gamma} vs {alpha beta delta}: Jaccard 2/4 = 0.5.
	first := domain.Item{ID: "a1", Title: "alpha beta gamma"}
	second := domain.Item{ID: "b2", Title: "alpha beta delta"}

	require.False(t, d.Check(first, now).Duplicate)

	verdict := d.Check(second, now)
	require.True(t, verdict.Duplicate)
	require.Equal(t, 0.5, verdict.Score)
}

func TestCheckEmptyContentDedupsByIDOnly(t *testing.T) {
	t.Parallel()

	d, err := New(testConfig())
	require.NoError(t, err)

	now := time.Now()

	require.False(t, d.Check(domain.Item{ID: "a1"}, now).Duplicate)
	require.False(t, d.Check(domain.Item{ID: "b2"}, now).Duplicate)
	require.True(t, d.Check(domain.Item{ID: "a1"}, now).Duplicate)
}

func TestCheckHorizonEviction(t *testing.T) {
	t.Parallel()

	d, err := New(testConfig())
	require.NoError(t, err)

	start := time.Now()
	item := domain.Item{ID: "a1", Title: "Parliament approves the budget", Body: "Session details"}

	require.False(t, d.Check(item, start).Duplicate)

	later := start.Add(49 * time.Hour)
	require.False(t, d.Check(item, later).Duplicate)
}

func TestWindowBoundEvictsOldest(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxWindow = 4

	d, err := New(cfg)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 6; i++ {
		item := domain.Item{ID: fmt.Sprintf("id-%d", i)}
		require.False(t, d.Check(item, now).Duplicate)
	}

	require.Equal(t, 4, d.Len())
	// The oldest fingerprint fell out of the window, so it reads as new.
	require.False(t, d.Check(domain.Item{ID: "id-0"}, now).Duplicate)
}
