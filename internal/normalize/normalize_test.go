package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanTextStripsMarkupAndArtifacts(t *testing.T) {
	t.Parallel()

	in := `<p>Oil prices &amp; markets   surge</p> <a href="x">Read more</a>`
	require.Equal(t, "Oil prices & markets surge", CleanText(in))
}

func TestCleanTextDropsTrackingParams(t *testing.T) {
	t.Parallel()

	in := "https://example.org/story?utm_source=rss&utm_medium=feed"
	out := CleanText(in)
	require.NotContains(t, out, "utm_")
}

func TestTokensDropsStopWordsAndShortWords(t *testing.T) {
	t.Parallel()

	tokens := Tokens("The war in the region is escalating")

	require.Contains(t, tokens, "war")
	require.Contains(t, tokens, "region")
	require.Contains(t, tokens, "escalating")
	require.NotContains(t, tokens, "the")
	require.NotContains(t, tokens, "is")
	require.NotContains(t, tokens, "in")
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	a := Tokens("parliament approves budget")
	b := Tokens("parliament approves budget")
	c := Tokens("earthquake hits coastal city")

	require.Equal(t, 1.0, Jaccard(a, b))
	require.Equal(t, 0.0, Jaccard(a, c))
	require.Equal(t, 0.0, Jaccard(map[string]struct{}{}, map[string]struct{}{}))

	// Similarity is symmetric.
	d := Tokens("parliament approves new defense budget")
	require.Equal(t, Jaccard(a, d), Jaccard(d, a))
}

func TestItemIDStable(t *testing.T) {
	t.Parallel()

	first := ItemID("#bbc", "https://example.org/a")
	second := ItemID("#bbc", "https://example.org/a")
	other := ItemID("#cnn", "https://example.org/a")

	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
	require.Len(t, first, 32)
}

func TestFingerprintKeyIgnoresWordOrder(t *testing.T) {
	t.Parallel()

	a := FingerprintKey("Minister resigns after scandal", "")
	b := FingerprintKey("After scandal minister resigns", "")

	require.Equal(t, a, b)
	require.Len(t, a, 16)
}

func TestTruncateSentences(t *testing.T) {
	t.Parallel()

	text := "First sentence here. Second sentence follows. Third one is long."

	require.Equal(t, text, TruncateSentences(text, 200))

	out := TruncateSentences(text, 45)
	require.Equal(t, "First sentence here.", out)

	// No sentence boundary fits: fall back to a rune cut.
	out = TruncateSentences("word "+strings.Repeat("x", 100), 10)
	require.LessOrEqual(t, len(out), 10)
	require.NotEmpty(t, out)
}
