package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsflow/internal/config"
	"newsflow/internal/source"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>World News</title>
    <item>
      <title>Parliament approves &amp;nbsp; budget</title>
      <link>https://example.org/budget?utm_source=rss</link>
      <description><![CDATA[<p>The annual budget passed its final reading.</p>]]></description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.org/untitled</link>
    </item>
  </channel>
</rss>`

func TestRSSScan(t *testing.T) {
	t.Parallel()

	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	scanner := NewRSSScanner(server.Client())
	now := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	items, err := scanner.Scan(context.Background(), source.Request{
		Site: config.SourceConfig{Name: "world", Tag: "#world", RSS: server.URL, Priority: 1},
		Now:  now,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	require.Equal(t, "#world", item.SourceTag)
	require.Equal(t, 1, item.SourcePriority)
	require.Contains(t, item.Title, "Parliament approves")
	require.Contains(t, item.Body, "annual budget")
	require.NotContains(t, item.Body, "<p>")
	require.Equal(t, now, item.FetchedAt)
	require.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), item.PublishedAt)
	require.Len(t, item.ID, 32)
	require.Equal(t, userAgent, gotUserAgent)
}

func TestRSSScanSameLinkSameID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	scanner := NewRSSScanner(server.Client())
	site := config.SourceConfig{Name: "world", Tag: "#world", RSS: server.URL}

	first, err := scanner.Scan(context.Background(), source.Request{Site: site, Now: time.Now()})
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background(), source.Request{Site: site, Now: time.Now()})
	require.NoError(t, err)

	require.Equal(t, first[0].ID, second[0].ID)
}

func TestRSSScanNon200(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scanner := NewRSSScanner(server.Client())
	_, err := scanner.Scan(context.Background(), source.Request{
		Site: config.SourceConfig{Name: "world", RSS: server.URL},
		Now:  time.Now(),
	})
	require.Error(t, err)
}

func TestRSSScanMissingURL(t *testing.T) {
	t.Parallel()

	scanner := NewRSSScanner(nil)
	_, err := scanner.Scan(context.Background(), source.Request{
		Site: config.SourceConfig{Name: "world"},
		Now:  time.Now(),
	})
	require.Error(t, err)
}
