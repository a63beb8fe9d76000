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

const samplePage = `<!DOCTYPE html>
<html><body>
  <div class="story">
    <h2 class="headline">Ceasefire talks resume</h2>
    <a class="more" href="/news/ceasefire-talks">details</a>
    <p class="teaser">Negotiators returned to the table on Monday.</p>
  </div>
  <div class="story">
    <h2 class="headline">Markets close higher</h2>
    <a class="more" href="https://example.org/news/markets">details</a>
    <p class="teaser">Stocks rallied late in the session.</p>
  </div>
  <div class="story">
    <h2 class="headline"></h2>
    <a class="more" href="/news/broken">details</a>
  </div>
</body></html>`

func htmlSite(pageURL string) config.SourceConfig {
	return config.SourceConfig{
		Name:    "example",
		Tag:     "#example",
		HTMLURL: pageURL,
		Selector: config.SelectorConfig{
			Item:    "div.story",
			Title:   "h2.headline",
			Link:    "a.more::attr(href)",
			Summary: "p.teaser",
		},
		Priority: 2,
	}
}

func TestHTMLScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	scanner := NewHTMLScanner(server.Client())
	now := time.Now()

	items, err := scanner.Scan(context.Background(), source.Request{Site: htmlSite(server.URL), Now: now})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "Ceasefire talks resume", items[0].Title)
	// Relative links resolve against the page URL.
	require.Equal(t, server.URL+"/news/ceasefire-talks", items[0].Link)
	require.Equal(t, "Negotiators returned to the table on Monday.", items[0].Body)
	require.Equal(t, "#example", items[0].SourceTag)
	require.Equal(t, 2, items[0].SourcePriority)

	require.Equal(t, "https://example.org/news/markets", items[1].Link)
}

func TestHTMLScanPlainLinkSelector(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	site := htmlSite(server.URL)
	site.Selector.Link = "a.more"

	scanner := NewHTMLScanner(server.Client())
	items, err := scanner.Scan(context.Background(), source.Request{Site: site, Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, server.URL+"/news/ceasefire-talks", items[0].Link)
}

func TestHTMLScanIncompleteSelectors(t *testing.T) {
	t.Parallel()

	scanner := NewHTMLScanner(nil)
	_, err := scanner.Scan(context.Background(), source.Request{
		Site: config.SourceConfig{Name: "bad", HTMLURL: "https://example.org"},
		Now:  time.Now(),
	})
	require.Error(t, err)
}
