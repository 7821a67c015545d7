package website

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kb-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kb-engine/internal/chunker"
	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/pipeline"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

func (stubEmbedder) Dimensions() int { return 1 }

// testSite serves canned HTML pages and records every request path.
type testSite struct {
	mu       sync.Mutex
	pages    map[string]string
	robots   string
	requests []string
	server   *httptest.Server
}

func newTestSite(pages map[string]string) *testSite {
	site := &testSite{pages: pages}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.requests = append(site.requests, r.URL.Path)
		site.mu.Unlock()

		if r.URL.Path == "/robots.txt" {
			if site.robots == "" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, site.robots)
			return
		}

		body, ok := site.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	return site
}

func (s *testSite) pageRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for _, p := range s.requests {
		if p != "/robots.txt" {
			paths = append(paths, p)
		}
	}
	return paths
}

func htmlPage(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body><main>%s</main></body></html>", title, body)
}

func newCrawler(t *testing.T) (*Connector, *memory.ChunkStore) {
	t.Helper()
	chunks := memory.NewChunkStore()
	ing := connectors.NewIngestor(chunks, chunker.New(), pipeline.New(stubEmbedder{}, nil))
	return New(ing, WithRequestInterval(time.Microsecond)), chunks
}

func webSource(rootURL string, config domain.ConnectorConfig) domain.DataSource {
	return domain.DataSource{
		ID:       "src-1",
		TenantID: "tenant-1",
		Type:     domain.SourceTypeWebsite,
		Name:     rootURL,
		Config:   config,
	}
}

func TestValidateRootURL(t *testing.T) {
	conn, _ := newCrawler(t)
	ctx := context.Background()

	assert.ErrorIs(t, conn.Validate(ctx, webSource("not a url", domain.ConnectorConfig{})), domain.ErrConnectorValidation)
	assert.ErrorIs(t, conn.Validate(ctx, webSource("ftp://example.com", domain.ConnectorConfig{})), domain.ErrConnectorValidation)
	assert.NoError(t, conn.Validate(ctx, webSource("https://example.com", domain.ConnectorConfig{})))
}

func TestCrawlFollowsLinksAndIngests(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":      htmlPage("Home", `<h2>Welcome</h2><p>Home body.</p><a href="/docs">Docs</a>`),
		"/docs":  htmlPage("Docs", `<h2>Guide</h2><p>Docs body.</p><a href="/docs/a">A</a>`),
		"/docs/a": htmlPage("Page A", `<p>A body.</p>`),
	})
	defer site.server.Close()

	conn, chunks := newCrawler(t)
	result, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{}))
	require.NoError(t, err)
	assert.Equal(t, 3, result.ItemsProcessed)

	stored, err := chunks.ListBySource(context.Background(), "tenant-1", "src-1")
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	var sawHeading bool
	for _, c := range stored {
		if strings.HasPrefix(c.Content, "## Guide") {
			sawHeading = true
		}
	}
	assert.True(t, sawHeading, "semantic chunks should carry their section heading")
}

func TestCrawlUsesTitleAsFallbackHeading(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": htmlPage("Landing Page", `<p>No headings here.</p>`),
	})
	defer site.server.Close()

	conn, chunks := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{}))
	require.NoError(t, err)

	stored, err := chunks.ListBySource(context.Background(), "tenant-1", "src-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, strings.HasPrefix(stored[0].Content, "## Landing Page"))
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	pages := make(map[string]string)
	for i := 0; i < 100; i++ {
		var links strings.Builder
		for j := 0; j < 100; j++ {
			fmt.Fprintf(&links, `<a href="/p%d">p%d</a>`, j, j)
		}
		pages[fmt.Sprintf("/p%d", i)] = htmlPage(fmt.Sprintf("P%d", i), "<p>body</p>"+links.String())
	}
	pages["/"] = pages["/p0"]

	site := newTestSite(pages)
	defer site.server.Close()

	conn, _ := newCrawler(t)
	result, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{MaxPages: 10}))
	require.NoError(t, err)
	assert.LessOrEqual(t, result.ItemsProcessed, 10)
	assert.LessOrEqual(t, len(site.pageRequests()), 10)
}

func TestCrawlNeverRevisits(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":  htmlPage("Home", `<a href="/a">a</a><a href="/a?x=1">a again</a><a href="/a#frag">a frag</a><p>body</p>`),
		"/a": htmlPage("A", `<a href="/">home</a><p>body</p>`),
	})
	defer site.server.Close()

	conn, _ := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{}))
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, p := range site.pageRequests() {
		seen[p]++
	}
	for path, count := range seen {
		assert.Equal(t, 1, count, "path %s fetched more than once", path)
	}
}

func TestCrawlRespectsMaxDepth(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":   htmlPage("Root", `<a href="/d1">d1</a><p>body</p>`),
		"/d1": htmlPage("D1", `<a href="/d2">d2</a><p>body</p>`),
		"/d2": htmlPage("D2", `<a href="/d3">d3</a><p>body</p>`),
		"/d3": htmlPage("D3", `<p>body</p>`),
	})
	defer site.server.Close()

	conn, _ := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{MaxDepth: 1}))
	require.NoError(t, err)

	assert.NotContains(t, site.pageRequests(), "/d2")
	assert.NotContains(t, site.pageRequests(), "/d3")
}

func TestCrawlHonorsRobots(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":        htmlPage("Home", `<a href="/private/x">x</a><p>body</p>`),
		"/private/x": htmlPage("Secret", `<p>secret body</p>`),
	})
	site.robots = "User-agent: *\nDisallow: /private/\n"
	defer site.server.Close()

	conn, chunks := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{}))
	require.NoError(t, err)

	assert.NotContains(t, site.pageRequests(), "/private/x")

	stored, err := chunks.ListBySource(context.Background(), "tenant-1", "src-1")
	require.NoError(t, err)
	for _, c := range stored {
		assert.NotContains(t, c.Content, "secret body")
	}
}

func TestCrawlKeywordPruning(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":             htmlPage("Security Home", `<a href="/other">other</a><p>root body</p>`),
		"/other":        htmlPage("Unrelated", `<a href="/other/child">child</a><p>other body</p>`),
		"/other/child":  htmlPage("Security Child", `<p>child body</p>`),
	})
	defer site.server.Close()

	conn, chunks := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{
		FilterKeywords: []string{"security"},
	}))
	require.NoError(t, err)

	// The non-matching page is fetched but pruned, and its subtree is
	// never reached even though a descendant would have matched.
	assert.NotContains(t, site.pageRequests(), "/other/child")

	stored, err := chunks.ListBySource(context.Background(), "tenant-1", "src-1")
	require.NoError(t, err)
	for _, c := range stored {
		assert.NotContains(t, c.Content, "other body")
	}
}

func TestCrawlScopeAndExcludePaths(t *testing.T) {
	site := newTestSite(map[string]string{
		"/docs/":         htmlPage("Docs", `<a href="/docs/a">a</a><a href="/blog/b">b</a><a href="/docs/internal/c">c</a><p>body</p>`),
		"/docs/a":        htmlPage("A", `<p>body</p>`),
		"/blog/b":        htmlPage("B", `<p>body</p>`),
		"/docs/internal/c": htmlPage("C", `<p>body</p>`),
	})
	defer site.server.Close()

	conn, _ := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL+"/docs/", domain.ConnectorConfig{
		ScopePath:    "/docs/",
		ExcludePaths: []string{"/docs/internal/"},
	}))
	require.NoError(t, err)

	requests := site.pageRequests()
	assert.Contains(t, requests, "/docs/a")
	assert.NotContains(t, requests, "/blog/b")
	assert.NotContains(t, requests, "/docs/internal/c")
}

func TestCrawlSkipsFailedPages(t *testing.T) {
	site := newTestSite(map[string]string{
		"/":  htmlPage("Home", `<a href="/missing">gone</a><a href="/a">a</a><p>body</p>`),
		"/a": htmlPage("A", `<p>a body</p>`),
	})
	defer site.server.Close()

	conn, _ := newCrawler(t)
	result, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{}))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsProcessed)
	assert.Equal(t, 1, result.Skipped)
}

func TestParsePageExtractsSectionFromBreadcrumb(t *testing.T) {
	site := newTestSite(map[string]string{
		"/": `<html><head><title>Deep Page</title></head><body>
			<nav class="breadcrumb"><a href="/">Home</a><a href="/guides">Guides</a></nav>
			<main><p>body text</p></main></body></html>`,
	})
	defer site.server.Close()

	conn, chunks := newCrawler(t)
	_, err := conn.Sync(context.Background(), webSource(site.server.URL, domain.ConnectorConfig{}))
	require.NoError(t, err)

	stored, err := chunks.ListBySource(context.Background(), "tenant-1", "src-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Home / Guides", stored[0].Metadata.Section)
}
