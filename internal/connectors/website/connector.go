// Package website crawls a site breadth-first from a root URL and
// ingests each page's main content.
package website

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Crawl defaults. Config values of zero fall back to these.
const (
	DefaultMaxPages  = 100
	DefaultMaxDepth  = 3
	DefaultUserAgent = "kb-engine-crawler/1.0"

	// requestInterval is the politeness delay between fetches, scoped to
	// one sync run.
	requestInterval = time.Second
)

// Connector crawls a website source. The root URL is the source's Name.
type Connector struct {
	ingestor *connectors.Ingestor
	client   *http.Client
	agent    string
	interval time.Duration
}

// Option configures a Connector.
type Option func(*Connector)

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) {
		if client != nil {
			c.client = client
		}
	}
}

// WithUserAgent sets the crawler's User-Agent string.
func WithUserAgent(agent string) Option {
	return func(c *Connector) {
		if agent != "" {
			c.agent = agent
		}
	}
}

// WithRequestInterval sets the politeness delay between fetches.
func WithRequestInterval(interval time.Duration) Option {
	return func(c *Connector) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// New creates a website connector.
func New(ingestor *connectors.Ingestor, opts ...Option) *Connector {
	c := &Connector{
		ingestor: ingestor,
		client:   &http.Client{Timeout: 30 * time.Second},
		agent:    DefaultUserAgent,
		interval: requestInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeWebsite
}

// Validate checks that the source name is an absolute http(s) URL.
func (c *Connector) Validate(_ context.Context, source domain.DataSource) error {
	u, err := url.Parse(source.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectorValidation, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: root URL must be absolute http(s): %s", domain.ErrConnectorValidation, source.Name)
	}
	return nil
}

// Sync crawls the site and replaces the source's chunk set with the
// pages it accepts. The crawl is bounded by the maxPages and maxDepth
// budgets and respects robots.txt for the root origin.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	root, err := url.Parse(source.Name)
	if err != nil {
		return nil, fmt.Errorf("parse root url: %w", err)
	}

	if err := c.ingestor.Replace(ctx, source); err != nil {
		return nil, err
	}

	crawl := &crawl{
		connector: c,
		source:    source,
		root:      root,
		maxPages:  orDefault(source.Config.MaxPages, DefaultMaxPages),
		maxDepth:  orDefault(source.Config.MaxDepth, DefaultMaxDepth),
		limiter:   rate.NewLimiter(rate.Every(c.interval), 1),
		visited:   make(map[string]bool),
	}
	crawl.robots = c.fetchRobots(ctx, root)

	return crawl.run(ctx)
}

// fetchRobots retrieves robots.txt for the origin once per sync.
// A missing or unreachable robots.txt permits everything.
func (c *Connector) fetchRobots(ctx context.Context, root *url.URL) *robotstxt.Group {
	robotsURL := root.Scheme + "://" + root.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("robots.txt fetch failed for %s: %v", root.Host, err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		logger.Debug("robots.txt parse failed for %s: %v", root.Host, err)
		return nil
	}
	return data.FindGroup(c.agent)
}

type queueItem struct {
	url   string
	depth int
}

// crawl is the per-sync state: budgets, visited set, rate limiter, and
// the robots group for the root origin.
type crawl struct {
	connector *Connector
	source    domain.DataSource
	root      *url.URL
	maxPages  int
	maxDepth  int
	limiter   *rate.Limiter
	robots    *robotstxt.Group
	visited   map[string]bool
}

// run executes the breadth-first crawl loop. Termination is guaranteed:
// the visited set prevents requeue cycles and maxPages caps fetches.
func (cr *crawl) run(ctx context.Context) (*domain.SyncResult, error) {
	result := &domain.SyncResult{}
	queue := []queueItem{{url: normalizeURL(cr.root), depth: 0}}
	fetched := 0

	for len(queue) > 0 && fetched < cr.maxPages {
		item := queue[0]
		queue = queue[1:]

		if cr.visited[item.url] {
			continue
		}
		cr.visited[item.url] = true

		if !cr.inScope(item.url) || !cr.allowed(item.url) {
			continue
		}

		if err := cr.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		fetched++

		p, err := cr.fetch(ctx, item.url)
		if err != nil {
			logger.Warn("skipping page %s: %v", item.url, err)
			result.Skipped++
			continue
		}
		if p == nil { // not HTML
			result.Skipped++
			continue
		}

		// A page matching no filter keyword is pruned together with its
		// outbound links, cutting the whole subtree early.
		if !cr.matchesKeywords(item.url, p) {
			logger.Debug("pruning page %s: no keyword match", item.url)
			result.Skipped++
			continue
		}

		if _, err := cr.connector.ingestor.Ingest(ctx, cr.source, &connectors.Content{
			Title:   p.title,
			URL:     item.url,
			Section: p.section,
			Blocks:  p.blocks,
		}); err != nil {
			return nil, fmt.Errorf("ingest %s: %w", item.url, err)
		}
		result.ItemsProcessed++

		if item.depth < cr.maxDepth {
			for _, link := range p.links {
				if !cr.visited[link] {
					queue = append(queue, queueItem{url: link, depth: item.depth + 1})
				}
			}
		}
	}
	return result, nil
}

// fetch retrieves and parses one page. Returns (nil, nil) for non-HTML
// responses.
func (cr *crawl) fetch(ctx context.Context, pageURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", cr.connector.agent)

	resp, err := cr.connector.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return nil, nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}
	return parsePage(u, doc), nil
}

// inScope applies the scopePath and excludePaths config to a normalized
// URL.
func (cr *crawl) inScope(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	if scope := cr.source.Config.ScopePath; scope != "" && !strings.HasPrefix(u.Path, scope) {
		return false
	}
	for _, excluded := range cr.source.Config.ExcludePaths {
		if excluded != "" && strings.HasPrefix(u.Path, excluded) {
			return false
		}
	}
	return true
}

// allowed checks robots.txt for the URL's path.
func (cr *crawl) allowed(pageURL string) bool {
	if cr.robots == nil {
		return true
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return cr.robots.Test(u.Path)
}

// matchesKeywords reports whether the page passes the filterKeywords
// config. With no keywords configured, every page passes. The match is
// a case-insensitive substring test against URL, title, and section.
func (cr *crawl) matchesKeywords(pageURL string, p *page) bool {
	keywords := cr.source.Config.FilterKeywords
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(pageURL + " " + p.title + " " + p.section)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
