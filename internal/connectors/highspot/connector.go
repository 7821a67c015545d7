// Package highspot ingests items from a Highspot spot via the REST API.
package highspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.highspot.com"

// MaxItemSize bounds fetched item content (5MB).
const MaxItemSize = 5 * 1024 * 1024

const listPageSize = 100

// apiRate bounds request throughput against the Highspot API, scoped
// per sync run.
var apiRate = rate.Every(200 * time.Millisecond)

// item is one entry in a spot's item collection.
type item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	WebURL      string `json:"web_url"`
}

type itemPage struct {
	Collection []item `json:"collection"`
	Total      int    `json:"total"`
}

// Connector syncs items from the spot in the source's SpotID config.
type Connector struct {
	ingestor *connectors.Ingestor
	creds    driven.CredentialStore
	timeout  time.Duration
}

// New creates a Highspot connector.
func New(ingestor *connectors.Ingestor, creds driven.CredentialStore) *Connector {
	return &Connector{
		ingestor: ingestor,
		creds:    creds,
		timeout:  30 * time.Second,
	}
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeHighspot
}

// Validate checks spot config and credential presence.
func (c *Connector) Validate(ctx context.Context, source domain.DataSource) error {
	if source.Config.SpotID == "" {
		return fmt.Errorf("%w: spot id is required", domain.ErrConnectorValidation)
	}
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}
	if creds.Expired() {
		return fmt.Errorf("%w: source %s", domain.ErrAuthExpired, source.ID)
	}
	return nil
}

// Sync lists the spot's items and ingests each text item's content.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource())
	client.Timeout = c.timeout

	baseURL := strings.TrimSuffix(source.Config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limiter := rate.NewLimiter(apiRate, 1)

	items, err := listItems(ctx, client, limiter, baseURL, source.Config.SpotID)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %v", domain.ErrFetchFailed, err)
	}

	var resources []connectors.Resource
	for _, it := range items {
		if !strings.HasPrefix(it.ContentType, "text/") {
			continue
		}
		resources = append(resources, connectors.Resource{
			Ref:   it.ID,
			Title: it.Title,
			URL:   it.WebURL,
		})
	}

	return c.ingestor.SyncResources(ctx, source, resources, func(ctx context.Context, res connectors.Resource) (*connectors.Content, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		text, err := fetchItemContent(ctx, client, baseURL, res.Ref)
		if err != nil {
			return nil, err
		}
		return &connectors.Content{
			Title: res.Title,
			URL:   res.URL,
			Text:  text,
		}, nil
	})
}

// listItems pages through the spot's item collection.
func listItems(ctx context.Context, client *http.Client, limiter *rate.Limiter, baseURL, spotID string) ([]item, error) {
	var all []item
	for start := 0; ; start += listPageSize {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		url := fmt.Sprintf("%s/v1.0/spots/%s/items?start=%d&limit=%d", baseURL, spotID, start, listPageSize)
		var page itemPage
		if err := getJSON(ctx, client, url, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Collection...)
		if len(all) >= page.Total || len(page.Collection) == 0 {
			return all, nil
		}
	}
}

func fetchItemContent(ctx context.Context, client *http.Client, baseURL, itemID string) (string, error) {
	url := fmt.Sprintf("%s/v1.0/items/%s/content", baseURL, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: item %s: status %d", domain.ErrFetchFailed, itemID, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxItemSize))
	if err != nil {
		return "", fmt.Errorf("%w: read item %s: %v", domain.ErrFetchFailed, itemID, err)
	}
	return string(data), nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
