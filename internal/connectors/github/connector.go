// Package github ingests text files from a GitHub repository.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// MaxBlobSize is the largest repository file fetched (1MB).
const MaxBlobSize = 1024 * 1024

// textExtensions are the file types worth ingesting from a repository.
var textExtensions = map[string]bool{
	".md": true, ".markdown": true, ".txt": true, ".rst": true,
	".adoc": true, ".org": true, ".mdx": true,
}

// Connector syncs documentation files from one repository, scoped by the
// source's Owner/Repo config.
type Connector struct {
	ingestor *connectors.Ingestor
	creds    driven.CredentialStore
	baseURL  string
	timeout  time.Duration
}

// Option configures a Connector.
type Option func(*Connector)

// WithBaseURL points the connector at a GitHub Enterprise or test endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Connector) {
		c.baseURL = baseURL
	}
}

// New creates a GitHub connector.
func New(ingestor *connectors.Ingestor, creds driven.CredentialStore, opts ...Option) *Connector {
	c := &Connector{
		ingestor: ingestor,
		creds:    creds,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeGitHub
}

// Validate checks repository config and credential presence.
func (c *Connector) Validate(ctx context.Context, source domain.DataSource) error {
	if source.Config.Owner == "" || source.Config.Repo == "" {
		return fmt.Errorf("%w: owner and repo are required", domain.ErrConnectorValidation)
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

// Sync lists the repository tree and ingests every text file.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	client, err := c.client(ctx, source)
	if err != nil {
		return nil, err
	}

	owner, repo := source.Config.Owner, source.Config.Repo

	repository, _, err := client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("%w: get repository: %v", domain.ErrFetchFailed, err)
	}
	branch := repository.GetDefaultBranch()

	tree, _, err := client.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, fmt.Errorf("%w: get tree: %v", domain.ErrFetchFailed, err)
	}

	scope := source.Config.ScopePath
	var resources []connectors.Resource
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if scope != "" && !strings.HasPrefix(path, scope) {
			continue
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		if entry.GetSize() > MaxBlobSize {
			continue
		}
		resources = append(resources, connectors.Resource{
			Ref:   entry.GetSHA(),
			Title: path,
			URL:   fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", owner, repo, branch, path),
		})
	}

	return c.ingestor.SyncResources(ctx, source, resources, func(ctx context.Context, res connectors.Resource) (*connectors.Content, error) {
		data, err := fetchBlob(ctx, client, owner, repo, res.Ref)
		if err != nil {
			return nil, err
		}
		return &connectors.Content{
			Title:   res.Title,
			URL:     res.URL,
			Section: filepath.Dir(res.Title),
			Text:    string(data),
		}, nil
	})
}

func (c *Connector) client(ctx context.Context, source domain.DataSource) (*gh.Client, error) {
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource())
	httpClient.Timeout = c.timeout
	client := gh.NewClient(httpClient)

	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = source.Config.BaseURL
	}
	if baseURL != "" {
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure base url: %w", err)
		}
	}
	return client, nil
}

func fetchBlob(ctx context.Context, client *gh.Client, owner, repo, sha string) ([]byte, error) {
	blob, resp, err := client.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: blob %s", domain.ErrFetchFailed, sha)
		}
		return nil, fmt.Errorf("%w: get blob: %v", domain.ErrFetchFailed, err)
	}
	if blob.GetEncoding() == "base64" {
		raw := strings.ReplaceAll(blob.GetContent(), "\n", "")
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decode blob: %v", domain.ErrParseFailed, err)
		}
		return data, nil
	}
	return []byte(blob.GetContent()), nil
}
