// Package dropbox ingests files from a Dropbox folder.
package dropbox

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// MaxFileSize bounds downloaded content (5MB).
const MaxFileSize = 5 * 1024 * 1024

// textExtensions are the file types worth downloading.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true,
	".json": true, ".html": true, ".htm": true,
}

// filesClient is the subset of the Dropbox files API the connector uses.
type filesClient interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
}

// clientFactory builds a files client for an access token. Overridable
// in tests.
type clientFactory func(token string) filesClient

func defaultClientFactory(token string) filesClient {
	return files.New(dropbox.Config{Token: token})
}

// Connector syncs files from Dropbox, scoped to the folder in the
// source's Path config ("" means the account root).
type Connector struct {
	ingestor  *connectors.Ingestor
	creds     driven.CredentialStore
	newClient clientFactory
}

// Option configures a Connector.
type Option func(*Connector)

// New creates a Dropbox connector.
func New(ingestor *connectors.Ingestor, creds driven.CredentialStore, opts ...Option) *Connector {
	c := &Connector{
		ingestor:  ingestor,
		creds:     creds,
		newClient: defaultClientFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeDropbox
}

// Validate checks credential presence and expiry.
func (c *Connector) Validate(ctx context.Context, source domain.DataSource) error {
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}
	if creds.Expired() {
		return fmt.Errorf("%w: source %s", domain.ErrAuthExpired, source.ID)
	}
	return nil
}

// Sync lists the folder recursively and ingests every text file.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}
	client := c.newClient(creds.AccessToken)

	entries, err := listAll(client, source.Config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: list folder: %v", domain.ErrFetchFailed, err)
	}

	var resources []connectors.Resource
	for _, entry := range entries {
		fm, ok := entry.(*files.FileMetadata)
		if !ok {
			continue // folders and deleted entries
		}
		if !textExtensions[strings.ToLower(path.Ext(fm.Name))] || fm.Size > MaxFileSize {
			continue
		}
		resources = append(resources, connectors.Resource{
			Ref:   fm.PathLower,
			Title: fm.Name,
			URL:   webURL(fm.PathDisplay),
		})
	}

	return c.ingestor.SyncResources(ctx, source, resources, func(_ context.Context, res connectors.Resource) (*connectors.Content, error) {
		_, body, err := client.Download(files.NewDownloadArg(res.Ref))
		if err != nil {
			return nil, fmt.Errorf("%w: download %s: %v", domain.ErrFetchFailed, res.Ref, err)
		}
		defer body.Close()

		data, err := io.ReadAll(io.LimitReader(body, MaxFileSize))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetchFailed, res.Ref, err)
		}
		return &connectors.Content{
			Title: res.Title,
			URL:   res.URL,
			Text:  string(data),
		}, nil
	})
}

// listAll pages through the folder listing until the cursor is drained.
func listAll(client filesClient, folder string) ([]files.IsMetadata, error) {
	arg := files.NewListFolderArg(folder)
	arg.Recursive = true

	result, err := client.ListFolder(arg)
	if err != nil {
		return nil, err
	}

	entries := result.Entries
	for result.HasMore {
		result, err = client.ListFolderContinue(files.NewListFolderContinueArg(result.Cursor))
		if err != nil {
			return nil, err
		}
		entries = append(entries, result.Entries...)
	}
	return entries, nil
}

// webURL builds the Dropbox web location for a display path.
func webURL(displayPath string) string {
	encoded := url.PathEscape(strings.TrimPrefix(displayPath, "/"))
	return "https://www.dropbox.com/home/" + encoded
}
