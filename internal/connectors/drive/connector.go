// Package drive ingests files from a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Google Workspace MIME types that need export instead of download.
const (
	mimeGoogleDoc    = "application/vnd.google-apps.document"
	mimeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	mimeGoogleSlides = "application/vnd.google-apps.presentation"
	mimeFolder       = "application/vnd.google-apps.folder"

	exportMimeText = "text/plain"
	exportMimeCSV  = "text/csv"
)

// MaxFileSize bounds downloaded and exported content (5MB).
const MaxFileSize = 5 * 1024 * 1024

const listPageSize = 100

// Connector syncs files from Google Drive, optionally scoped to one
// folder via the FolderID config.
type Connector struct {
	ingestor *connectors.Ingestor
	creds    driven.CredentialStore
	baseURL  string
}

// Option configures a Connector.
type Option func(*Connector)

// WithBaseURL points the connector at a test endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Connector) {
		c.baseURL = baseURL
	}
}

// New creates a Drive connector.
func New(ingestor *connectors.Ingestor, creds driven.CredentialStore, opts ...Option) *Connector {
	c := &Connector{
		ingestor: ingestor,
		creds:    creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeDrive
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

// Sync lists the folder and ingests every readable file. Google
// Workspace documents are exported to text; regular files are
// downloaded when they carry a text MIME type.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	svc, err := c.service(ctx, source)
	if err != nil {
		return nil, err
	}

	files, err := c.listFiles(ctx, svc, source.Config.FolderID)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %v", domain.ErrFetchFailed, err)
	}

	byID := make(map[string]*drive.File, len(files))
	resources := make([]connectors.Resource, 0, len(files))
	for _, f := range files {
		if f.MimeType == mimeFolder {
			continue
		}
		byID[f.Id] = f
		resources = append(resources, connectors.Resource{
			Ref:      f.Id,
			Title:    f.Name,
			URL:      f.WebViewLink,
			MIMEType: f.MimeType,
		})
	}

	return c.ingestor.SyncResources(ctx, source, resources, func(ctx context.Context, res connectors.Resource) (*connectors.Content, error) {
		text, err := fetchContent(ctx, svc, byID[res.Ref])
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, nil // binary or oversized, skip
		}
		return &connectors.Content{
			Title: res.Title,
			URL:   res.URL,
			Text:  text,
		}, nil
	})
}

func (c *Connector) service(ctx context.Context, source domain.DataSource) (*drive.Service, error) {
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}

	opts := []option.ClientOption{option.WithTokenSource(creds.TokenSource())}
	if c.baseURL != "" {
		opts = append(opts, option.WithEndpoint(c.baseURL))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

func (c *Connector) listFiles(ctx context.Context, svc *drive.Service, folderID string) ([]*drive.File, error) {
	query := "trashed=false"
	if folderID != "" {
		query = fmt.Sprintf("'%s' in parents and trashed=false", folderID)
	}

	var files []*drive.File
	pageToken := ""
	for {
		call := svc.Files.List().
			Context(ctx).
			Q(query).
			PageSize(listPageSize).
			Fields("nextPageToken, files(id, name, mimeType, size, webViewLink)")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// fetchContent returns the text content of a Drive file, or "" for
// binary or oversized files.
func fetchContent(ctx context.Context, svc *drive.Service, file *drive.File) (string, error) {
	switch file.MimeType {
	case mimeGoogleDoc, mimeGoogleSlides:
		return export(ctx, svc, file.Id, exportMimeText)
	case mimeGoogleSheet:
		return export(ctx, svc, file.Id, exportMimeCSV)
	}

	if !isTextMIME(file.MimeType) || file.Size > MaxFileSize {
		return "", nil
	}

	resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("%w: download %s: %v", domain.ErrFetchFailed, file.Id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrFetchFailed, file.Id, err)
	}
	return string(data), nil
}

func export(ctx context.Context, svc *drive.Service, fileID, exportMime string) (string, error) {
	resp, err := svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("%w: export %s: %v", domain.ErrFetchFailed, fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize))
	if err != nil {
		return "", fmt.Errorf("%w: read export %s: %v", domain.ErrFetchFailed, fileID, err)
	}
	return string(data), nil
}

func isTextMIME(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-yaml", "application/javascript":
		return true
	}
	return false
}
