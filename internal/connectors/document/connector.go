// Package document ingests uploaded files from a tenant's drop directory.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// MaxFileSize is the largest file the connector will read (10MB).
const MaxFileSize = 10 * 1024 * 1024

// mimeByExtension maps supported upload extensions to parser MIME types.
var mimeByExtension = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".csv":      "text/csv",
	".json":     "application/json",
}

// Connector syncs a data source from files dropped into an upload
// directory. Unsupported extensions and oversized files are skipped.
type Connector struct {
	ingestor *connectors.Ingestor
	parser   driven.DocumentParser
}

// New creates a document connector.
func New(ingestor *connectors.Ingestor, parser driven.DocumentParser) *Connector {
	return &Connector{
		ingestor: ingestor,
		parser:   parser,
	}
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeDocument
}

// Validate checks that the upload directory is configured and readable.
func (c *Connector) Validate(_ context.Context, source domain.DataSource) error {
	dir := source.Config.UploadDir
	if dir == "" {
		return fmt.Errorf("%w: upload directory not configured", domain.ErrConnectorValidation)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectorValidation, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrConnectorValidation, dir)
	}
	return nil
}

// Sync re-ingests every supported file in the upload directory.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	resources, err := c.listFiles(source.Config.UploadDir)
	if err != nil {
		return nil, err
	}
	return c.ingestor.SyncResources(ctx, source, resources, c.load)
}

func (c *Connector) listFiles(dir string) ([]connectors.Resource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	var resources []connectors.Resource
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		mime, ok := mimeByExtension[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		resources = append(resources, connectors.Resource{
			Ref:      filepath.Join(dir, entry.Name()),
			Title:    entry.Name(),
			URL:      "file://" + filepath.Join(dir, entry.Name()),
			MIMEType: mime,
		})
	}
	return resources, nil
}

func (c *Connector) load(ctx context.Context, res connectors.Resource) (*connectors.Content, error) {
	info, err := os.Stat(res.Ref)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(res.Ref)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	parsed, err := c.parser.Parse(ctx, data, res.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParseFailed, err)
	}

	title := parsed.Title
	if title == "" {
		title = res.Title
	}
	return &connectors.Content{
		Title: title,
		URL:   res.URL,
		Text:  parsed.Text,
	}, nil
}
