// Package notion ingests pages from a Notion workspace, walking the
// page tree under a configured root page.
package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/kb-engine/internal/chunker"
	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// MaxPages bounds the number of pages walked in one sync.
const MaxPages = 500

// apiClient is the subset of the Notion API the connector uses.
type apiClient interface {
	GetPage(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error)
	GetChildren(ctx context.Context, id notionapi.BlockID, cursor notionapi.Cursor) (*notionapi.GetChildrenResponse, error)
}

type realClient struct {
	client *notionapi.Client
}

func (r *realClient) GetPage(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error) {
	return r.client.Page.Get(ctx, id)
}

func (r *realClient) GetChildren(ctx context.Context, id notionapi.BlockID, cursor notionapi.Cursor) (*notionapi.GetChildrenResponse, error) {
	return r.client.Block.GetChildren(ctx, id, &notionapi.Pagination{StartCursor: cursor})
}

// clientFactory builds an API client for an access token. Overridable
// in tests.
type clientFactory func(token string) apiClient

func defaultClientFactory(token string) apiClient {
	return &realClient{client: notionapi.NewClient(notionapi.Token(token))}
}

// Connector syncs the page subtree rooted at the source's RootPageID.
type Connector struct {
	ingestor  *connectors.Ingestor
	creds     driven.CredentialStore
	newClient clientFactory
}

// New creates a Notion connector.
func New(ingestor *connectors.Ingestor, creds driven.CredentialStore) *Connector {
	return &Connector{
		ingestor:  ingestor,
		creds:     creds,
		newClient: defaultClientFactory,
	}
}

// Type returns the source type this connector serves.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeNotion
}

// Validate checks root page config and credential presence.
func (c *Connector) Validate(ctx context.Context, source domain.DataSource) error {
	if source.Config.RootPageID == "" {
		return fmt.Errorf("%w: root page id is required", domain.ErrConnectorValidation)
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

// Sync walks the page tree breadth-first from the root page. Child
// pages discovered in a page's block list are enqueued; a page that
// fails to fetch is skipped without aborting the sync.
func (c *Connector) Sync(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	creds, err := c.creds.Get(ctx, source.TenantID, source.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: no credentials for source %s", domain.ErrAuthRequired, source.ID)
	}
	client := c.newClient(creds.AccessToken)

	if err := c.ingestor.Replace(ctx, source); err != nil {
		return nil, err
	}

	result := &domain.SyncResult{}
	queue := []string{source.Config.RootPageID}
	visited := map[string]bool{}

	for len(queue) > 0 && len(visited) < MaxPages {
		pageID := queue[0]
		queue = queue[1:]
		if visited[pageID] {
			continue
		}
		visited[pageID] = true

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		title, blocks, children, err := c.readPage(ctx, client, pageID)
		if err != nil {
			// Root failure means the whole subtree is unreachable.
			if pageID == source.Config.RootPageID {
				return nil, fmt.Errorf("%w: page %s: %v", domain.ErrFetchFailed, pageID, err)
			}
			result.Skipped++
			continue
		}

		if _, err := c.ingestor.Ingest(ctx, source, &connectors.Content{
			Title:  title,
			URL:    "https://www.notion.so/" + pageID,
			Blocks: blocks,
		}); err != nil {
			return nil, fmt.Errorf("ingest page %s: %w", pageID, err)
		}
		result.ItemsProcessed++
		queue = append(queue, children...)
	}
	return result, nil
}

// readPage fetches a page's title and walks its block children,
// returning content blocks and discovered child page ids.
func (c *Connector) readPage(ctx context.Context, client apiClient, pageID string) (string, []chunker.Block, []string, error) {
	page, err := client.GetPage(ctx, notionapi.PageID(pageID))
	if err != nil {
		return "", nil, nil, err
	}

	var blocks []chunker.Block
	var children []string
	cursor := notionapi.Cursor("")
	for {
		resp, err := client.GetChildren(ctx, notionapi.BlockID(pageID), cursor)
		if err != nil {
			return "", nil, nil, err
		}
		for _, block := range resp.Results {
			blocks, children = appendBlock(blocks, children, block)
		}
		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
	return pageTitle(page), blocks, children, nil
}

// appendBlock converts one Notion block into chunker blocks, collecting
// child page ids along the way.
func appendBlock(blocks []chunker.Block, children []string, block notionapi.Block) ([]chunker.Block, []string) {
	switch b := block.(type) {
	case *notionapi.Heading1Block:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindHeading, Level: 1, Text: plainText(b.Heading1.RichText)})
	case *notionapi.Heading2Block:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindHeading, Level: 2, Text: plainText(b.Heading2.RichText)})
	case *notionapi.Heading3Block:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindHeading, Level: 3, Text: plainText(b.Heading3.RichText)})
	case *notionapi.ParagraphBlock:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindParagraph, Text: plainText(b.Paragraph.RichText)})
	case *notionapi.QuoteBlock:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindParagraph, Text: plainText(b.Quote.RichText)})
	case *notionapi.BulletedListItemBlock:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindList, Text: "- " + plainText(b.BulletedListItem.RichText)})
	case *notionapi.NumberedListItemBlock:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindList, Text: "- " + plainText(b.NumberedListItem.RichText)})
	case *notionapi.CodeBlock:
		blocks = append(blocks, chunker.Block{Kind: chunker.KindCode, Text: plainText(b.Code.RichText)})
	case *notionapi.ChildPageBlock:
		children = append(children, string(block.GetID()))
	}
	return blocks, children
}

// pageTitle extracts the title property from a page.
func pageTitle(page *notionapi.Page) string {
	for _, prop := range page.Properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return plainText(title.Title)
		}
	}
	return ""
}

func plainText(richText []notionapi.RichText) string {
	text := ""
	for _, rt := range richText {
		text += rt.PlainText
	}
	return text
}
