package website

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/custodia-labs/kb-engine/internal/chunker"
)

func parseTestPage(t *testing.T, rawURL, doc string) *page {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return parsePage(u, root)
}

func TestParsePageTitle(t *testing.T) {
	p := parseTestPage(t, "https://example.com/a",
		`<html><head><title>Real Title</title></head><body><main><p>Body text.</p></main></body></html>`)

	assert.Equal(t, "Real Title", p.title)
}

func TestParsePageTitleRequiresElement(t *testing.T) {
	// A text node whose content is exactly "title" is not the title
	// element.
	p := parseTestPage(t, "https://example.com/a",
		`<html><head></head><body><main><p>title</p></main></body></html>`)

	assert.Empty(t, p.title)
	require.Len(t, p.blocks, 1)
	assert.Equal(t, chunker.KindParagraph, p.blocks[0].Kind)
}
