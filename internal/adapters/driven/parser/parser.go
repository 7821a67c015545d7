// Package parser extracts plain text from uploaded file payloads,
// dispatching on MIME type.
package parser

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

// Parser is a MIME-dispatched text extractor for plain text, markdown,
// HTML, CSV, and JSON payloads.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts text from raw bytes of the given MIME type. Unknown
// MIME types fail with a parse error.
func (p *Parser) Parse(_ context.Context, data []byte, mimeType string) (*driven.ParsedDocument, error) {
	content := string(data)
	if !strings.Contains(mimeType, "html") && !isMostlyText(content) {
		return nil, fmt.Errorf("%w: binary payload for %s", domain.ErrParseFailed, mimeType)
	}

	switch {
	case strings.Contains(mimeType, "markdown"):
		return parseMarkdown(content), nil
	case strings.Contains(mimeType, "html"):
		return parseHTML(content), nil
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json":
		return &driven.ParsedDocument{Text: strings.TrimSpace(content)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported MIME type %s", domain.ErrParseFailed, mimeType)
	}
}

var (
	mdCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode   = regexp.MustCompile("`[^`]+`")
	mdImages       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLinks        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeadings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	mdRule         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlines  = regexp.MustCompile(`\n{3,}`)
)

// parseMarkdown strips formatting markers, keeping the prose. The first
// H1 becomes the document title.
func parseMarkdown(content string) *driven.ParsedDocument {
	title := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			break
		}
	}

	text := mdCodeBlock.ReplaceAllString(content, "")
	text = mdInlineCode.ReplaceAllString(text, "")
	text = mdImages.ReplaceAllString(text, "")
	text = mdLinks.ReplaceAllString(text, "$1")
	text = mdHeadings.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = mdBlockquote.ReplaceAllString(text, "")
	text = mdRule.ReplaceAllString(text, "")
	text = mdListMarkers.ReplaceAllString(text, "")
	text = mdNumberedList.ReplaceAllString(text, "")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	return &driven.ParsedDocument{
		Title: title,
		Text:  strings.TrimSpace(text),
	}
}

var (
	htmlTitle     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	htmlScript    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlStyle     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlHead      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockEnds = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlTags      = regexp.MustCompile(`(?s)<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]{2,}`)
)

// parseHTML strips markup with the same regex pipeline the crawler
// avoids: uploads are one-shot payloads, so a lossy text extraction is
// acceptable here.
func parseHTML(content string) *driven.ParsedDocument {
	title := ""
	if m := htmlTitle.FindStringSubmatch(content); m != nil {
		title = strings.TrimSpace(html.UnescapeString(m[1]))
	}

	text := htmlComments.ReplaceAllString(content, "")
	text = htmlScript.ReplaceAllString(text, "")
	text = htmlStyle.ReplaceAllString(text, "")
	text = htmlHead.ReplaceAllString(text, "")
	text = htmlBlockEnds.ReplaceAllString(text, "\n")
	text = htmlTags.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	return &driven.ParsedDocument{
		Title: title,
		Text:  strings.Join(lines, "\n"),
	}
}

// isMostlyText rejects payloads that look binary: NUL bytes or a high
// share of non-printable characters.
func isMostlyText(content string) bool {
	if content == "" {
		return true
	}
	if strings.ContainsRune(content, 0) {
		return false
	}
	nonPrintable := 0
	for _, r := range content {
		if r == utf8Replacement {
			nonPrintable++
		}
	}
	return nonPrintable*10 < len(content)
}

const utf8Replacement = '�'
