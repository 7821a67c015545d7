package driven

import "context"

// ParsedDocument is the output of text extraction.
type ParsedDocument struct {
	// Title is the extracted document title, when available.
	Title string

	// Text is the full extracted text.
	Text string
}

// DocumentParser extracts text from uploaded file payloads. It is an
// opaque extraction service: it either returns text or fails with a
// parse error.
type DocumentParser interface {
	// Parse extracts text from raw bytes of the given MIME type.
	Parse(ctx context.Context, data []byte, mimeType string) (*ParsedDocument, error)
}
