// Package chunker splits extracted text into retrieval-sized pieces.
//
// Two policies are provided. The fixed-size policy slides a window over
// unstructured text with a small overlap so every boundary keeps context
// from its predecessor. The semantic policy walks structured content
// blocks in document order, grouping body text under its nearest heading
// and prefixing every produced chunk with that heading so retrieval keeps
// the section context even for small slices of a long section.
package chunker

import "strings"

// DefaultChunkSize is the default window size in characters.
const DefaultChunkSize = 500

// DefaultOverlap is the default number of overlapping characters between
// adjacent chunks.
const DefaultOverlap = 50

// BlockKind classifies a structured content block.
type BlockKind int

const (
	// KindHeading opens a new section; its text becomes the section label.
	KindHeading BlockKind = iota
	// KindParagraph is body prose.
	KindParagraph
	// KindList is a list serialized as one line per item.
	KindList
	// KindCode is preformatted text.
	KindCode
	// KindTable is tabular data carried in Rows.
	KindTable
)

// Block is one structured content unit, e.g. a parsed HTML element.
type Block struct {
	// Kind classifies the block.
	Kind BlockKind

	// Level is the heading level (1-6) for KindHeading blocks.
	Level int

	// Text is the block's text content. Unused for KindTable.
	Text string

	// Rows holds table cells for KindTable blocks.
	Rows [][]string
}

// Chunker splits text using a configured window size and overlap.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the window size in characters.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Overlap must leave room for the window to advance.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Size returns the configured window size.
func (c *Chunker) Size() int {
	return c.size
}

// Chunk splits text with the fixed-size policy: a window of Size
// characters advancing by (Size - Overlap) each step. Every chunk
// boundary retains Overlap characters of context from its predecessor.
// Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	step := c.size - c.overlap

	chunks := make([]string, 0, total/step+1)
	for start := 0; start < total; start += step {
		end := start + c.size
		if end > total {
			end = total
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == total {
			break
		}
	}
	return chunks
}

// SemanticChunk splits structured content block by block. Headings open a
// new section whose text labels every chunk flushed from it; paragraph,
// list, and code blocks accumulate into the current section; tables are
// serialized row by row. A section whose text exceeds the window size is
// re-split with the fixed-size policy before prefixing. Content before
// the first heading (or a document with no headings at all) is labelled
// with fallbackTitle. A heading with no body text yields no chunks.
func (c *Chunker) SemanticChunk(blocks []Block, fallbackTitle string) []string {
	var out []string
	section := ""
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			return
		}
		label := section
		if label == "" {
			label = strings.TrimSpace(fallbackTitle)
		}
		prefix := ""
		if label != "" {
			prefix = "## " + label + "\n\n"
		}
		if len([]rune(text)) <= c.size {
			out = append(out, prefix+text)
			return
		}
		for _, part := range c.Chunk(text) {
			out = append(out, prefix+part)
		}
	}

	for _, b := range blocks {
		switch b.Kind {
		case KindHeading:
			flush()
			section = strings.TrimSpace(b.Text)

		case KindTable:
			for _, row := range b.Rows {
				buf.WriteString(strings.Join(row, " | "))
				buf.WriteString("\n")
			}
			buf.WriteString("\n")

		default:
			if t := strings.TrimSpace(b.Text); t != "" {
				buf.WriteString(t)
				buf.WriteString("\n\n")
			}
		}
	}
	flush()

	return out
}
