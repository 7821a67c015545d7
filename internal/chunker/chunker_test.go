package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmptyInput(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk(""))
}

func TestChunkShortInput(t *testing.T) {
	c := New()
	chunks := c.Chunk("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkWindowOffsets(t *testing.T) {
	// 1200 characters with S=500, O=50 must yield chunks starting at
	// offsets 0, 450, 900.
	text := strings.Repeat("a", 450) + strings.Repeat("b", 450) + strings.Repeat("c", 300)
	c := New(WithSize(500), WithOverlap(50))

	chunks := c.Chunk(text)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[0:500], chunks[0])
	assert.Equal(t, text[450:950], chunks[1])
	assert.Equal(t, text[900:1200], chunks[2])
}

func TestChunkSizeBound(t *testing.T) {
	texts := []string{
		strings.Repeat("x", 499),
		strings.Repeat("x", 500),
		strings.Repeat("x", 501),
		strings.Repeat("x", 5000),
	}
	c := New()
	for _, text := range texts {
		for _, chunk := range c.Chunk(text) {
			assert.LessOrEqual(t, len(chunk), DefaultChunkSize)
		}
	}
}

func TestChunkAdjacentOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 200) // 2000 chars
	c := New(WithSize(500), WithOverlap(50))

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-50:]
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d must start with the last 50 chars of chunk %d", i, i-1)
	}
}

func TestChunkOverlapClamped(t *testing.T) {
	// Overlap >= size would stall the window; it is clamped instead.
	c := New(WithSize(100), WithOverlap(100))
	chunks := c.Chunk(strings.Repeat("z", 300))
	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}

func TestSemanticChunkHeadingPrefix(t *testing.T) {
	blocks := []Block{
		{Kind: KindHeading, Level: 2, Text: "Security"},
		{Kind: KindParagraph, Text: "All traffic is encrypted in transit."},
		{Kind: KindParagraph, Text: "Keys rotate every ninety days."},
	}
	c := New()

	chunks := c.SemanticChunk(blocks, "Handbook")
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "## Security\n\n"))
	assert.Contains(t, chunks[0], "encrypted in transit")
	assert.Contains(t, chunks[0], "Keys rotate")
}

func TestSemanticChunkLongSectionSplit(t *testing.T) {
	long := strings.Repeat("the quick brown fox jumps over the lazy dog ", 40)
	blocks := []Block{
		{Kind: KindHeading, Level: 1, Text: "Security"},
		{Kind: KindParagraph, Text: long},
	}
	c := New(WithSize(500), WithOverlap(50))

	chunks := c.SemanticChunk(blocks, "")
	require.Greater(t, len(chunks), 1, "oversized section must be re-split")
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk, "## Security\n\n"),
			"every sub-chunk keeps the section prefix")
	}
}

func TestSemanticChunkMultipleSections(t *testing.T) {
	blocks := []Block{
		{Kind: KindHeading, Level: 2, Text: "Install"},
		{Kind: KindParagraph, Text: "Download the binary."},
		{Kind: KindHeading, Level: 2, Text: "Configure"},
		{Kind: KindParagraph, Text: "Edit the config file."},
	}
	c := New()

	chunks := c.SemanticChunk(blocks, "")
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "## Install\n\n"))
	assert.True(t, strings.HasPrefix(chunks[1], "## Configure\n\n"))
}

func TestSemanticChunkNoHeadingsFallbackTitle(t *testing.T) {
	blocks := []Block{
		{Kind: KindParagraph, Text: "Plain page body with no headings."},
	}
	c := New()

	chunks := c.SemanticChunk(blocks, "Landing Page")
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0], "## Landing Page\n\n"))
}

func TestSemanticChunkHeadingsOnly(t *testing.T) {
	blocks := []Block{
		{Kind: KindHeading, Level: 1, Text: "Intro"},
		{Kind: KindHeading, Level: 2, Text: "Details"},
	}
	c := New()
	assert.Empty(t, c.SemanticChunk(blocks, ""), "headings without body yield no chunks")
}

func TestSemanticChunkEmptyInput(t *testing.T) {
	c := New()
	assert.Empty(t, c.SemanticChunk(nil, "Title"))
}

func TestSemanticChunkTableRows(t *testing.T) {
	blocks := []Block{
		{Kind: KindHeading, Level: 2, Text: "Limits"},
		{Kind: KindTable, Rows: [][]string{
			{"Plan", "Requests"},
			{"Free", "100"},
			{"Pro", "10000"},
		}},
	}
	c := New()

	chunks := c.SemanticChunk(blocks, "")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Plan | Requests")
	assert.Contains(t, chunks[0], "Free | 100")
	assert.Contains(t, chunks[0], "Pro | 10000")
}

func TestSemanticChunkListAndCode(t *testing.T) {
	blocks := []Block{
		{Kind: KindHeading, Level: 2, Text: "Usage"},
		{Kind: KindList, Text: "- start the server\n- open the dashboard"},
		{Kind: KindCode, Text: "kbengine serve --verbose"},
	}
	c := New()

	chunks := c.SemanticChunk(blocks, "")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "start the server")
	assert.Contains(t, chunks[0], "kbengine serve --verbose")
}
