package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kb-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kb-engine/internal/chunker"
	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/pipeline"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

func (stubEmbedder) Dimensions() int { return 1 }

type stubParser struct {
	failFor string
}

func (p *stubParser) Parse(_ context.Context, data []byte, _ string) (*driven.ParsedDocument, error) {
	text := string(data)
	if p.failFor != "" && strings.Contains(text, p.failFor) {
		return nil, assert.AnError
	}
	return &driven.ParsedDocument{Text: text}, nil
}

func newTestConnector(t *testing.T, parser driven.DocumentParser) (*Connector, *memory.ChunkStore) {
	t.Helper()
	chunks := memory.NewChunkStore()
	ing := connectors.NewIngestor(chunks, chunker.New(), pipeline.New(stubEmbedder{}, nil))
	return New(ing, parser), chunks
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func docSource(dir string) domain.DataSource {
	return domain.DataSource{
		ID:       "src-1",
		TenantID: "tenant-1",
		Type:     domain.SourceTypeDocument,
		Name:     "uploads",
		Config:   domain.ConnectorConfig{UploadDir: dir},
	}
}

func TestConnectorType(t *testing.T) {
	conn, _ := newTestConnector(t, &stubParser{})
	assert.Equal(t, domain.SourceTypeDocument, conn.Type())
}

func TestValidate(t *testing.T) {
	conn, _ := newTestConnector(t, &stubParser{})
	ctx := context.Background()

	err := conn.Validate(ctx, docSource(""))
	assert.ErrorIs(t, err, domain.ErrConnectorValidation)

	err = conn.Validate(ctx, docSource("/does/not/exist"))
	assert.ErrorIs(t, err, domain.ErrConnectorValidation)

	assert.NoError(t, conn.Validate(ctx, docSource(t.TempDir())))
}

func TestSyncIngestsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain notes")
	writeFile(t, dir, "guide.md", "markdown guide")
	writeFile(t, dir, "image.png", "binary")

	conn, chunks := newTestConnector(t, &stubParser{})
	result, err := conn.Sync(context.Background(), docSource(dir))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsProcessed)

	stored, err := chunks.ListBySource(context.Background(), "tenant-1", "src-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSyncSkipsUnparseableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "fine content")
	writeFile(t, dir, "bad.txt", "corrupt marker")

	conn, _ := newTestConnector(t, &stubParser{failFor: "corrupt"})
	result, err := conn.Sync(context.Background(), docSource(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.Skipped)
}

func TestSyncEmptyDir(t *testing.T) {
	conn, _ := newTestConnector(t, &stubParser{})
	result, err := conn.Sync(context.Background(), docSource(t.TempDir()))
	require.NoError(t, err)
	assert.Zero(t, result.ItemsProcessed)
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}

func TestWatcherFiltersIrrelevantEvents(t *testing.T) {
	assert.False(t, relevant(fsnotifyEvent("photo.png")))
	assert.True(t, relevant(fsnotifyEvent("doc.md")))
	assert.True(t, relevant(fsnotifyEvent("DOC.TXT")))
}
