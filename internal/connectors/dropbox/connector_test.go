package dropbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kb-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kb-engine/internal/chunker"
	"github.com/custodia-labs/kb-engine/internal/connectors"
	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/pipeline"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

func (stubEmbedder) Dimensions() int { return 1 }

func fileEntry(name, pathLower string, size uint64) *files.FileMetadata {
	fm := &files.FileMetadata{Id: "id:" + pathLower, Size: size}
	fm.Name = name
	fm.PathLower = pathLower
	fm.PathDisplay = pathLower
	return fm
}

func folderEntry(name string) *files.FolderMetadata {
	fm := &files.FolderMetadata{}
	fm.Name = name
	return fm
}

// fakeClient serves canned listings and downloads.
type fakeClient struct {
	pages    []*files.ListFolderResult
	contents map[string]string // pathLower -> body
	failFor  map[string]bool
	listArg  *files.ListFolderArg
}

func (f *fakeClient) ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error) {
	f.listArg = arg
	if len(f.pages) == 0 {
		return &files.ListFolderResult{}, nil
	}
	return f.pages[0], nil
}

func (f *fakeClient) ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error) {
	for i, page := range f.pages {
		if page.Cursor == arg.Cursor && i+1 < len(f.pages) {
			return f.pages[i+1], nil
		}
	}
	return nil, errors.New("bad cursor")
}

func (f *fakeClient) Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error) {
	if f.failFor[arg.Path] {
		return nil, nil, errors.New("download failed")
	}
	body, ok := f.contents[arg.Path]
	if !ok {
		return nil, nil, errors.New("not found")
	}
	return nil, io.NopCloser(strings.NewReader(body)), nil
}

func newConnector(t *testing.T, fake *fakeClient) (*Connector, *memory.ChunkStore, *memory.CredentialStore) {
	t.Helper()
	chunks := memory.NewChunkStore()
	creds := memory.NewCredentialStore()
	ing := connectors.NewIngestor(chunks, chunker.New(), pipeline.New(stubEmbedder{}, nil))
	conn := New(ing, creds)
	conn.newClient = func(string) filesClient { return fake }
	return conn, chunks, creds
}

func dbxSource() domain.DataSource {
	return domain.DataSource{
		ID:       "src-1",
		TenantID: "tenant-1",
		Type:     domain.SourceTypeDropbox,
		Name:     "Shared Docs",
		Config:   domain.ConnectorConfig{Path: "/docs"},
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	conn, _, creds := newConnector(t, &fakeClient{})
	ctx := context.Background()

	assert.ErrorIs(t, conn.Validate(ctx, dbxSource()), domain.ErrAuthRequired)

	require.NoError(t, creds.Save(ctx, "tenant-1", "src-1", domain.Credentials{AccessToken: "tok"}))
	assert.NoError(t, conn.Validate(ctx, dbxSource()))
}

func TestSyncIngestsTextFiles(t *testing.T) {
	fake := &fakeClient{
		pages: []*files.ListFolderResult{{
			Entries: []files.IsMetadata{
				fileEntry("notes.md", "/docs/notes.md", 100),
				fileEntry("photo.jpg", "/docs/photo.jpg", 100),
				folderEntry("sub"),
			},
		}},
		contents: map[string]string{"/docs/notes.md": "markdown body"},
	}

	conn, chunks, creds := newConnector(t, fake)
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, "tenant-1", "src-1", domain.Credentials{AccessToken: "tok"}))

	result, err := conn.Sync(ctx, dbxSource())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsProcessed)

	assert.Equal(t, "/docs", fake.listArg.Path)
	assert.True(t, fake.listArg.Recursive)

	stored, err := chunks.ListBySource(ctx, "tenant-1", "src-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "notes.md", stored[0].Title)
	assert.Equal(t, "https://www.dropbox.com/home/docs%2Fnotes.md", stored[0].Metadata.URL)
}

func TestSyncPagesThroughCursor(t *testing.T) {
	fake := &fakeClient{
		pages: []*files.ListFolderResult{
			{Entries: []files.IsMetadata{fileEntry("a.md", "/docs/a.md", 10)}, Cursor: "c1", HasMore: true},
			{Entries: []files.IsMetadata{fileEntry("b.md", "/docs/b.md", 10)}},
		},
		contents: map[string]string{"/docs/a.md": "a body", "/docs/b.md": "b body"},
	}

	conn, _, creds := newConnector(t, fake)
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, "tenant-1", "src-1", domain.Credentials{AccessToken: "tok"}))

	result, err := conn.Sync(ctx, dbxSource())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsProcessed)
}

func TestSyncSkipsFailedDownload(t *testing.T) {
	fake := &fakeClient{
		pages: []*files.ListFolderResult{{
			Entries: []files.IsMetadata{
				fileEntry("good.md", "/docs/good.md", 10),
				fileEntry("bad.md", "/docs/bad.md", 10),
			},
		}},
		contents: map[string]string{"/docs/good.md": "fine"},
		failFor:  map[string]bool{"/docs/bad.md": true},
	}

	conn, _, creds := newConnector(t, fake)
	ctx := context.Background()
	require.NoError(t, creds.Save(ctx, "tenant-1", "src-1", domain.Credentials{AccessToken: "tok"}))

	result, err := conn.Sync(ctx, dbxSource())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.Skipped)
}
