package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set(KeyEmbeddingModel, "nomic-embed-text")
	require.NoError(t, err)

	val, ok := store.Get(KeyEmbeddingModel)
	assert.True(t, ok)
	assert.Equal(t, "nomic-embed-text", val)
}

func TestConfigStore_GetString(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("string_key", "hello world")
	require.NoError(t, err)

	assert.Equal(t, "hello world", store.GetString("string_key"))
	assert.Equal(t, "", store.GetString("nonexistent"))

	// Wrong type
	err = store.Set("int_key", 42)
	require.NoError(t, err)
	assert.Equal(t, "", store.GetString("int_key"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set(KeySyncWorkers, 8)
	require.NoError(t, err)

	assert.Equal(t, 8, store.GetInt(KeySyncWorkers))
	assert.Equal(t, 0, store.GetInt("nonexistent"))

	// TOML unmarshals integers as int64
	store.mu.Lock()
	store.data["int64_key"] = int64(9999)
	store.mu.Unlock()
	assert.Equal(t, 9999, store.GetInt("int64_key"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("bool_key", true))
	assert.True(t, store.GetBool("bool_key"))
	assert.False(t, store.GetBool("nonexistent"))

	require.NoError(t, store.Set("string_key", "true"))
	assert.False(t, store.GetBool("string_key"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("keywords", []string{"auth", "security"}))
	assert.Equal(t, []string{"auth", "security"}, store.GetStringSlice("keywords"))

	// TOML arrays unmarshal as []any
	store.mu.Lock()
	store.data["mixed"] = []any{"a", 1, "b"}
	store.mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("mixed"))

	assert.Nil(t, store.GetStringSlice("nonexistent"))
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store1.Set("key1", "value1"))
	require.NoError(t, store1.Set("key2", 42))
	require.NoError(t, store1.Set("key3", true))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "value1", store2.GetString("key1"))
	assert.Equal(t, 42, store2.GetInt("key2"))
	assert.True(t, store2.GetBool("key3"))
}

func TestConfigStore_Load_NonExistent(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()

	content := []byte("[embedding]\nmodel = \"nomic-embed-text\"\nbase_url = \"http://localhost:11434\"\n\n[sync]\nworkers = 4\n")
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), content, 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text", store.GetString(KeyEmbeddingModel))
	assert.Equal(t, "http://localhost:11434", store.GetString(KeyEmbeddingBaseURL))
	assert.Equal(t, 4, store.GetInt(KeySyncWorkers))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()

	corruptedContent := []byte("this is not valid TOML {{{[[")
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), corruptedContent, 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_OverwriteValue(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("key", "original"))
	assert.Equal(t, "original", store.GetString("key"))

	require.NoError(t, store.Set("key", "updated"))
	assert.Equal(t, "updated", store.GetString("key"))
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# comment only\n"), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}
