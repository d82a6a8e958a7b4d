package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/pagepal/internal/document"
)

func TestComputeHash(t *testing.T) {
	tmpDir := t.TempDir()
	file1 := filepath.Join(tmpDir, "test1.txt")
	file2 := filepath.Join(tmpDir, "test2.txt")
	file3 := filepath.Join(tmpDir, "test1_copy.txt")

	require.NoError(t, os.WriteFile(file1, []byte("Hello, World!"), 0644))
	require.NoError(t, os.WriteFile(file2, []byte("Different content"), 0644))
	require.NoError(t, os.WriteFile(file3, []byte("Hello, World!"), 0644))

	hash1, err := ComputeHash(file1)
	require.NoError(t, err)
	hash2, err := ComputeHash(file2)
	require.NoError(t, err)
	hash3, err := ComputeHash(file3)
	require.NoError(t, err)

	assert.Equal(t, hash1, hash3, "same content should produce same hash")
	assert.NotEqual(t, hash1, hash2)
	assert.Len(t, hash1, 32)
}

func TestComputeHashMissingFile(t *testing.T) {
	_, err := ComputeHash(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestStateStorePages(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	store, err := NewStateStore()
	require.NoError(t, err)

	assert.Equal(t, 1, store.Page("1342"), "unknown documents start on page 1")

	require.NoError(t, store.SetPage("1342", 12))
	assert.Equal(t, 12, store.Page("1342"))

	require.NoError(t, store.Clear("1342"))
	assert.Equal(t, 1, store.Page("1342"))
}

func TestStateStoreLast(t *testing.T) {
	store, err := OpenStateStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Last()
	assert.False(t, ok)

	last := LastRead{
		Document:      document.Document{ID: "2000", Title: "Don Quijote", Language: "es"},
		LanguageLevel: "B1",
	}
	require.NoError(t, store.SetLast(last))

	got, ok := store.Last()
	require.True(t, ok)
	assert.Equal(t, last, got)
}

func TestStateStorePersistence(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)

	store1, err := NewStateStore()
	require.NoError(t, err)
	require.NoError(t, store1.SetPage("1342", 7))
	require.NoError(t, store1.SetLast(LastRead{Document: document.Document{ID: "1342"}}))
	assert.Equal(t, filepath.Join(tmpDir, "pagepal", stateFileName), store1.Path())

	store2, err := NewStateStore()
	require.NoError(t, err)
	assert.Equal(t, 7, store2.Page("1342"))
	last, ok := store2.Last()
	require.True(t, ok)
	assert.Equal(t, "1342", last.Document.ID)
}

func TestStateStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0644))

	store, err := OpenStateStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Page("anything"))
	require.NoError(t, store.SetPage("anything", 3))
}
