package books

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), " demo ", "Hello world.\n"))

	data, err := os.ReadFile(filepath.Join(dir, "demo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world.\n", string(data))
}

func TestDirStore_ListSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, n := range []string{"zoology", "algebra", "music"} {
		require.NoError(t, store.Save(ctx, n, n))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "music", "zoology"}, names)
}

func TestDirStore_DuplicateDemoSave(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "demo", "first"))
	assert.ErrorIs(t, store.Save(ctx, "demo", "second"), ErrNameCollision)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)
}
