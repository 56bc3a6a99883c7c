package vfstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

func runFileStoreTests(t *testing.T, factory Factory) {
	t.Run("GetFileStore", func(t *testing.T) { testGetFileStore(t, factory) })
	t.Run("GetFileStoreMissing", func(t *testing.T) { testGetFileStoreMissing(t, factory) })
}

func testGetFileStore(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/f", "x")

	store, err := f.Provider.GetFileStore(ctx, "/f")
	require.NoError(t, err)
	require.NotNil(t, store)

	assert.NotEmpty(t, store.Name())
	assert.NotEmpty(t, store.Type())
	assert.False(t, store.IsReadOnly())

	total, err := store.TotalSpace(ctx)
	require.NoError(t, err)
	unallocated, err := store.UnallocatedSpace(ctx)
	require.NoError(t, err)
	usable, err := store.UsableSpace(ctx)
	require.NoError(t, err)

	assert.Positive(t, total)
	assert.LessOrEqual(t, unallocated, total)
	assert.LessOrEqual(t, usable, unallocated)
	assert.GreaterOrEqual(t, usable, int64(0))
}

func testGetFileStoreMissing(t *testing.T, factory Factory) {
	f := factory(t)

	_, err := f.Provider.GetFileStore(t.Context(), "/missing")
	requireCode(t, err, vfs.ErrNotFound)
}
