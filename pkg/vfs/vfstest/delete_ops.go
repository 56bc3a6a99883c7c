package vfstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

func runDeleteTests(t *testing.T, factory Factory) {
	t.Run("DeleteFile", func(t *testing.T) { testDeleteFile(t, factory) })
	t.Run("DeleteEmptyDirectory", func(t *testing.T) { testDeleteEmptyDirectory(t, factory) })
	t.Run("DeleteNonEmptyDirectory", func(t *testing.T) { testDeleteNonEmptyDirectory(t, factory) })
	t.Run("DeleteMissing", func(t *testing.T) { testDeleteMissing(t, factory) })
	t.Run("DeleteSymbolicLinkKeepsTarget", func(t *testing.T) { testDeleteSymbolicLinkKeepsTarget(t, factory) })
	t.Run("DeleteIfExists", func(t *testing.T) { testDeleteIfExists(t, factory) })
}

func testDeleteFile(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/f", "x")
	require.NoError(t, f.Provider.Delete(ctx, "/f"))

	err := f.Provider.CheckAccess(ctx, "/f")
	requireCode(t, err, vfs.ErrNotFound)
}

func testDeleteEmptyDirectory(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/d")
	require.NoError(t, f.Provider.Delete(ctx, "/d"))

	s, err := f.Provider.NewDirectoryStream(ctx, vfs.Root, nil)
	require.NoError(t, err)
	entries, err := ReadAll(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testDeleteNonEmptyDirectory(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/d")
	writeFile(t, f, "/d/child", "x")

	requireCode(t, f.Provider.Delete(ctx, "/d"), vfs.ErrDirectoryNotEmpty)
	require.NoError(t, f.Provider.CheckAccess(ctx, "/d/child"))
}

func testDeleteMissing(t *testing.T, factory Factory) {
	f := factory(t)

	requireCode(t, f.Provider.Delete(t.Context(), "/missing"), vfs.ErrNotFound)
}

func testDeleteSymbolicLinkKeepsTarget(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/target", "x")
	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/link", "/target"))
	require.NoError(t, f.Provider.Delete(ctx, "/link"))

	require.NoError(t, f.Provider.CheckAccess(ctx, "/target"))
	_, err := f.Provider.ReadSymbolicLink(ctx, "/link")
	requireCode(t, err, vfs.ErrNotFound)
}

func testDeleteIfExists(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/f", "x")

	deleted, err := f.Provider.DeleteIfExists(ctx, "/f")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.Provider.DeleteIfExists(ctx, "/f")
	require.NoError(t, err)
	assert.False(t, deleted)

	mkdir(t, f, "/d")
	writeFile(t, f, "/d/child", "x")
	_, err = f.Provider.DeleteIfExists(ctx, "/d")
	requireCode(t, err, vfs.ErrDirectoryNotEmpty)
}
