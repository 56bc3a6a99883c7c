package vfstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

func runLinkTests(t *testing.T, factory Factory) {
	t.Run("SymbolicLinkRoundTrip", func(t *testing.T) { testSymbolicLinkRoundTrip(t, factory) })
	t.Run("SymbolicLinkDangling", func(t *testing.T) { testSymbolicLinkDangling(t, factory) })
	t.Run("SymbolicLinkExists", func(t *testing.T) { testSymbolicLinkExists(t, factory) })
	t.Run("SymbolicLinkLoop", func(t *testing.T) { testSymbolicLinkLoop(t, factory) })
	t.Run("ReadSymbolicLinkNotLink", func(t *testing.T) { testReadSymbolicLinkNotLink(t, factory) })
	t.Run("ReadSymbolicLinkMissing", func(t *testing.T) { testReadSymbolicLinkMissing(t, factory) })
	t.Run("HardLink", func(t *testing.T) { testHardLink(t, factory) })
	t.Run("HardLinkMissingTarget", func(t *testing.T) { testHardLinkMissingTarget(t, factory) })
	t.Run("HardLinkExists", func(t *testing.T) { testHardLinkExists(t, factory) })
	t.Run("HardLinkDirectory", func(t *testing.T) { testHardLinkDirectory(t, factory) })
}

func testSymbolicLinkRoundTrip(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/dir")
	writeFile(t, f, "/dir/target.txt", "hello")

	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/dir/rel", "target.txt"))
	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/abs", "/dir/target.txt"))

	target, err := f.Provider.ReadSymbolicLink(ctx, "/dir/rel")
	require.NoError(t, err)
	assert.Equal(t, vfs.Path("target.txt"), target)

	target, err = f.Provider.ReadSymbolicLink(ctx, "/abs")
	require.NoError(t, err)
	assert.Equal(t, vfs.Path("/dir/target.txt"), target)

	same, err := f.Provider.IsSameFile(ctx, "/dir/rel", "/abs")
	require.NoError(t, err)
	assert.True(t, same)
}

func testSymbolicLinkDangling(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/dangling", "/nowhere"))

	attrs, err := f.Provider.ReadAttributes(ctx, "/dangling", vfs.AttributeKindBasic, vfs.NoFollowLinks)
	require.NoError(t, err)
	assert.True(t, attrs.Basic().IsSymbolicLink())

	_, err = f.Provider.ReadAttributes(ctx, "/dangling", vfs.AttributeKindBasic)
	requireCode(t, err, vfs.ErrNotFound)
}

func testSymbolicLinkExists(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/taken", "x")
	err := f.Provider.CreateSymbolicLink(t.Context(), "/taken", "/elsewhere")
	requireCode(t, err, vfs.ErrAlreadyExists)
}

func testSymbolicLinkLoop(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/a", "/b"))
	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/b", "/a"))

	_, err := f.Provider.ReadAttributes(ctx, "/a", vfs.AttributeKindBasic)
	requireCode(t, err, vfs.ErrLoop)
}

func testReadSymbolicLinkNotLink(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/plain", "x")
	_, err := f.Provider.ReadSymbolicLink(t.Context(), "/plain")
	requireCode(t, err, vfs.ErrNotLink)
}

func testReadSymbolicLinkMissing(t *testing.T, factory Factory) {
	f := factory(t)

	_, err := f.Provider.ReadSymbolicLink(t.Context(), "/missing")
	requireCode(t, err, vfs.ErrNotFound)
}

func testHardLink(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/orig", "data")
	require.NoError(t, f.Provider.CreateLink(ctx, "/alias", "/orig"))

	same, err := f.Provider.IsSameFile(ctx, "/orig", "/alias")
	require.NoError(t, err)
	assert.True(t, same)

	a, err := f.Provider.ReadAttributes(ctx, "/orig", vfs.AttributeKindBasic)
	require.NoError(t, err)
	b, err := f.Provider.ReadAttributes(ctx, "/alias", vfs.AttributeKindBasic)
	require.NoError(t, err)
	assert.Equal(t, a.Basic().FileKey, b.Basic().FileKey)

	require.NoError(t, f.Provider.Delete(ctx, "/orig"))
	attrs, err := f.Provider.ReadAttributes(ctx, "/alias", vfs.AttributeKindBasic)
	require.NoError(t, err)
	assert.EqualValues(t, 4, attrs.Basic().Size)
}

func testHardLinkMissingTarget(t *testing.T, factory Factory) {
	f := factory(t)

	err := f.Provider.CreateLink(t.Context(), "/alias", "/missing")
	requireCode(t, err, vfs.ErrNotFound)
}

func testHardLinkExists(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/a", "a")
	writeFile(t, f, "/b", "b")
	err := f.Provider.CreateLink(t.Context(), "/b", "/a")
	requireCode(t, err, vfs.ErrAlreadyExists)
}

func testHardLinkDirectory(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/dir")
	err := f.Provider.CreateLink(ctx, "/dirlink", "/dir")
	require.Error(t, err)

	_, err = f.Provider.ReadAttributes(ctx, "/dirlink", vfs.AttributeKindBasic, vfs.NoFollowLinks)
	requireCode(t, err, vfs.ErrNotFound)
}
