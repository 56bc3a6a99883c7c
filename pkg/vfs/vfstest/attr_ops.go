package vfstest

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

func runAttributeTests(t *testing.T, factory Factory) {
	t.Run("BasicRegularFile", func(t *testing.T) { testBasicRegularFile(t, factory) })
	t.Run("PosixRegularFile", func(t *testing.T) { testPosixRegularFile(t, factory) })
	t.Run("FollowLinks", func(t *testing.T) { testFollowLinks(t, factory) })
	t.Run("Missing", func(t *testing.T) { testAttributesMissing(t, factory) })
	t.Run("UnsupportedKind", func(t *testing.T) { testAttributesUnsupportedKind(t, factory) })
	t.Run("ThroughIntermediateFile", func(t *testing.T) { testAttributesThroughFile(t, factory) })
}

func testBasicRegularFile(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/f", "hello world")

	attrs, err := f.Provider.ReadAttributes(t.Context(), "/f", vfs.AttributeKindBasic)
	require.NoError(t, err)
	assert.Equal(t, vfs.AttributeKindBasic, attrs.Kind())

	b := attrs.Basic()
	assert.True(t, b.IsRegularFile())
	assert.False(t, b.IsDirectory())
	assert.EqualValues(t, 11, b.Size)
	assert.NotEmpty(t, b.FileKey)
	assert.False(t, b.LastModifiedTime.IsZero())
}

func testPosixRegularFile(t *testing.T, factory Factory) {
	f := factory(t)

	require.NoError(t, f.Seed.WriteFile("/f", []byte("x"), 0o640))
	require.NoError(t, f.Seed.Chmod("/f", 0o640))

	attrs, err := f.Provider.ReadAttributes(t.Context(), "/f", vfs.AttributeKindPosix)
	require.NoError(t, err)
	require.Equal(t, vfs.AttributeKindPosix, attrs.Kind())

	posix := attrs.(*vfs.PosixAttributes)
	assert.Equal(t, fs.FileMode(0o640), posix.Permissions)
	assert.NotEmpty(t, posix.Owner)
	assert.NotEmpty(t, posix.Group)
	assert.True(t, posix.IsRegularFile())
}

func testFollowLinks(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/dir")
	require.NoError(t, f.Provider.CreateSymbolicLink(ctx, "/link", "/dir"))

	attrs, err := f.Provider.ReadAttributes(ctx, "/link", vfs.AttributeKindBasic)
	require.NoError(t, err)
	assert.True(t, attrs.Basic().IsDirectory())

	attrs, err = f.Provider.ReadAttributes(ctx, "/link", vfs.AttributeKindBasic, vfs.NoFollowLinks)
	require.NoError(t, err)
	assert.True(t, attrs.Basic().IsSymbolicLink())

	writeFile(t, f, "/dir/inner", "x")
	attrs, err = f.Provider.ReadAttributes(ctx, "/link/inner", vfs.AttributeKindBasic, vfs.NoFollowLinks)
	require.NoError(t, err)
	assert.True(t, attrs.Basic().IsRegularFile(), "intermediate links are always followed")
}

func testAttributesMissing(t *testing.T, factory Factory) {
	f := factory(t)

	_, err := f.Provider.ReadAttributes(t.Context(), "/missing", vfs.AttributeKindBasic)
	requireCode(t, err, vfs.ErrNotFound)
}

func testAttributesUnsupportedKind(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/f", "x")
	_, err := f.Provider.ReadAttributes(t.Context(), "/f", vfs.AttributeKind(99))
	requireCode(t, err, vfs.ErrNotSupported)
}

func testAttributesThroughFile(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/f", "x")
	_, err := f.Provider.ReadAttributes(t.Context(), "/f/child", vfs.AttributeKindBasic)
	requireCode(t, err, vfs.ErrNotDirectory)
}
