package vfstest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

func runDirectoryTests(t *testing.T, factory Factory) {
	t.Run("CreateDirectory", func(t *testing.T) { testCreateDirectory(t, factory) })
	t.Run("CreateDirectoryWithPermissions", func(t *testing.T) { testCreateDirectoryWithPermissions(t, factory) })
	t.Run("CreateDirectoryUnsupportedAttribute", func(t *testing.T) { testCreateDirectoryUnsupportedAttribute(t, factory) })
	t.Run("CreateDirectoryExists", func(t *testing.T) { testCreateDirectoryExists(t, factory) })
	t.Run("CreateDirectoryMissingParent", func(t *testing.T) { testCreateDirectoryMissingParent(t, factory) })
	t.Run("ListDirectory", func(t *testing.T) { testListDirectory(t, factory) })
	t.Run("ListEmptyDirectory", func(t *testing.T) { testListEmptyDirectory(t, factory) })
	t.Run("ListDirectoryDeclarativeFilter", func(t *testing.T) { testListDirectoryDeclarativeFilter(t, factory) })
	t.Run("ListDirectoryFunctionFilter", func(t *testing.T) { testListDirectoryFunctionFilter(t, factory) })
	t.Run("ListDirectoryFilterError", func(t *testing.T) { testListDirectoryFilterError(t, factory) })
	t.Run("ListMissingDirectory", func(t *testing.T) { testListMissingDirectory(t, factory) })
	t.Run("ListNotDirectory", func(t *testing.T) { testListNotDirectory(t, factory) })
	t.Run("StreamCloseIdempotent", func(t *testing.T) { testStreamCloseIdempotent(t, factory) })
}

func testCreateDirectory(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/a")
	mkdir(t, f, "/a/b")

	attrs, err := f.Provider.ReadAttributes(ctx, "/a/b", vfs.AttributeKindBasic)
	require.NoError(t, err)
	assert.True(t, attrs.Basic().IsDirectory())
}

func testCreateDirectoryWithPermissions(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	require.NoError(t, f.Provider.CreateDirectory(ctx, "/private", vfs.WithPermissions(0o700)))

	attrs, err := f.Provider.ReadAttributes(ctx, "/private", vfs.AttributeKindPosix)
	require.NoError(t, err)
	posix, ok := attrs.(*vfs.PosixAttributes)
	require.True(t, ok, "want *vfs.PosixAttributes, got %T", attrs)
	assert.Equal(t, fs.FileMode(0o700), posix.Permissions)
}

func testCreateDirectoryUnsupportedAttribute(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	err := f.Provider.CreateDirectory(ctx, "/d", vfs.FileAttribute{Name: "dos:hidden", Value: "true"})
	requireCode(t, err, vfs.ErrNotSupported)

	_, err = f.Provider.ReadAttributes(ctx, "/d", vfs.AttributeKindBasic)
	requireCode(t, err, vfs.ErrNotFound)
}

func testCreateDirectoryExists(t *testing.T, factory Factory) {
	f := factory(t)

	mkdir(t, f, "/a")
	requireCode(t, f.Provider.CreateDirectory(t.Context(), "/a"), vfs.ErrAlreadyExists)

	writeFile(t, f, "/file", "x")
	requireCode(t, f.Provider.CreateDirectory(t.Context(), "/file"), vfs.ErrAlreadyExists)
}

func testCreateDirectoryMissingParent(t *testing.T, factory Factory) {
	f := factory(t)

	requireCode(t, f.Provider.CreateDirectory(t.Context(), "/missing/child"), vfs.ErrNotFound)

	writeFile(t, f, "/file", "x")
	requireCode(t, f.Provider.CreateDirectory(t.Context(), "/file/child"), vfs.ErrNotDirectory)
}

func testListDirectory(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/dir")
	writeFile(t, f, "/dir/beta.txt", "b")
	writeFile(t, f, "/dir/alpha.txt", "a")
	mkdir(t, f, "/dir/gamma")

	s, err := f.Provider.NewDirectoryStream(ctx, "/dir", nil)
	require.NoError(t, err)
	entries, err := ReadAll(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, []vfs.Path{"/dir/alpha.txt", "/dir/beta.txt", "/dir/gamma"}, entries)
}

func testListEmptyDirectory(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	mkdir(t, f, "/empty")

	s, err := f.Provider.NewDirectoryStream(ctx, "/empty", vfs.AcceptAll())
	require.NoError(t, err)
	entries, err := ReadAll(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testListDirectoryDeclarativeFilter(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/a.txt", "a")
	writeFile(t, f, "/b.log", "b")
	writeFile(t, f, "/.hidden.txt", "h")

	glob, err := vfs.Glob("*.txt")
	require.NoError(t, err)

	s, err := f.Provider.NewDirectoryStream(ctx, vfs.Root, glob)
	require.NoError(t, err)
	entries, err := ReadAll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []vfs.Path{"/.hidden.txt", "/a.txt"}, entries)

	s, err = f.Provider.NewDirectoryStream(ctx, vfs.Root, vfs.NoDotFiles())
	require.NoError(t, err)
	entries, err = ReadAll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []vfs.Path{"/a.txt", "/b.log"}, entries)
}

func testListDirectoryFunctionFilter(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	for _, name := range []string{"/one", "/two", "/three"} {
		writeFile(t, f, vfs.Path(name), "x")
	}

	var seen []vfs.Path
	filter := vfs.FilterFunc(func(_ context.Context, p vfs.Path) (bool, error) {
		seen = append(seen, p)
		return len(p.Name()) == 3, nil
	})

	s, err := f.Provider.NewDirectoryStream(ctx, vfs.Root, filter)
	require.NoError(t, err)
	entries, err := ReadAll(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, []vfs.Path{"/one", "/two"}, entries)
	// Providers enumerate in name order and consult the filter once per
	// entry as the stream advances.
	assert.Equal(t, []vfs.Path{"/one", "/three", "/two"}, seen)
}

func testListDirectoryFilterError(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/x", "x")

	filter := vfs.FilterFunc(func(_ context.Context, p vfs.Path) (bool, error) {
		return false, vfs.NewAccessDeniedError(p.String())
	})

	s, err := f.Provider.NewDirectoryStream(ctx, vfs.Root, filter)
	if err != nil {
		// Eager implementations may evaluate the filter while opening.
		requireCode(t, err, vfs.ErrAccessDenied)
		return
	}
	_, err = ReadAll(ctx, s)
	requireCode(t, err, vfs.ErrAccessDenied)
}

func testListMissingDirectory(t *testing.T, factory Factory) {
	f := factory(t)

	_, err := f.Provider.NewDirectoryStream(t.Context(), "/nope", nil)
	requireCode(t, err, vfs.ErrNotFound)
}

func testListNotDirectory(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/file", "x")
	_, err := f.Provider.NewDirectoryStream(t.Context(), "/file", nil)
	requireCode(t, err, vfs.ErrNotDirectory)
}

func testStreamCloseIdempotent(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/x", "x")

	s, err := f.Provider.NewDirectoryStream(ctx, vfs.Root, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Next(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF), "closed stream must not report a clean end")
}
