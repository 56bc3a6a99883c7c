package vfstest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

func runQueryTests(t *testing.T, factory Factory) {
	t.Run("IsSameFile", func(t *testing.T) { testIsSameFile(t, factory) })
	t.Run("IsSameFileMissing", func(t *testing.T) { testIsSameFileMissing(t, factory) })
	t.Run("IsHidden", func(t *testing.T) { testIsHidden(t, factory) })
	t.Run("CheckAccessExistence", func(t *testing.T) { testCheckAccessExistence(t, factory) })
	t.Run("CheckAccessModes", func(t *testing.T) { testCheckAccessModes(t, factory) })
}

func testIsSameFile(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/a", "x")
	writeFile(t, f, "/b", "x")

	same, err := f.Provider.IsSameFile(ctx, "/a", "/a")
	require.NoError(t, err)
	assert.True(t, same)

	same, err = f.Provider.IsSameFile(ctx, "/a", "/b")
	require.NoError(t, err)
	assert.False(t, same)
}

func testIsSameFileMissing(t *testing.T, factory Factory) {
	f := factory(t)

	writeFile(t, f, "/a", "x")
	_, err := f.Provider.IsSameFile(t.Context(), "/a", "/missing")
	requireCode(t, err, vfs.ErrNotFound)
}

func testIsHidden(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/.secret", "x")
	writeFile(t, f, "/visible", "x")

	tests := []struct {
		path   vfs.Path
		hidden bool
	}{
		{"/.secret", true},
		{"/visible", false},
		{vfs.Root, false},
	}
	for _, tt := range tests {
		hidden, err := f.Provider.IsHidden(ctx, tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.hidden, hidden, tt.path)
	}
}

func testCheckAccessExistence(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/f", "x")
	require.NoError(t, f.Provider.CheckAccess(ctx, "/f"))
	require.NoError(t, f.Provider.CheckAccess(ctx, vfs.Root))
	requireCode(t, f.Provider.CheckAccess(ctx, "/missing"), vfs.ErrNotFound)
}

func testCheckAccessModes(t *testing.T, factory Factory) {
	f := factory(t)
	ctx := t.Context()

	writeFile(t, f, "/ro", "x")
	require.NoError(t, f.Seed.Chmod("/ro", 0o444))

	require.NoError(t, f.Provider.CheckAccess(ctx, "/ro", vfs.AccessRead))

	if !f.EnforcesPermissions {
		t.Skip("provider does not enforce permission bits")
	}
	requireCode(t, f.Provider.CheckAccess(ctx, "/ro", vfs.AccessRead, vfs.AccessWrite), vfs.ErrAccessDenied)
	requireCode(t, f.Provider.CheckAccess(ctx, "/ro", vfs.AccessExecute), vfs.ErrAccessDenied)
}
