//go:build linux

package localfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
	"github.com/marmos91/remotefs/pkg/vfs/localfs"
	"github.com/marmos91/remotefs/pkg/vfs/vfstest"
)

func newFS(t *testing.T, opts localfs.Options) (*localfs.FS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := localfs.New(dir, opts)
	if vfs.CodeOf(err) == vfs.ErrNotSupported {
		t.Skipf("local provider unavailable: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs, dir
}

func TestConformance(t *testing.T) {
	vfstest.RunConformanceSuite(t, func(t *testing.T) *vfstest.Fixture {
		fs, _ := newFS(t, localfs.Options{})
		return &vfstest.Fixture{Provider: fs, Seed: fs, EnforcesPermissions: os.Geteuid() != 0}
	})
}

func TestAbsoluteLinkStaysInRoot(t *testing.T) {
	fs, dir := newFS(t, localfs.Options{})
	ctx := t.Context()

	require.NoError(t, fs.WriteFile("/passwd", []byte("inside"), 0o644))
	require.NoError(t, fs.CreateSymbolicLink(ctx, "/link", "/passwd"))
	require.NoError(t, fs.CreateSymbolicLink(ctx, "/up", "../../../../passwd"))

	for _, p := range []vfs.Path{"/link", "/up"} {
		attrs, err := fs.ReadAttributes(ctx, p, vfs.AttributeKindBasic)
		require.NoError(t, err, p)
		assert.EqualValues(t, len("inside"), attrs.Basic().Size, p)

		same, err := fs.IsSameFile(ctx, p, "/passwd")
		require.NoError(t, err)
		assert.True(t, same, p)
	}

	target, err := os.Readlink(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.Equal(t, "/passwd", target, "targets are stored verbatim on the host")
}

func TestDotDotCannotEscape(t *testing.T) {
	fs, _ := newFS(t, localfs.Options{})
	ctx := t.Context()

	require.NoError(t, fs.WriteFile("/only", []byte("x"), 0o644))

	s, err := fs.NewDirectoryStream(ctx, "/../../..", nil)
	require.NoError(t, err)
	entries, err := vfstest.ReadAll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []vfs.Path{"/only"}, entries)
}

func TestReadOnlyOption(t *testing.T) {
	fs, dir := newFS(t, localfs.Options{ReadOnly: true, StoreName: "ro"})
	ctx := t.Context()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))

	assert.Equal(t, vfs.ErrReadOnly, vfs.CodeOf(fs.CreateDirectory(ctx, "/d")))
	assert.Equal(t, vfs.ErrReadOnly, vfs.CodeOf(fs.Delete(ctx, "/f")))
	assert.Equal(t, vfs.ErrReadOnly, vfs.CodeOf(fs.CheckAccess(ctx, "/f", vfs.AccessWrite)))

	store, err := fs.GetFileStore(ctx, "/f")
	require.NoError(t, err)
	assert.Equal(t, "ro", store.Name())
	assert.True(t, store.IsReadOnly())

	usable, err := store.UsableSpace(ctx)
	require.NoError(t, err)
	assert.Zero(t, usable)
}

func TestNewMissingRoot(t *testing.T) {
	_, err := localfs.New(filepath.Join(t.TempDir(), "missing"), localfs.Options{})
	require.Error(t, err)
	assert.True(t, vfs.IsNotFound(err))
}
