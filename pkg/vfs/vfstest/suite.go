// Package vfstest provides a conformance test suite for vfs.Provider
// implementations.
//
// Every provider (memfs, localfs and the remote proxy) should pass these
// tests. Running the same suite against the proxy and against the provider it
// fronts shows that remoting is transparent to callers.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    vfstest.RunConformanceSuite(t, func(t *testing.T) *vfstest.Fixture {
//	        fs := memfs.New(memfs.Options{})
//	        return &vfstest.Fixture{Provider: fs, Seed: fs, EnforcesPermissions: true}
//	    })
//	}
package vfstest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
)

// Seeder places content that the Provider interface cannot create itself.
type Seeder interface {
	WriteFile(p vfs.Path, data []byte, perm fs.FileMode) error
	Chmod(p vfs.Path, perm fs.FileMode) error
}

// Fixture is one provider under test.
type Fixture struct {
	Provider vfs.Provider
	Seed     Seeder

	// EnforcesPermissions is false when permission bits are bypassed, as
	// they are for root on a local filesystem.
	EnforcesPermissions bool
}

// Factory creates a fresh, empty fixture for each test.
type Factory func(t *testing.T) *Fixture

// RunConformanceSuite runs the full suite against factory. Each test gets a
// fresh fixture.
func RunConformanceSuite(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("Directories", func(t *testing.T) { runDirectoryTests(t, factory) })
	t.Run("Links", func(t *testing.T) { runLinkTests(t, factory) })
	t.Run("Delete", func(t *testing.T) { runDeleteTests(t, factory) })
	t.Run("Attributes", func(t *testing.T) { runAttributeTests(t, factory) })
	t.Run("Queries", func(t *testing.T) { runQueryTests(t, factory) })
	t.Run("FileStore", func(t *testing.T) { runFileStoreTests(t, factory) })
}

// ReadAll drains s and closes it.
func ReadAll(ctx context.Context, s vfs.DirectoryStream) ([]vfs.Path, error) {
	defer func() { _ = s.Close() }()

	var out []vfs.Path
	for {
		p, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}

func writeFile(t *testing.T, f *Fixture, p vfs.Path, data string) {
	t.Helper()
	require.NoError(t, f.Seed.WriteFile(p, []byte(data), 0o644), "seed %s", p)
}

func mkdir(t *testing.T, f *Fixture, p vfs.Path) {
	t.Helper()
	require.NoError(t, f.Provider.CreateDirectory(t.Context(), p), "mkdir %s", p)
}

func requireCode(t *testing.T, err error, code vfs.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, vfs.CodeOf(err), "unexpected error: %v", err)
}
