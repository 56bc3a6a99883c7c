package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/vfs"
	"github.com/marmos91/remotefs/pkg/vfs/memfs"
)

func TestDrain(t *testing.T) {
	ctx := context.Background()

	t.Run("AllEntries", func(t *testing.T) {
		stream := &countingStream{entries: []vfs.Path{"/d/a", "/d/b"}}
		entries, err := Drain(ctx, &streamFS{stream: stream}, "/d", nil)
		require.NoError(t, err)
		assert.Equal(t, []vfs.Path{"/d/a", "/d/b"}, entries)
		assert.EqualValues(t, 1, stream.closes.Load())
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		stream := &countingStream{}
		entries, err := Drain(ctx, &streamFS{stream: stream}, "/d", nil)
		require.NoError(t, err)
		require.NotNil(t, entries)
		assert.Empty(t, entries)
		assert.EqualValues(t, 1, stream.closes.Load())
	})

	t.Run("ReadFailureDropsBatch", func(t *testing.T) {
		stream := &countingStream{
			entries: []vfs.Path{"/d/a", "/d/b"},
			failAt:  1,
			failErr: vfs.NewAccessDeniedError("/d/b"),
		}
		entries, err := Drain(ctx, &streamFS{stream: stream}, "/d", nil)
		require.Error(t, err)
		assert.Nil(t, entries)
		assert.Equal(t, vfs.ErrAccessDenied, vfs.CodeOf(err))
		assert.EqualValues(t, 1, stream.closes.Load())
	})

	t.Run("CloseFailure", func(t *testing.T) {
		stream := &countingStream{
			entries:  []vfs.Path{"/d/a"},
			closeErr: vfs.NewError(vfs.ErrIO, "/d", "close failed"),
		}
		entries, err := Drain(ctx, &streamFS{stream: stream}, "/d", nil)
		require.Error(t, err)
		assert.Nil(t, entries)
		assert.Equal(t, vfs.ErrIO, vfs.CodeOf(err))
	})

	t.Run("ReadFailureWinsOverCloseFailure", func(t *testing.T) {
		stream := &countingStream{
			failErr:  vfs.NewNotFoundError("/d"),
			closeErr: errors.New("close failed"),
		}
		_, err := Drain(ctx, &streamFS{stream: stream}, "/d", nil)
		assert.Equal(t, vfs.ErrNotFound, vfs.CodeOf(err))
		assert.EqualValues(t, 1, stream.closes.Load())
	})

	t.Run("OpenFailure", func(t *testing.T) {
		entries, err := Drain(ctx, &streamFS{openErr: vfs.NewNotDirectoryError("/f")}, "/f", nil)
		assert.Nil(t, entries)
		assert.Equal(t, vfs.ErrNotDirectory, vfs.CodeOf(err))
	})

	t.Run("FilterFailure", func(t *testing.T) {
		fs := memfs.New(memfs.Options{})
		require.NoError(t, fs.WriteFile("/x", nil, 0o644))

		filter := vfs.FilterFunc(func(_ context.Context, p vfs.Path) (bool, error) {
			return false, vfs.NewAccessDeniedError(p.String())
		})
		entries, err := Drain(ctx, fs, vfs.Root, filter)
		assert.Nil(t, entries)
		assert.Equal(t, vfs.ErrAccessDenied, vfs.CodeOf(err))
	})
}
