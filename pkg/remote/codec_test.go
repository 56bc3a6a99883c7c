package remote

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// fakePeer records FILTER_ACCEPT calls instead of sending them.
type fakePeer struct {
	endpoint uuid.UUID
	asked    []vfs.Path
}

func (p *fakePeer) peerEndpoint() uuid.UUID { return p.endpoint }

func (p *fakePeer) filterAccept(_ context.Context, _ handle.Handle, entry vfs.Path) (bool, error) {
	p.asked = append(p.asked, entry)
	return entry.Name() == "keep", nil
}

func TestCodecByValue(t *testing.T) {
	c := NewCodec(handle.NewTable(), "conn", nil)

	t.Run("Path", func(t *testing.T) {
		v, err := c.Wrap(vfs.Path("/a/b"))
		require.NoError(t, err)
		assert.Equal(t, rfs.ValuePath, v.Kind)

		p, err := c.UnwrapPath(v)
		require.NoError(t, err)
		assert.Equal(t, vfs.Path("/a/b"), p)
	})

	t.Run("AccessModes", func(t *testing.T) {
		v, err := c.Wrap([]vfs.AccessMode{vfs.AccessRead, vfs.AccessExecute})
		require.NoError(t, err)

		modes, err := c.UnwrapAccessModes(v)
		require.NoError(t, err)
		assert.Equal(t, []vfs.AccessMode{vfs.AccessRead, vfs.AccessExecute}, modes)
	})

	t.Run("DeclarativeFilterStaysData", func(t *testing.T) {
		glob, err := vfs.Glob("*.txt")
		require.NoError(t, err)

		v, err := c.Wrap(glob)
		require.NoError(t, err)
		assert.Equal(t, rfs.ValueFilter, v.Kind)
		assert.Zero(t, c.table.Len())

		f, err := c.UnwrapFilter(v)
		require.NoError(t, err)
		ok, err := f.Accept(t.Context(), "/dir/readme.txt")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Attributes", func(t *testing.T) {
		mtime := time.Unix(1700000000, 123)
		in := &vfs.PosixAttributes{
			BasicAttributes: vfs.BasicAttributes{
				Type:             vfs.TypeRegular,
				Size:             42,
				LastModifiedTime: mtime,
				FileKey:          "1:2",
			},
			Owner:       "alice",
			UID:         1000,
			GID:         100,
			Permissions: 0o640,
		}

		v, err := c.Wrap(vfs.Attributes(in))
		require.NoError(t, err)
		out, err := c.UnwrapAttributes(v)
		require.NoError(t, err)

		posix, ok := out.(*vfs.PosixAttributes)
		require.True(t, ok)
		assert.True(t, mtime.Equal(posix.LastModifiedTime))
		assert.True(t, posix.CreationTime.IsZero())
		assert.Equal(t, int64(42), posix.Size)
		assert.Equal(t, "alice", posix.Owner)
		assert.Equal(t, fs.FileMode(0o640), posix.Permissions)
	})

	t.Run("EpochTimestampIsNotUnset", func(t *testing.T) {
		epoch := time.Unix(0, 0)
		in := &vfs.BasicAttributes{
			Type:             vfs.TypeRegular,
			LastModifiedTime: epoch,
			LastAccessTime:   epoch,
		}

		v, err := c.Wrap(vfs.Attributes(in))
		require.NoError(t, err)
		assert.Equal(t, rfs.TimeModified|rfs.TimeAccessed, v.Attributes.TimesSet)

		out, err := c.UnwrapAttributes(v)
		require.NoError(t, err)
		basic := out.Basic()
		assert.False(t, basic.LastModifiedTime.IsZero())
		assert.True(t, epoch.Equal(basic.LastModifiedTime))
		assert.True(t, epoch.Equal(basic.LastAccessTime))
		assert.True(t, basic.CreationTime.IsZero())
	})

	t.Run("NullOptionalArguments", func(t *testing.T) {
		opts, err := c.UnwrapLinkOptions(rfs.Null)
		require.NoError(t, err)
		assert.Nil(t, opts)

		attrs, err := c.UnwrapFileAttributes(rfs.Null)
		require.NoError(t, err)
		assert.Nil(t, attrs)

		f, err := c.UnwrapFilter(rfs.Null)
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("WrongKindIsRejected", func(t *testing.T) {
		_, err := c.UnwrapPath(rfs.Value{Kind: rfs.ValueBool, Bool: true})
		var bad *valueError
		assert.ErrorAs(t, err, &bad)
	})

	t.Run("UnknownAccessBits", func(t *testing.T) {
		_, err := c.UnwrapAccessModes(rfs.Value{Kind: rfs.ValueAccessModes, Mask: 1 << 30})
		var bad *valueError
		assert.ErrorAs(t, err, &bad)
	})

	t.Run("Unmarshalable", func(t *testing.T) {
		_, err := c.Wrap(struct{}{})
		assert.Error(t, err)
	})
}

func TestCodecByHandle(t *testing.T) {
	table := handle.NewTable()
	peer := &fakePeer{endpoint: uuid.New()}
	c := NewCodec(table, "conn-1", peer)

	t.Run("FunctionFilterIsRegistered", func(t *testing.T) {
		filter := vfs.FilterFunc(func(context.Context, vfs.Path) (bool, error) { return true, nil })

		v, err := c.Wrap(filter)
		require.NoError(t, err)
		require.Equal(t, rfs.ValueHandle, v.Kind)
		assert.Equal(t, table.Endpoint(), v.Handle.Endpoint)
		assert.Equal(t, 1, table.Len())

		// Our own handle resolves to the original object.
		f, err := c.UnwrapFilter(v)
		require.NoError(t, err)
		ok, err := f.Accept(t.Context(), "/x")
		require.NoError(t, err)
		assert.True(t, ok)

		c.Release(v)
		assert.Zero(t, table.Len())

		_, err = c.UnwrapFilter(v)
		assert.ErrorIs(t, err, handle.ErrStale)
	})

	t.Run("PeerHandleBecomesProxy", func(t *testing.T) {
		h := handle.Handle{Endpoint: peer.endpoint, Token: 9}

		f, err := c.UnwrapFilter(rfs.Value{Kind: rfs.ValueHandle, Handle: h})
		require.NoError(t, err)

		keep, err := f.Accept(t.Context(), "/d/keep")
		require.NoError(t, err)
		drop, err := f.Accept(t.Context(), "/d/drop")
		require.NoError(t, err)
		assert.True(t, keep)
		assert.False(t, drop)
		assert.Equal(t, []vfs.Path{"/d/keep", "/d/drop"}, peer.asked)

		// Sending the proxy back hands over the peer's own handle.
		v, err := c.Wrap(f)
		require.NoError(t, err)
		assert.Equal(t, h, v.Handle)
		assert.Zero(t, table.Len())
	})

	t.Run("ForeignEndpointIsStale", func(t *testing.T) {
		h := handle.Handle{Endpoint: uuid.New(), Token: 1}
		_, err := c.Unwrap(rfs.Value{Kind: rfs.ValueHandle, Handle: h})
		assert.ErrorIs(t, err, handle.ErrStale)
	})

	t.Run("ReleaseIgnoresForeignValues", func(t *testing.T) {
		before := table.Len()
		c.Release(rfs.Value{Kind: rfs.ValueHandle, Handle: handle.Handle{Endpoint: peer.endpoint, Token: 1}})
		c.Release(pathValue("/x"))
		assert.Equal(t, before, table.Len())
	})
}
