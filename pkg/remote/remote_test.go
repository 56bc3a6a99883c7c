package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
	"github.com/marmos91/remotefs/pkg/vfs/memfs"
	"github.com/marmos91/remotefs/pkg/vfs/vfstest"
)

func TestConformance(t *testing.T) {
	vfstest.RunConformanceSuite(t, func(t *testing.T) *vfstest.Fixture {
		lb, fs := newMemLoopback(t)
		return &vfstest.Fixture{Provider: lb.client, Seed: fs, EnforcesPermissions: true}
	})
}

func TestListDirectory(t *testing.T) {
	lb, fs := newMemLoopback(t)
	ctx := t.Context()

	t.Run("FilteredBatch", func(t *testing.T) {
		require.NoError(t, fs.CreateDirectory(ctx, "/a"))
		for _, name := range []string{"x", "y", ".hidden", "z"} {
			require.NoError(t, fs.WriteFile(vfs.Path("/a").Join(name), nil, 0o644))
		}

		entries, err := lb.client.ListDirectory(ctx, "/a", vfs.NoDotFiles())
		require.NoError(t, err)
		assert.Equal(t, []vfs.Path{"/a/x", "/a/y", "/a/z"}, entries)
	})

	t.Run("EmptyDirectoryIsEmptyBatch", func(t *testing.T) {
		require.NoError(t, fs.CreateDirectory(ctx, "/empty"))

		entries, err := lb.client.ListDirectory(ctx, "/empty", nil)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		entries, err := lb.client.ListDirectory(ctx, "/missing", vfs.NoDotFiles())
		require.Error(t, err)
		assert.Nil(t, entries)
		assert.Equal(t, vfs.ErrNotFound, vfs.CodeOf(err))
		assert.False(t, errors.Is(err, ErrTransport))
	})

	t.Run("FunctionFilterHandleIsReleased", func(t *testing.T) {
		filter := vfs.FilterFunc(func(_ context.Context, p vfs.Path) (bool, error) {
			return p.Name() != "y", nil
		})

		entries, err := lb.client.ListDirectory(ctx, "/a", filter)
		require.NoError(t, err)
		assert.Equal(t, []vfs.Path{"/a/.hidden", "/a/x", "/a/z"}, entries)
		assert.Zero(t, lb.clientTable.Len())
	})
}

func TestCreateSymbolicLinkExisting(t *testing.T) {
	lb, fs := newMemLoopback(t)
	ctx := t.Context()

	require.NoError(t, fs.WriteFile("/target", []byte("t"), 0o644))
	require.NoError(t, fs.WriteFile("/link", []byte("l"), 0o644))

	err := lb.client.CreateSymbolicLink(ctx, "/link", "/target")
	require.Error(t, err)

	var verr *vfs.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, vfs.ErrAlreadyExists, verr.Code)
	assert.Equal(t, "/link", verr.Path)

	// No partial mutation: /link is still the regular file.
	attrs, err := fs.ReadAttributes(ctx, "/link", vfs.AttributeKindBasic, vfs.NoFollowLinks)
	require.NoError(t, err)
	assert.True(t, attrs.Basic().IsRegularFile())
}

func TestFileStoreProxy(t *testing.T) {
	provider := &storeCountingFS{FS: memfs.New(memfs.Options{StoreName: "scratch", TotalSpace: 1 << 20})}
	lb := newLoopback(t, provider)
	ctx := t.Context()

	store, err := lb.client.GetFileStore(ctx, vfs.Root)
	require.NoError(t, err)
	require.Equal(t, 1, lb.serverTable.Len())

	t.Run("CachedFlags", func(t *testing.T) {
		assert.Equal(t, "scratch", store.Name())
		assert.Equal(t, memfs.StoreType, store.Type())
		assert.False(t, store.IsReadOnly())
		assert.Zero(t, provider.spaceCalls.Load())
	})

	t.Run("OneCallPerSpaceQuery", func(t *testing.T) {
		total, err := store.TotalSpace(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1<<20, total)

		_, err = store.UsableSpace(ctx)
		require.NoError(t, err)
		_, err = store.UnallocatedSpace(ctx)
		require.NoError(t, err)
		_, err = store.TotalSpace(ctx)
		require.NoError(t, err)

		assert.EqualValues(t, 4, provider.spaceCalls.Load())
	})

	t.Run("CloseReleases", func(t *testing.T) {
		rs, ok := store.(*FileStore)
		require.True(t, ok)
		require.NoError(t, rs.Close())
		require.NoError(t, rs.Close())
		assert.Zero(t, lb.serverTable.Len())

		_, err := store.TotalSpace(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, handle.ErrStale)
		assert.Equal(t, "scratch", store.Name())
	})
}

func TestFileStoreAfterConnectionLoss(t *testing.T) {
	lb, _ := newMemLoopback(t)
	ctx := t.Context()

	store, err := lb.client.GetFileStore(ctx, vfs.Root)
	require.NoError(t, err)

	require.NoError(t, lb.server.Close())
	<-lb.client.Conn().Done()

	_, err = store.UsableSpace(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "memfs", store.Name())
}

func TestHandlesReleasedOnConnectionLoss(t *testing.T) {
	lb, _ := newMemLoopback(t)
	ctx := t.Context()

	for range 3 {
		_, err := lb.client.GetFileStore(ctx, vfs.Root)
		require.NoError(t, err)
	}
	require.Equal(t, 3, lb.serverTable.Len())

	require.NoError(t, lb.client.Close())
	select {
	case <-lb.server.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server connection did not shut down")
	}
	assert.Zero(t, lb.serverTable.Len())
}

func TestConcurrentCalls(t *testing.T) {
	lb, fs := newMemLoopback(t)
	ctx := t.Context()

	require.NoError(t, fs.WriteFile("/f", []byte("x"), 0o644))
	require.NoError(t, fs.CreateLink(ctx, "/hard", "/f"))
	require.NoError(t, fs.WriteFile("/g", []byte("y"), 0o644))

	g, gctx := errgroup.WithContext(ctx)
	for i := range 64 {
		g.Go(func() error {
			other, want := vfs.Path("/hard"), true
			if i%2 == 1 {
				other, want = "/g", false
			}
			same, err := lb.client.IsSameFile(gctx, "/f", other)
			if err != nil {
				return err
			}
			if same != want {
				return fmt.Errorf("call %d: IsSameFile(/f, %s) = %v", i, other, same)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestTransportFailure(t *testing.T) {
	lb, _ := newMemLoopback(t)
	ctx := t.Context()

	require.NoError(t, lb.client.Ping(ctx))
	require.NoError(t, lb.server.Close())

	_, err := lb.client.IsHidden(ctx, "/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	_, ok := vfs.AsError(err)
	assert.False(t, ok, "transport failures must not look like domain failures")
}

func TestCallCanceled(t *testing.T) {
	provider := newBlockingFS()
	lb := newLoopback(t, provider)
	defer close(provider.release)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		_, err := lb.client.IsHidden(ctx, "/")
		errCh <- err
	}()

	<-provider.entered
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrTransport)
	case <-time.After(5 * time.Second):
		t.Fatal("canceled call did not return")
	}

	// The connection is still usable.
	require.NoError(t, lb.client.Ping(t.Context()))
}

func TestUnsupportedAttributeKind(t *testing.T) {
	lb, fs := newMemLoopback(t)
	require.NoError(t, fs.WriteFile("/f", nil, 0o644))

	_, err := lb.client.ReadAttributes(t.Context(), "/f", vfs.AttributeKind(99))
	require.Error(t, err)
	assert.Equal(t, vfs.ErrNotSupported, vfs.CodeOf(err))
}

func TestProcedureUnavailable(t *testing.T) {
	lb, _ := newMemLoopback(t)

	// The dialing side serves no provider.
	_, err := lb.server.call(t.Context(), rfs.ProcIsHidden, &rfs.PathArgs{Path: pathValue("/")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestStaleFilterHandle(t *testing.T) {
	lb, _ := newMemLoopback(t)

	// A filter handle minted by neither side.
	foreign := handle.NewTable().Register(vfs.AcceptAll(), "x")
	_, err := lb.client.conn.call(t.Context(), rfs.ProcListDirectory, &rfs.ListDirectoryArgs{
		Dir:    pathValue(vfs.Root),
		Filter: rfs.Value{Kind: rfs.ValueHandle, Handle: foreign},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, handle.ErrStale)
}

func TestHandlesScopedToConnection(t *testing.T) {
	fs := memfs.New(memfs.Options{StoreName: "shared", TotalSpace: 1 << 20})
	serverTable := handle.NewTable()
	a := newLoopbackWithTable(t, fs, serverTable)
	b := newLoopbackWithTable(t, fs, serverTable)
	ctx := t.Context()

	store, err := a.client.GetFileStore(ctx, vfs.Root)
	require.NoError(t, err)
	h := store.(*FileStore).Handle()

	// Same server endpoint, but the handle was issued to a's connection.
	stolen := &FileStore{conn: b.client.conn, h: h, name: "shared"}

	_, err = stolen.TotalSpace(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, handle.ErrStale)

	err = b.client.conn.release(ctx, h)
	require.Error(t, err)
	assert.ErrorIs(t, err, handle.ErrStale)

	total, err := store.TotalSpace(ctx)
	require.NoError(t, err, "b must not be able to release a's handle")
	assert.EqualValues(t, 1<<20, total)
	assert.Equal(t, 1, serverTable.Len())

	// Disconnecting b leaves a's handles alone.
	require.NoError(t, b.client.Close())
	<-b.server.Done()
	assert.Equal(t, 1, serverTable.Len())
}

func TestMalformedArguments(t *testing.T) {
	lb, _ := newMemLoopback(t)

	_, err := lb.client.conn.call(t.Context(), rfs.ProcIsHidden, &rfs.PathArgs{
		Path: rfs.Value{Kind: rfs.ValueInt64, Int: 7},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestServer(t *testing.T) {
	fs := memfs.New(memfs.Options{})
	require.NoError(t, fs.WriteFile("/hello", []byte("world"), 0o644))

	srv := NewServer(fs, ServerConfig{
		ShutdownTimeout: time.Second,
		Conn:            Options{Table: handle.NewTable()},
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ServeListener(ctx, l) }()

	client, err := Dial(t.Context(), "tcp", srv.Addr().String(), Options{Table: handle.NewTable()})
	require.NoError(t, err)
	assert.Equal(t, Software, client.ServerSoftware)

	entries, err := client.ListDirectory(t.Context(), vfs.Root, nil)
	require.NoError(t, err)
	assert.Equal(t, []vfs.Path{"/hello"}, entries)
	assert.EqualValues(t, 1, srv.ActiveConnections())

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 0 },
		5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerForcedShutdown(t *testing.T) {
	srv := NewServer(memfs.New(memfs.Options{}), ServerConfig{
		ShutdownTimeout: 50 * time.Millisecond,
		Conn:            Options{Table: handle.NewTable()},
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ServeListener(ctx, l) }()

	client, err := Dial(t.Context(), "tcp", srv.Addr().String(), Options{Table: handle.NewTable()})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	cancel()
	select {
	case err := <-serveErr:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "force-closed")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	select {
	case <-client.Conn().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not notice the closed connection")
	}
	assert.ErrorIs(t, client.Ping(t.Context()), ErrTransport)
}
