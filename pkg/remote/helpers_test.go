package remote

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
	"github.com/marmos91/remotefs/pkg/vfs/memfs"
)

// loopback is a client and a serving connection joined by an in-memory
// pipe. Each side has its own handle table, as two processes would.
type loopback struct {
	client      *Client
	server      *Conn
	clientTable *handle.Table
	serverTable *handle.Table
}

func newLoopback(t *testing.T, provider vfs.Provider) *loopback {
	t.Helper()
	return newLoopbackWithTable(t, provider, handle.NewTable())
}

// newLoopbackWithTable serves provider from serverTable, so several
// loopbacks can share one server process.
func newLoopbackWithTable(t *testing.T, provider vfs.Provider, serverTable *handle.Table) *loopback {
	t.Helper()

	cnc, snc := net.Pipe()
	lb := &loopback{
		clientTable: handle.NewTable(),
		serverTable: serverTable,
	}
	lb.server = newConn(snc, provider, Options{Table: lb.serverTable})

	client, err := NewClient(context.Background(), cnc, Options{Table: lb.clientTable})
	require.NoError(t, err)
	lb.client = client

	t.Cleanup(func() {
		_ = lb.client.Close()
		_ = lb.server.Close()
	})
	return lb
}

func newMemLoopback(t *testing.T) (*loopback, *memfs.FS) {
	t.Helper()
	fs := memfs.New(memfs.Options{})
	return newLoopback(t, fs), fs
}

// countingStore counts space queries reaching the real store.
type countingStore struct {
	vfs.FileStore
	calls *atomic.Int32
}

func (s *countingStore) TotalSpace(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.FileStore.TotalSpace(ctx)
}

func (s *countingStore) UsableSpace(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.FileStore.UsableSpace(ctx)
}

func (s *countingStore) UnallocatedSpace(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.FileStore.UnallocatedSpace(ctx)
}

// storeCountingFS hands out counting stores.
type storeCountingFS struct {
	*memfs.FS
	spaceCalls atomic.Int32
}

func (f *storeCountingFS) GetFileStore(ctx context.Context, p vfs.Path) (vfs.FileStore, error) {
	store, err := f.FS.GetFileStore(ctx, p)
	if err != nil {
		return nil, err
	}
	return &countingStore{FileStore: store, calls: &f.spaceCalls}, nil
}

// blockingFS holds IsHidden until release is closed.
type blockingFS struct {
	*memfs.FS
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingFS() *blockingFS {
	return &blockingFS{
		FS:      memfs.New(memfs.Options{}),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingFS) IsHidden(ctx context.Context, p vfs.Path) (bool, error) {
	f.once.Do(func() { close(f.entered) })
	<-f.release
	return f.FS.IsHidden(ctx, p)
}

// countingStream counts Close calls and can fail at a given entry.
type countingStream struct {
	entries  []vfs.Path
	failAt   int
	failErr  error
	closeErr error
	pos      int
	closes   atomic.Int32
}

func (s *countingStream) Next(context.Context) (vfs.Path, error) {
	if s.failErr != nil && s.pos == s.failAt {
		return "", s.failErr
	}
	if s.pos >= len(s.entries) {
		return "", io.EOF
	}
	p := s.entries[s.pos]
	s.pos++
	return p, nil
}

func (s *countingStream) Close() error {
	s.closes.Add(1)
	return s.closeErr
}

// streamFS serves a fixed stream for every directory.
type streamFS struct {
	vfs.Provider
	stream  *countingStream
	openErr error
}

func (f *streamFS) NewDirectoryStream(context.Context, vfs.Path, vfs.Filter) (vfs.DirectoryStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}
