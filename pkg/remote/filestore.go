package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// FileStore is the client-side proxy of a file store living in the server.
// Name, Type and IsReadOnly come from the snapshot taken by GET_FILE_STORE
// and never touch the connection. Each space query is one FILE_STORE_SPACE
// call; a dead connection surfaces as a *TransportError.
type FileStore struct {
	conn     *Conn
	h        handle.Handle
	name     string
	typ      string
	readOnly bool

	closeOnce sync.Once
	closeErr  error
}

var _ vfs.FileStore = (*FileStore)(nil)

func newFileStore(conn *Conn, res *rfs.FileStoreRes) *FileStore {
	return &FileStore{
		conn:     conn,
		h:        res.Store.Handle(),
		name:     res.Name,
		typ:      res.Type,
		readOnly: res.ReadOnly,
	}
}

func (s *FileStore) Name() string     { return s.name }
func (s *FileStore) Type() string     { return s.typ }
func (s *FileStore) IsReadOnly() bool { return s.readOnly }

// Handle returns the server-side handle of the store.
func (s *FileStore) Handle() handle.Handle { return s.h }

func (s *FileStore) TotalSpace(ctx context.Context) (int64, error) {
	return s.space(ctx, rfs.SpaceTotal)
}

func (s *FileStore) UsableSpace(ctx context.Context) (int64, error) {
	return s.space(ctx, rfs.SpaceUsable)
}

func (s *FileStore) UnallocatedSpace(ctx context.Context) (int64, error) {
	return s.space(ctx, rfs.SpaceUnallocated)
}

func (s *FileStore) space(ctx context.Context, which uint32) (int64, error) {
	result, err := s.conn.call(ctx, rfs.ProcFileStoreSpace, &flatArgs{v: &rfs.FileStoreSpaceArgs{
		Store: rfs.ToWire(s.h),
		Which: which,
	}}, telemetry.StoreName(s.name), telemetry.Handle(s.h.String()))
	if err != nil {
		return 0, err
	}

	var res rfs.SpaceRes
	if err := rfs.UnmarshalFlat(result, &res); err != nil {
		return 0, transportError("FILE_STORE_SPACE", fmt.Errorf("malformed result: %w", err))
	}
	return res.Bytes, nil
}

// Close releases the store on the server. Later space queries fail with a
// stale handle error. Calling Close again returns the first result.
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.release(context.Background(), s.h)
	})
	return s.closeErr
}
