//go:build linux

package localfs

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/marmos91/remotefs/pkg/vfs"
)

// Filesystem magic numbers from statfs(2) for the types commonly seen
// under a served root.
var fsTypeNames = map[uint32]string{
	0xEF53:     "ext4",
	0x01021994: "tmpfs",
	0x58465342: "xfs",
	0x9123683E: "btrfs",
	0x794C7630: "overlay",
	0x6969:     "nfs",
	0x2FC12FC1: "zfs",
	0x65735546: "fuse",
	0x9FA0:     "proc",
}

// Store reports statfs(2) figures for the filesystem holding the root.
// Name, Type and the read-only flag are sampled once at open.
type Store struct {
	fs       *FS
	name     string
	fsType   string
	readOnly bool
}

var _ vfs.FileStore = (*Store)(nil)

func newStore(f *FS, name string) *Store {
	s := &Store{fs: f, name: name, fsType: "unknown", readOnly: f.readOnly}
	if s.name == "" {
		s.name = f.root
	}

	var st unix.Statfs_t
	if err := unix.Fstatfs(f.rootFd, &st); err == nil {
		magic := uint32(st.Type)
		if n, ok := fsTypeNames[magic]; ok {
			s.fsType = n
		} else {
			s.fsType = fmt.Sprintf("0x%x", magic)
		}
		if int64(st.Flags)&unix.ST_RDONLY != 0 {
			s.readOnly = true
		}
	}
	return s
}

func (s *Store) Name() string     { return s.name }
func (s *Store) Type() string     { return s.fsType }
func (s *Store) IsReadOnly() bool { return s.readOnly }

func (s *Store) TotalSpace(ctx context.Context) (int64, error) {
	st, err := s.statfs(ctx)
	if err != nil {
		return 0, err
	}
	return int64(st.Blocks) * int64(st.Bsize), nil
}

func (s *Store) UsableSpace(ctx context.Context) (int64, error) {
	st, err := s.statfs(ctx)
	if err != nil {
		return 0, err
	}
	if s.readOnly {
		return 0, nil
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

func (s *Store) UnallocatedSpace(ctx context.Context) (int64, error) {
	st, err := s.statfs(ctx)
	if err != nil {
		return 0, err
	}
	return int64(st.Bfree) * int64(st.Bsize), nil
}

func (s *Store) statfs(ctx context.Context) (*unix.Statfs_t, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var st unix.Statfs_t
	if err := unix.Fstatfs(s.fs.rootFd, &st); err != nil {
		return nil, mapErrno(err, vfs.Root)
	}
	return &st, nil
}
