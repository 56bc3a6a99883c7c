package memfs

import (
	"context"
	"io/fs"

	"github.com/marmos91/remotefs/pkg/vfs"
)

// StoreType is reported by Store.Type.
const StoreType = "memory"

// Store is the file store of an FS. Space figures are derived from the bytes
// held by regular files.
type Store struct {
	fs       *FS
	name     string
	readOnly bool
	total    int64
}

var _ vfs.FileStore = (*Store)(nil)

func (s *Store) Name() string     { return s.name }
func (s *Store) Type() string     { return StoreType }
func (s *Store) IsReadOnly() bool { return s.readOnly }

func (s *Store) TotalSpace(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.fs.mu.RLock()
	defer s.fs.mu.RUnlock()
	return s.total, nil
}

func (s *Store) UsableSpace(ctx context.Context) (int64, error) {
	if s.readOnly {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return s.UnallocatedSpace(ctx)
}

func (s *Store) UnallocatedSpace(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.fs.mu.RLock()
	defer s.fs.mu.RUnlock()
	return max(s.total-s.fs.used, 0), nil
}

// SetTotalSpace changes the capacity reported by the store.
func (f *FS) SetTotalSpace(total int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.total = total
}

// WriteFile creates or replaces the regular file at p. It seeds content and
// ignores the read-only flag. Missing parent directories are not created.
func (f *FS) WriteFile(p vfs.Path, data []byte, perm fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent, name, err := f.parent(p)
	if err != nil {
		return err
	}

	if n, ok := parent.children[name]; ok {
		if n.typ != vfs.TypeRegular {
			return vfs.NewError(vfs.ErrIsDirectory, p.String(), "not a regular file")
		}
		grow := int64(len(data) - len(n.data))
		if f.used+grow > f.store.total {
			return vfs.NewError(vfs.ErrNoSpace, p.String(), "no space left on device")
		}
		f.used += grow
		n.data = append([]byte(nil), data...)
		n.perm = perm.Perm()
		f.touch(n)
		return nil
	}

	if f.used+int64(len(data)) > f.store.total {
		return vfs.NewError(vfs.ErrNoSpace, p.String(), "no space left on device")
	}
	n := f.newNode(vfs.TypeRegular, perm.Perm())
	n.data = append([]byte(nil), data...)
	f.used += int64(len(data))
	parent.children[name] = n
	f.touch(parent)
	return nil
}

// Chmod sets the permission bits of p, following symbolic links.
func (f *FS) Chmod(p vfs.Path, perm fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.lookup(p, true)
	if err != nil {
		return err
	}
	n.perm = perm.Perm()
	n.ctime = f.now()
	return nil
}
