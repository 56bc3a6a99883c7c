// Package memfs is an in-memory vfs.Provider. It backs tests and the
// "memory" provider type of rfsd.
package memfs

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/remotefs/pkg/vfs"
)

// maxSymlinkDepth bounds link resolution, matching the usual SYMLOOP_MAX.
const maxSymlinkDepth = 40

// Options configures a new in-memory filesystem.
type Options struct {
	// StoreName is reported by the file store. Default: "memfs".
	StoreName string

	// TotalSpace is the capacity of the file store in bytes. Default: 1GiB.
	TotalSpace int64

	// ReadOnly rejects every mutation with vfs.ErrReadOnly.
	ReadOnly bool

	// UID and GID own every object created through the provider.
	UID, GID uint32
}

type node struct {
	id       uint64
	typ      vfs.FileType
	perm     fs.FileMode
	uid, gid uint32
	nlink    int

	data     []byte
	target   vfs.Path
	children map[string]*node

	mtime, atime, ctime, btime time.Time
}

// FS is an in-memory filesystem. The zero value is not usable; call New.
type FS struct {
	mu       sync.RWMutex
	root     *node
	nextID   uint64
	used     int64
	readOnly bool
	uid, gid uint32
	store    *Store

	// now is swapped by tests that need stable timestamps.
	now func() time.Time
}

var _ vfs.Provider = (*FS)(nil)

// New creates an empty filesystem containing only the root directory.
func New(opts Options) *FS {
	if opts.StoreName == "" {
		opts.StoreName = "memfs"
	}
	if opts.TotalSpace == 0 {
		opts.TotalSpace = 1 << 30
	}

	f := &FS{
		readOnly: opts.ReadOnly,
		uid:      opts.UID,
		gid:      opts.GID,
		now:      time.Now,
	}
	f.root = f.newNode(vfs.TypeDirectory, 0o755)
	f.store = &Store{fs: f, name: opts.StoreName, readOnly: opts.ReadOnly, total: opts.TotalSpace}
	return f
}

// newNode allocates a node. Callers hold mu (or own f exclusively).
func (f *FS) newNode(typ vfs.FileType, perm fs.FileMode) *node {
	f.nextID++
	t := f.now()
	n := &node{
		id:    f.nextID,
		typ:   typ,
		perm:  perm,
		uid:   f.uid,
		gid:   f.gid,
		nlink: 1,
		mtime: t, atime: t, ctime: t, btime: t,
	}
	if typ == vfs.TypeDirectory {
		n.children = make(map[string]*node)
		n.nlink = 2
	}
	return n
}

// lookup resolves p. Symbolic links in intermediate components are always
// followed; the last component is followed only when follow is set.
func (f *FS) lookup(p vfs.Path, follow bool) (*node, error) {
	return f.walk(p, follow, 0)
}

func (f *FS) walk(p vfs.Path, follow bool, depth int) (*node, error) {
	elems := p.Elements()
	cur := f.root
	curPath := vfs.Root

	for i, name := range elems {
		if cur.typ != vfs.TypeDirectory {
			return nil, vfs.NewNotDirectoryError(curPath.String())
		}
		next, ok := cur.children[name]
		if !ok {
			return nil, vfs.NewNotFoundError(p.String())
		}
		nextPath := curPath.Join(name)

		last := i == len(elems)-1
		if next.typ == vfs.TypeSymlink && (!last || follow) {
			if depth >= maxSymlinkDepth {
				return nil, vfs.NewError(vfs.ErrLoop, p.String(), "too many levels of symbolic links")
			}
			resolved, err := f.walk(nextPath.Resolve(next.target), true, depth+1)
			if err != nil {
				if vfs.IsNotFound(err) {
					return nil, vfs.NewNotFoundError(p.String())
				}
				return nil, err
			}
			next = resolved
		}

		cur = next
		curPath = nextPath
	}
	return cur, nil
}

// parent resolves the directory that contains p and returns it with p's name.
func (f *FS) parent(p vfs.Path) (*node, string, error) {
	if p == vfs.Root {
		return nil, "", vfs.NewError(vfs.ErrInvalidArgument, p.String(), "operation not permitted on root")
	}
	dir, err := f.lookup(p.Parent(), true)
	if err != nil {
		return nil, "", err
	}
	if dir.typ != vfs.TypeDirectory {
		return nil, "", vfs.NewNotDirectoryError(p.Parent().String())
	}
	return dir, p.Name(), nil
}

func (f *FS) checkWritable(p vfs.Path) error {
	if f.readOnly {
		return vfs.NewReadOnlyError(p.String())
	}
	return nil
}

func (f *FS) touch(n *node) {
	t := f.now()
	n.mtime, n.ctime = t, t
}

// NewDirectoryStream snapshots the entries of dir in name order.
func (f *FS) NewDirectoryStream(ctx context.Context, dir vfs.Path, filter vfs.Filter) (vfs.DirectoryStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n, err := f.lookup(dir, true)
	if err != nil {
		return nil, err
	}
	if n.typ != vfs.TypeDirectory {
		return nil, vfs.NewNotDirectoryError(dir.String())
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]vfs.Path, len(names))
	for i, name := range names {
		entries[i] = dir.Join(name)
	}
	return vfs.NewFilteredStream(vfs.NewSliceStream(entries), filter), nil
}

// CreateDirectory creates dir. The only supported attribute is
// posix:permissions (default 0755).
func (f *FS) CreateDirectory(ctx context.Context, dir vfs.Path, attrs ...vfs.FileAttribute) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm, err := vfs.PermissionsFrom(dir.String(), attrs, 0o755)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(dir); err != nil {
		return err
	}
	parent, name, err := f.parent(dir)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return vfs.NewAlreadyExistsError(dir.String())
	}

	parent.children[name] = f.newNode(vfs.TypeDirectory, perm)
	parent.nlink++
	f.touch(parent)
	return nil
}

// CreateSymbolicLink stores target verbatim at link.
func (f *FS) CreateSymbolicLink(ctx context.Context, link, target vfs.Path, attrs ...vfs.FileAttribute) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := vfs.PermissionsFrom(link.String(), attrs, 0o777); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(link); err != nil {
		return err
	}
	parent, name, err := f.parent(link)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return vfs.NewAlreadyExistsError(link.String())
	}

	n := f.newNode(vfs.TypeSymlink, 0o777)
	n.target = target
	parent.children[name] = n
	f.touch(parent)
	return nil
}

// CreateLink adds a hard link to existing. Directories cannot be linked.
func (f *FS) CreateLink(ctx context.Context, link, existing vfs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(link); err != nil {
		return err
	}
	target, err := f.lookup(existing, false)
	if err != nil {
		return err
	}
	if target.typ == vfs.TypeDirectory {
		return vfs.NewLinkError(vfs.ErrIsDirectory, link.String(), existing.String(), "hard link to directory not allowed")
	}
	parent, name, err := f.parent(link)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return vfs.NewAlreadyExistsError(link.String())
	}

	parent.children[name] = target
	target.nlink++
	target.ctime = f.now()
	f.touch(parent)
	return nil
}

// Delete removes p. Directories must be empty.
func (f *FS) Delete(ctx context.Context, p vfs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteLocked(p)
}

// DeleteIfExists removes p, reporting false if it did not exist.
func (f *FS) DeleteIfExists(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.deleteLocked(p)
	if vfs.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (f *FS) deleteLocked(p vfs.Path) error {
	if err := f.checkWritable(p); err != nil {
		return err
	}
	parent, name, err := f.parent(p)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return vfs.NewNotFoundError(p.String())
	}
	if n.typ == vfs.TypeDirectory {
		if len(n.children) > 0 {
			return vfs.NewDirectoryNotEmptyError(p.String())
		}
		parent.nlink--
	}

	delete(parent.children, name)
	n.nlink--
	if n.nlink <= 0 || n.typ == vfs.TypeDirectory {
		f.used -= int64(len(n.data))
	}
	f.touch(parent)
	return nil
}

// ReadSymbolicLink returns the target stored at link.
func (f *FS) ReadSymbolicLink(ctx context.Context, link vfs.Path) (vfs.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n, err := f.lookup(link, false)
	if err != nil {
		return "", err
	}
	if n.typ != vfs.TypeSymlink {
		return "", vfs.NewNotLinkError(link.String())
	}
	return n.target, nil
}

// IsSameFile reports whether p and p2 locate the same object. Equal paths
// are the same file without being resolved.
func (f *FS) IsSameFile(ctx context.Context, p, p2 vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p == p2 {
		return true, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	a, err := f.lookup(p, true)
	if err != nil {
		return false, err
	}
	b, err := f.lookup(p2, true)
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// IsHidden reports whether the name of p starts with a dot.
func (f *FS) IsHidden(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := vfs.NoDotFiles().Accept(ctx, p)
	return !ok, err
}

// GetFileStore returns the single store backing the filesystem.
func (f *FS) GetFileStore(ctx context.Context, p vfs.Path) (vfs.FileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, err := f.lookup(p, true); err != nil {
		return nil, err
	}
	return f.store, nil
}

// CheckAccess evaluates modes against the owner permission bits.
func (f *FS) CheckAccess(ctx context.Context, p vfs.Path, modes ...vfs.AccessMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n, err := f.lookup(p, true)
	if err != nil {
		return err
	}

	owner := n.perm.Perm() >> 6
	for _, m := range modes {
		var bit fs.FileMode
		switch m {
		case vfs.AccessRead:
			bit = 0o4
		case vfs.AccessWrite:
			if f.readOnly {
				return vfs.NewReadOnlyError(p.String())
			}
			bit = 0o2
		case vfs.AccessExecute:
			bit = 0o1
		default:
			return vfs.NewError(vfs.ErrInvalidArgument, p.String(), fmt.Sprintf("unknown access mode %d", m))
		}
		if owner&bit == 0 {
			return vfs.NewAccessDeniedError(p.String())
		}
	}
	return nil
}

// ReadAttributes returns basic or POSIX attributes of p.
func (f *FS) ReadAttributes(ctx context.Context, p vfs.Path, kind vfs.AttributeKind, opts ...vfs.LinkOption) (vfs.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n, err := f.lookup(p, vfs.FollowLinks(opts...))
	if err != nil {
		return nil, err
	}

	size := int64(len(n.data))
	switch n.typ {
	case vfs.TypeSymlink:
		size = int64(len(n.target))
	case vfs.TypeDirectory:
		size = int64(len(n.children))
	}

	full := &vfs.PosixAttributes{
		BasicAttributes: vfs.BasicAttributes{
			Type:             n.typ,
			Size:             size,
			LastModifiedTime: n.mtime,
			LastAccessTime:   n.atime,
			CreationTime:     n.btime,
			FileKey:          fmt.Sprintf("mem:%d", n.id),
		},
		Owner:       fmt.Sprint(n.uid),
		Group:       fmt.Sprint(n.gid),
		UID:         n.uid,
		GID:         n.gid,
		Permissions: n.perm.Perm(),
	}
	attrs, err := vfs.AttributesOfKind(full, kind)
	if ve, ok := vfs.AsError(err); ok {
		ve.Path = p.String()
	}
	return attrs, err
}
