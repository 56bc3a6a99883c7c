//go:build linux

package localfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/remotefs/pkg/vfs"
)

// FS is a vfs.Provider over a host directory. Every path, including the
// targets of symbolic links, is resolved inside the root with
// openat2(RESOLVE_IN_ROOT), so an absolute link target names a file under
// the root and ".." never climbs above it.
type FS struct {
	root     string
	rootFd   int
	readOnly bool
	store    *Store
}

var _ vfs.Provider = (*FS)(nil)

// New opens root as a provider. The directory must exist. The caller must
// Close the FS to release the root descriptor.
func New(root string, opts Options) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	fd, err := unix.Open(abs, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open root %q: %w", abs, mapErrno(err, vfs.Root))
	}

	// Probe openat2 once so an old kernel fails here rather than on every call.
	probe, err := unix.Openat2(fd, ".", &unix.OpenHow{Flags: unix.O_PATH | unix.O_CLOEXEC, Resolve: unix.RESOLVE_IN_ROOT})
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("openat2 unavailable: %w", mapErrno(err, vfs.Root))
	}
	_ = unix.Close(probe)

	f := &FS{root: abs, rootFd: fd, readOnly: opts.ReadOnly}
	f.store = newStore(f, opts.StoreName)
	return f, nil
}

// Root returns the host directory backing the provider.
func (f *FS) Root() string { return f.root }

// Close releases the root descriptor.
func (f *FS) Close() error {
	return unix.Close(f.rootFd)
}

func relative(p vfs.Path) string {
	rel := strings.TrimPrefix(vfs.NewPath(string(p)).String(), "/")
	if rel == "" {
		return "."
	}
	return rel
}

// open resolves p inside the root. O_CLOEXEC is always added.
func (f *FS) open(p vfs.Path, flags int) (int, error) {
	how := &unix.OpenHow{
		Flags:   uint64(flags | unix.O_CLOEXEC),
		Resolve: unix.RESOLVE_IN_ROOT | unix.RESOLVE_NO_MAGICLINKS,
	}
	for {
		fd, err := unix.Openat2(f.rootFd, relative(p), how)
		// EAGAIN is returned when a concurrent rename raced the lookup.
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return -1, mapErrno(err, p)
		}
		return fd, nil
	}
}

// parent opens the directory containing p and returns it with p's name.
func (f *FS) parent(p vfs.Path) (int, string, error) {
	p = vfs.NewPath(string(p))
	if p == vfs.Root {
		return -1, "", vfs.NewError(vfs.ErrInvalidArgument, p.String(), "operation not permitted on root")
	}
	fd, err := f.open(p.Parent(), unix.O_PATH|unix.O_DIRECTORY)
	if err != nil {
		return -1, "", err
	}
	return fd, p.Name(), nil
}

func (f *FS) checkWritable(p vfs.Path) error {
	if f.readOnly {
		return vfs.NewReadOnlyError(p.String())
	}
	return nil
}

// NewDirectoryStream reads the names of dir and returns them in name order.
func (f *FS) NewDirectoryStream(ctx context.Context, dir vfs.Path, filter vfs.Filter) (vfs.DirectoryStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fd, err := f.open(dir, unix.O_RDONLY|unix.O_DIRECTORY)
	if err != nil {
		return nil, err
	}
	d := os.NewFile(uintptr(fd), filepath.Join(f.root, relative(dir)))
	names, err := d.Readdirnames(-1)
	_ = d.Close()
	if err != nil {
		return nil, mapErrno(err, dir)
	}
	sort.Strings(names)

	entries := make([]vfs.Path, len(names))
	for i, name := range names {
		entries[i] = dir.Join(name)
	}
	return vfs.NewFilteredStream(vfs.NewSliceStream(entries), filter), nil
}

// CreateDirectory creates dir with the requested permissions, unaffected by
// the process umask.
func (f *FS) CreateDirectory(ctx context.Context, dir vfs.Path, attrs ...vfs.FileAttribute) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm, err := vfs.PermissionsFrom(dir.String(), attrs, 0o755)
	if err != nil {
		return err
	}
	if err := f.checkWritable(dir); err != nil {
		return err
	}

	dirfd, name, err := f.parent(dir)
	if err != nil {
		return err
	}
	defer unix.Close(dirfd)

	if err := unix.Mkdirat(dirfd, name, uint32(perm)); err != nil {
		return mapErrno(err, dir)
	}
	return mapErrno(unix.Fchmodat(dirfd, name, uint32(perm), 0), dir)
}

// CreateSymbolicLink stores target verbatim. Link permissions are not
// settable on Linux, so posix:permissions is validated and ignored.
func (f *FS) CreateSymbolicLink(ctx context.Context, link, target vfs.Path, attrs ...vfs.FileAttribute) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := vfs.PermissionsFrom(link.String(), attrs, 0o777); err != nil {
		return err
	}
	if err := f.checkWritable(link); err != nil {
		return err
	}

	dirfd, name, err := f.parent(link)
	if err != nil {
		return err
	}
	defer unix.Close(dirfd)

	return mapLinkErrno(unix.Symlinkat(target.String(), dirfd, name), link, target)
}

// CreateLink adds a hard link to existing without following it.
func (f *FS) CreateLink(ctx context.Context, link, existing vfs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.checkWritable(link); err != nil {
		return err
	}

	edir, ename, err := f.parent(existing)
	if err != nil {
		return err
	}
	defer unix.Close(edir)

	var st unix.Stat_t
	if err := unix.Fstatat(edir, ename, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return mapErrno(err, existing)
	}
	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		return vfs.NewLinkError(vfs.ErrIsDirectory, link.String(), existing.String(), "hard link to directory not allowed")
	}

	ldir, lname, err := f.parent(link)
	if err != nil {
		return err
	}
	defer unix.Close(ldir)

	return mapLinkErrno(unix.Linkat(edir, ename, ldir, lname, 0), link, existing)
}

// Delete removes a file, link or empty directory.
func (f *FS) Delete(ctx context.Context, p vfs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.checkWritable(p); err != nil {
		return err
	}

	dirfd, name, err := f.parent(p)
	if err != nil {
		return err
	}
	defer unix.Close(dirfd)

	var st unix.Stat_t
	if err := unix.Fstatat(dirfd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return mapErrno(err, p)
	}
	flags := 0
	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		flags = unix.AT_REMOVEDIR
	}

	err = unix.Unlinkat(dirfd, name, flags)
	if err == unix.EEXIST {
		err = unix.ENOTEMPTY
	}
	return mapErrno(err, p)
}

// DeleteIfExists removes p, reporting false if it did not exist.
func (f *FS) DeleteIfExists(ctx context.Context, p vfs.Path) (bool, error) {
	err := f.Delete(ctx, p)
	if vfs.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// ReadSymbolicLink returns the stored target of link.
func (f *FS) ReadSymbolicLink(ctx context.Context, link vfs.Path) (vfs.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dirfd, name, err := f.parent(link)
	if err != nil {
		return "", err
	}
	defer unix.Close(dirfd)

	for size := 256; ; size *= 2 {
		buf := make([]byte, size)
		n, err := unix.Readlinkat(dirfd, name, buf)
		if err == unix.EINVAL {
			return "", vfs.NewNotLinkError(link.String())
		}
		if err != nil {
			return "", mapErrno(err, link)
		}
		if n < size {
			return vfs.Path(buf[:n]), nil
		}
	}
}

// IsSameFile compares device and inode after following links.
func (f *FS) IsSameFile(ctx context.Context, p, p2 vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p == p2 {
		return true, nil
	}

	a, err := f.stat(p, true)
	if err != nil {
		return false, err
	}
	b, err := f.stat(p2, true)
	if err != nil {
		return false, err
	}
	return a.Dev_major == b.Dev_major && a.Dev_minor == b.Dev_minor && a.Ino == b.Ino, nil
}

// IsHidden reports whether the name of p starts with a dot.
func (f *FS) IsHidden(ctx context.Context, p vfs.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := vfs.NoDotFiles().Accept(ctx, p)
	return !ok, err
}

// GetFileStore returns the store of the root. Mount points below the root
// are not distinguished.
func (f *FS) GetFileStore(ctx context.Context, p vfs.Path) (vfs.FileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fd, err := f.open(p, unix.O_PATH)
	if err != nil {
		return nil, err
	}
	_ = unix.Close(fd)
	return f.store, nil
}

// CheckAccess asks the kernel with faccessat2 on the resolved descriptor.
func (f *FS) CheckAccess(ctx context.Context, p vfs.Path, modes ...vfs.AccessMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fd, err := f.open(p, unix.O_PATH)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	var mode uint32
	for _, m := range modes {
		switch m {
		case vfs.AccessRead:
			mode |= unix.R_OK
		case vfs.AccessWrite:
			if f.readOnly {
				return vfs.NewReadOnlyError(p.String())
			}
			mode |= unix.W_OK
		case vfs.AccessExecute:
			mode |= unix.X_OK
		default:
			return vfs.NewError(vfs.ErrInvalidArgument, p.String(), fmt.Sprintf("unknown access mode %d", m))
		}
	}
	if mode == 0 {
		return nil
	}
	return mapErrno(unix.Faccessat2(fd, "", mode, unix.AT_EMPTY_PATH), p)
}

// ReadAttributes reads statx of p.
func (f *FS) ReadAttributes(ctx context.Context, p vfs.Path, kind vfs.AttributeKind, opts ...vfs.LinkOption) (vfs.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stx, err := f.stat(p, vfs.FollowLinks(opts...))
	if err != nil {
		return nil, err
	}

	full := &vfs.PosixAttributes{
		BasicAttributes: vfs.BasicAttributes{
			Type:             fileType(uint32(stx.Mode)),
			Size:             int64(stx.Size),
			LastModifiedTime: statxTime(stx.Mtime),
			LastAccessTime:   statxTime(stx.Atime),
			CreationTime:     statxTime(stx.Ctime),
			FileKey:          fmt.Sprintf("%x:%x:%x", stx.Dev_major, stx.Dev_minor, stx.Ino),
		},
		Owner:       lookupUser(stx.Uid),
		Group:       lookupGroup(stx.Gid),
		UID:         stx.Uid,
		GID:         stx.Gid,
		Permissions: fs.FileMode(stx.Mode).Perm(),
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		full.CreationTime = statxTime(stx.Btime)
	}

	attrs, err := vfs.AttributesOfKind(full, kind)
	if ve, ok := vfs.AsError(err); ok {
		ve.Path = p.String()
	}
	return attrs, err
}

func (f *FS) stat(p vfs.Path, follow bool) (*unix.Statx_t, error) {
	flags := unix.O_PATH
	if !follow {
		flags |= unix.O_NOFOLLOW
	}
	fd, err := f.open(p, flags)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	var stx unix.Statx_t
	err = unix.Statx(fd, "", unix.AT_EMPTY_PATH|unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BASIC_STATS|unix.STATX_BTIME, &stx)
	if err != nil {
		return nil, mapErrno(err, p)
	}
	return &stx, nil
}

// WriteFile creates or truncates the regular file at p. It seeds content
// and ignores the read-only flag.
func (f *FS) WriteFile(p vfs.Path, data []byte, perm fs.FileMode) error {
	dirfd, name, err := f.parent(p)
	if err != nil {
		return err
	}
	defer unix.Close(dirfd)

	fd, err := unix.Openat(dirfd, name, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_NOFOLLOW|unix.O_CLOEXEC, uint32(perm.Perm()))
	if err != nil {
		return mapErrno(err, p)
	}
	file := os.NewFile(uintptr(fd), filepath.Join(f.root, relative(p)))
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return mapErrno(err, p)
	}
	return mapErrno(file.Chmod(perm.Perm()), p)
}

// Chmod sets the permission bits of the entry at p.
func (f *FS) Chmod(p vfs.Path, perm fs.FileMode) error {
	dirfd, name, err := f.parent(p)
	if err != nil {
		return err
	}
	defer unix.Close(dirfd)

	return mapErrno(unix.Fchmodat(dirfd, name, uint32(perm.Perm()), 0), p)
}

func fileType(mode uint32) vfs.FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return vfs.TypeRegular
	case unix.S_IFDIR:
		return vfs.TypeDirectory
	case unix.S_IFLNK:
		return vfs.TypeSymlink
	default:
		return vfs.TypeOther
	}
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

func lookupUser(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(id); err == nil {
		return u.Username
	}
	return id
}

func lookupGroup(gid uint32) string {
	id := strconv.FormatUint(uint64(gid), 10)
	if g, err := user.LookupGroupId(id); err == nil {
		return g.Name
	}
	return id
}
