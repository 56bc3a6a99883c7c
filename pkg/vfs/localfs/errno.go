//go:build linux

package localfs

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/marmos91/remotefs/pkg/vfs"
)

var errnoCodes = map[unix.Errno]vfs.ErrorCode{
	unix.ENOENT:       vfs.ErrNotFound,
	unix.EEXIST:       vfs.ErrAlreadyExists,
	unix.ENOTEMPTY:    vfs.ErrDirectoryNotEmpty,
	unix.ENOTDIR:      vfs.ErrNotDirectory,
	unix.EISDIR:       vfs.ErrIsDirectory,
	unix.EACCES:       vfs.ErrAccessDenied,
	unix.EPERM:        vfs.ErrAccessDenied,
	unix.ELOOP:        vfs.ErrLoop,
	unix.EROFS:        vfs.ErrReadOnly,
	unix.ENOSPC:       vfs.ErrNoSpace,
	unix.EDQUOT:       vfs.ErrNoSpace,
	unix.ENAMETOOLONG: vfs.ErrNameTooLong,
	unix.EXDEV:        vfs.ErrCrossDevice,
	unix.EINVAL:       vfs.ErrInvalidArgument,
	unix.ENOTSUP:      vfs.ErrNotSupported,
	unix.ENOSYS:       vfs.ErrNotSupported,
}

// mapErrno converts a syscall failure on p into a *vfs.Error. Errors that
// are not errnos are passed through FromError.
func mapErrno(err error, p vfs.Path) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return vfs.FromError(err, p.String())
	}
	code, ok := errnoCodes[errno]
	if !ok {
		code = vfs.ErrIO
	}
	return vfs.NewError(code, p.String(), errno.Error())
}

// mapLinkErrno is mapErrno for two-path operations.
func mapLinkErrno(err error, link, other vfs.Path) error {
	mapped := mapErrno(err, link)
	if e, ok := vfs.AsError(mapped); ok {
		e.OtherPath = other.String()
	}
	return mapped
}
