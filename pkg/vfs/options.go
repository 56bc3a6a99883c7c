package vfs

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// AccessMode is a permission checked by CheckAccess. Modes are bit flags so
// a set of them travels as one word.
type AccessMode uint32

const (
	AccessRead    AccessMode = 1 << 0
	AccessWrite   AccessMode = 1 << 1
	AccessExecute AccessMode = 1 << 2

	accessAll = AccessRead | AccessWrite | AccessExecute
)

// String returns "read", "write" or "execute".
func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	default:
		return fmt.Sprintf("access(%d)", uint32(m))
	}
}

// AccessMask ORs modes together.
func AccessMask(modes ...AccessMode) uint32 {
	var mask uint32
	for _, m := range modes {
		mask |= uint32(m)
	}
	return mask
}

// AccessModesFromMask is the inverse of AccessMask. Unknown bits are an error.
func AccessModesFromMask(mask uint32) ([]AccessMode, error) {
	if mask&^uint32(accessAll) != 0 {
		return nil, fmt.Errorf("unknown access mode bits 0x%x", mask&^uint32(accessAll))
	}
	var modes []AccessMode
	for _, m := range []AccessMode{AccessRead, AccessWrite, AccessExecute} {
		if mask&uint32(m) != 0 {
			modes = append(modes, m)
		}
	}
	return modes, nil
}

// LinkOption changes how symbolic links are handled.
type LinkOption uint32

// NoFollowLinks makes an operation act on a symbolic link itself.
const NoFollowLinks LinkOption = 1 << 0

// FollowLinks reports whether opts leave link following enabled.
func FollowLinks(opts ...LinkOption) bool {
	for _, o := range opts {
		if o == NoFollowLinks {
			return false
		}
	}
	return true
}

// LinkOptionMask ORs options together.
func LinkOptionMask(opts ...LinkOption) uint32 {
	var mask uint32
	for _, o := range opts {
		mask |= uint32(o)
	}
	return mask
}

// LinkOptionsFromMask is the inverse of LinkOptionMask.
func LinkOptionsFromMask(mask uint32) ([]LinkOption, error) {
	if mask&^uint32(NoFollowLinks) != 0 {
		return nil, fmt.Errorf("unknown link option bits 0x%x", mask&^uint32(NoFollowLinks))
	}
	if mask&uint32(NoFollowLinks) != 0 {
		return []LinkOption{NoFollowLinks}, nil
	}
	return nil, nil
}

// FileAttribute is an attribute applied when creating a file, directory or
// link. Name follows the "view:attribute" convention.
type FileAttribute struct {
	Name  string
	Value string
}

// AttrPosixPermissions is the only creation attribute providers here
// understand; its value is an octal permission string.
const AttrPosixPermissions = "posix:permissions"

// WithPermissions returns a creation attribute setting permission bits.
func WithPermissions(perm fs.FileMode) FileAttribute {
	return FileAttribute{Name: AttrPosixPermissions, Value: fmt.Sprintf("%04o", uint32(perm.Perm()))}
}

// PermissionsFrom extracts the permission bits from attrs, or returns def
// when none is given. Attributes other than posix:permissions are not
// supported.
func PermissionsFrom(path string, attrs []FileAttribute, def fs.FileMode) (fs.FileMode, error) {
	perm := def
	for _, a := range attrs {
		if a.Name != AttrPosixPermissions {
			return 0, NewNotSupportedError(path, fmt.Sprintf("file attribute %q", a.Name))
		}
		v, err := strconv.ParseUint(strings.TrimSpace(a.Value), 8, 32)
		if err != nil || v > 0o7777 {
			return 0, NewError(ErrInvalidArgument, path, fmt.Sprintf("invalid permissions %q", a.Value))
		}
		perm = fs.FileMode(v).Perm()
	}
	return perm, nil
}
