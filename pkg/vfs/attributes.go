package vfs

import (
	"fmt"
	"io/fs"
	"time"
)

// FileType is the type of a filesystem object.
type FileType uint32

const (
	TypeRegular FileType = iota + 1
	TypeDirectory
	TypeSymlink
	TypeOther
)

// String returns a short name for the file type.
func (t FileType) String() string {
	switch t {
	case TypeRegular:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	case TypeOther:
		return "other"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// AttributeKind selects which attribute record ReadAttributes returns. The
// set is closed and shared by both ends of a remote connection; the numeric
// values are part of the wire format.
type AttributeKind uint32

const (
	AttributeKindBasic AttributeKind = 1
	AttributeKindPosix AttributeKind = 2
)

// Valid reports whether k is a known attribute kind.
func (k AttributeKind) Valid() bool {
	return k == AttributeKindBasic || k == AttributeKindPosix
}

// String returns the kind name.
func (k AttributeKind) String() string {
	switch k {
	case AttributeKindBasic:
		return "basic"
	case AttributeKindPosix:
		return "posix"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// ParseAttributeKind parses "basic" or "posix".
func ParseAttributeKind(s string) (AttributeKind, error) {
	switch s {
	case "basic", "":
		return AttributeKindBasic, nil
	case "posix":
		return AttributeKindPosix, nil
	default:
		return 0, fmt.Errorf("unknown attribute kind %q", s)
	}
}

// Attributes is the result of ReadAttributes. The concrete type is
// *BasicAttributes or *PosixAttributes, matching Kind.
type Attributes interface {
	Kind() AttributeKind
	Basic() *BasicAttributes
}

// BasicAttributes are the attributes every provider supports.
type BasicAttributes struct {
	Type             FileType  `json:"type" yaml:"type"`
	Size             int64     `json:"size" yaml:"size"`
	LastModifiedTime time.Time `json:"last_modified_time" yaml:"last_modified_time"`
	LastAccessTime   time.Time `json:"last_access_time" yaml:"last_access_time"`
	CreationTime     time.Time `json:"creation_time" yaml:"creation_time"`

	// FileKey identifies the underlying object (e.g. "dev:inode"); two paths
	// with the same non-empty key are the same file.
	FileKey string `json:"file_key,omitempty" yaml:"file_key,omitempty"`
}

// Kind implements Attributes.
func (a *BasicAttributes) Kind() AttributeKind { return AttributeKindBasic }

// Basic implements Attributes.
func (a *BasicAttributes) Basic() *BasicAttributes { return a }

func (a *BasicAttributes) IsRegularFile() bool { return a.Type == TypeRegular }
func (a *BasicAttributes) IsDirectory() bool { return a.Type == TypeDirectory }
func (a *BasicAttributes) IsSymbolicLink() bool { return a.Type == TypeSymlink }

// PosixAttributes extend BasicAttributes with ownership and permission bits.
type PosixAttributes struct {
	BasicAttributes `yaml:",inline"`

	Owner       string      `json:"owner" yaml:"owner"`
	Group       string      `json:"group" yaml:"group"`
	UID         uint32      `json:"uid" yaml:"uid"`
	GID         uint32      `json:"gid" yaml:"gid"`
	Permissions fs.FileMode `json:"permissions" yaml:"permissions"`
}

// Kind implements Attributes.
func (a *PosixAttributes) Kind() AttributeKind { return AttributeKindPosix }

// Basic implements Attributes.
func (a *PosixAttributes) Basic() *BasicAttributes { return &a.BasicAttributes }

// AttributesOfKind narrows a full PosixAttributes record down to what kind
// asks for. Providers that always compute the POSIX record use it to answer
// basic requests.
func AttributesOfKind(full *PosixAttributes, kind AttributeKind) (Attributes, error) {
	switch kind {
	case AttributeKindBasic:
		b := full.BasicAttributes
		return &b, nil
	case AttributeKindPosix:
		return full, nil
	default:
		return nil, NewError(ErrNotSupported, "", fmt.Sprintf("attribute kind %d not supported", uint32(kind)))
	}
}
