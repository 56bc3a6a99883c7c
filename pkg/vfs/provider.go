// Package vfs defines the filesystem provider capability that remotefs
// carries across a process boundary.
//
// A Provider is the full set of namespace operations a file manager needs
// besides reading and writing file contents: directory enumeration, link
// and directory creation, deletion, link resolution, identity and hidden
// tests, access checks, attribute reads and file-store lookup. The same
// interface is implemented by concrete providers (memfs, localfs) on the
// hosting side and by the remote proxy on the client side, so callers do
// not know which one they hold.
//
// Failures that belong to the filesystem are returned as *Error.
package vfs

import "context"

// Provider is the filesystem provider capability. Implementations must be
// safe for concurrent use.
type Provider interface {
	// NewDirectoryStream opens dir for enumeration. Entries are full paths
	// (dir joined with the entry name) and are passed through filter in
	// stream order.
	NewDirectoryStream(ctx context.Context, dir Path, filter Filter) (DirectoryStream, error)

	CreateDirectory(ctx context.Context, dir Path, attrs ...FileAttribute) error
	CreateSymbolicLink(ctx context.Context, link, target Path, attrs ...FileAttribute) error

	// CreateLink creates a hard link at link referring to existing.
	CreateLink(ctx context.Context, link, existing Path) error

	// Delete removes a file, an empty directory or a link (not its target).
	Delete(ctx context.Context, p Path) error

	// DeleteIfExists is Delete that reports false instead of failing when p
	// does not exist.
	DeleteIfExists(ctx context.Context, p Path) (bool, error)

	ReadSymbolicLink(ctx context.Context, link Path) (Path, error)
	IsSameFile(ctx context.Context, p, p2 Path) (bool, error)
	IsHidden(ctx context.Context, p Path) (bool, error)
	GetFileStore(ctx context.Context, p Path) (FileStore, error)

	// CheckAccess succeeds if p exists and every mode is granted. With no
	// modes it only checks existence.
	CheckAccess(ctx context.Context, p Path, modes ...AccessMode) error

	ReadAttributes(ctx context.Context, p Path, kind AttributeKind, opts ...LinkOption) (Attributes, error)
}

// FileStore describes the storage a file lives on. Name, Type and
// IsReadOnly are stable; the space figures change over time.
type FileStore interface {
	Name() string
	Type() string
	IsReadOnly() bool

	TotalSpace(ctx context.Context) (int64, error)
	UsableSpace(ctx context.Context) (int64, error)
	UnallocatedSpace(ctx context.Context) (int64, error)
}
