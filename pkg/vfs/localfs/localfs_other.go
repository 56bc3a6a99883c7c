//go:build !linux

package localfs

import (
	"github.com/marmos91/remotefs/pkg/vfs"
)

// FS is unavailable on this platform.
type FS struct {
	vfs.Provider
}

// New always fails: the local provider needs openat2.
func New(root string, _ Options) (*FS, error) {
	return nil, vfs.NewNotSupportedError(root, "local provider on this platform")
}

func (f *FS) Root() string { return "" }

func (f *FS) Close() error { return nil }
