// Package localfs serves a host directory as a vfs.Provider. It is Linux
// only: confinement to the root relies on openat2(2).
package localfs

// Options configures a local provider.
type Options struct {
	// ReadOnly rejects every mutation with vfs.ErrReadOnly, even when the
	// host filesystem is writable.
	ReadOnly bool

	// StoreName is reported by the file store. Default: the root path.
	StoreName string
}
