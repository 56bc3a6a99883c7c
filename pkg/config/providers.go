package config

import (
	"fmt"
	"io"

	"github.com/marmos91/remotefs/pkg/vfs"
	"github.com/marmos91/remotefs/pkg/vfs/localfs"
	"github.com/marmos91/remotefs/pkg/vfs/memfs"
)

// CreateProvider builds the filesystem exported by rfsd. The returned
// closer releases whatever the provider holds open and must be called
// after the server has stopped.
func CreateProvider(cfg ProviderConfig) (vfs.Provider, io.Closer, error) {
	switch cfg.Type {
	case "local":
		if cfg.Root == "" {
			return nil, nil, fmt.Errorf("local provider requires root to be set")
		}
		fs, err := localfs.New(cfg.Root, localfs.Options{
			ReadOnly:  cfg.ReadOnly,
			StoreName: cfg.StoreName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local provider: %w", err)
		}
		return fs, fs, nil

	case "memory", "":
		fs := memfs.New(memfs.Options{
			StoreName:  cfg.StoreName,
			TotalSpace: int64(cfg.Capacity),
			ReadOnly:   cfg.ReadOnly,
		})
		return fs, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
