package remote

import (
	"context"
	"errors"
	"io"

	"github.com/marmos91/remotefs/pkg/vfs"
)

// Drain opens dir on provider, reads every entry the filter accepts and
// closes the stream exactly once, whatever happens. The result is never nil
// on success; an empty directory yields an empty batch.
//
// A failure while reading (including a filter error) aborts the drain and
// no partial batch is returned. A close failure after a clean read becomes
// the drain's failure.
func Drain(ctx context.Context, provider vfs.Provider, dir vfs.Path, filter vfs.Filter) (entries []vfs.Path, err error) {
	stream, err := provider.NewDirectoryStream(ctx, dir, filter)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			entries, err = nil, cerr
		}
	}()

	entries = []vfs.Path{}
	for {
		p, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
}
