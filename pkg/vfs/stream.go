package vfs

import (
	"context"
	"io"
	"sync"
)

// DirectoryStream is a lazily produced, closeable sequence of directory
// entries. Next returns io.EOF after the last entry. A stream is consumed by
// one goroutine; Close may be called more than once and only the first call
// releases resources.
type DirectoryStream interface {
	Next(ctx context.Context) (Path, error)
	Close() error
}

// NewSliceStream returns a stream over a fixed list of entries.
func NewSliceStream(entries []Path) DirectoryStream {
	return &sliceStream{entries: entries}
}

type sliceStream struct {
	entries []Path
	pos     int
	closed  bool
}

func (s *sliceStream) Next(context.Context) (Path, error) {
	if s.closed {
		return "", NewError(ErrIO, "", "directory stream is closed")
	}
	if s.pos >= len(s.entries) {
		return "", io.EOF
	}
	p := s.entries[s.pos]
	s.pos++
	return p, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// NewFilteredStream wraps inner so that only entries accepted by filter are
// returned. A nil filter accepts everything. Closing the filtered stream
// closes inner exactly once.
func NewFilteredStream(inner DirectoryStream, filter Filter) DirectoryStream {
	if filter == nil {
		filter = AcceptAll()
	}
	return &filteredStream{inner: inner, filter: filter}
}

type filteredStream struct {
	inner  DirectoryStream
	filter Filter

	closeOnce sync.Once
	closeErr  error
}

func (s *filteredStream) Next(ctx context.Context) (Path, error) {
	for {
		p, err := s.inner.Next(ctx)
		if err != nil {
			return "", err
		}
		ok, err := s.filter.Accept(ctx, p)
		if err != nil {
			return "", err
		}
		if ok {
			return p, nil
		}
	}
}

func (s *filteredStream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.inner.Close() })
	return s.closeErr
}
