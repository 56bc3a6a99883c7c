package vfs

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Filter decides which entries a directory stream yields. Accept is called
// once per entry in stream order; an error aborts the enumeration.
type Filter interface {
	Accept(ctx context.Context, entry Path) (bool, error)
}

// FilterFunc adapts a function to Filter. Function filters carry behaviour,
// not data, so they cross a process boundary by handle.
type FilterFunc func(ctx context.Context, entry Path) (bool, error)

// Accept implements Filter.
func (f FilterFunc) Accept(ctx context.Context, entry Path) (bool, error) {
	return f(ctx, entry)
}

// FilterKind identifies a declarative filter. Declarative filters are pure
// data and cross a process boundary by value.
type FilterKind uint32

const (
	FilterAcceptAll  FilterKind = 1
	FilterNoDotFiles FilterKind = 2
	FilterGlob       FilterKind = 3
)

// DeclarativeFilter is implemented by filters that can be described as a
// kind plus a pattern and rebuilt with NewDeclarativeFilter.
type DeclarativeFilter interface {
	Filter
	Spec() (FilterKind, string)
}

type acceptAll struct{}

func (acceptAll) Accept(context.Context, Path) (bool, error) { return true, nil }
func (acceptAll) Spec() (FilterKind, string) { return FilterAcceptAll, "" }

type noDotFiles struct{}

func (noDotFiles) Accept(_ context.Context, entry Path) (bool, error) {
	return !strings.HasPrefix(entry.Name(), "."), nil
}
func (noDotFiles) Spec() (FilterKind, string) { return FilterNoDotFiles, "" }

type globFilter struct{ pattern string }

func (g globFilter) Accept(_ context.Context, entry Path) (bool, error) {
	return path.Match(g.pattern, entry.Name())
}
func (g globFilter) Spec() (FilterKind, string) { return FilterGlob, g.pattern }

// AcceptAll returns a filter accepting every entry.
func AcceptAll() DeclarativeFilter { return acceptAll{} }

// NoDotFiles returns a filter rejecting names that start with ".".
func NoDotFiles() DeclarativeFilter { return noDotFiles{} }

// Glob returns a filter matching entry names against a path.Match pattern.
func Glob(pattern string) (DeclarativeFilter, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	return globFilter{pattern: pattern}, nil
}

// NewDeclarativeFilter rebuilds a filter from its Spec.
func NewDeclarativeFilter(kind FilterKind, pattern string) (DeclarativeFilter, error) {
	switch kind {
	case FilterAcceptAll:
		return AcceptAll(), nil
	case FilterNoDotFiles:
		return NoDotFiles(), nil
	case FilterGlob:
		return Glob(pattern)
	default:
		return nil, fmt.Errorf("unknown filter kind %d", kind)
	}
}
