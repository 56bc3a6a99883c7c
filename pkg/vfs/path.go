package vfs

import (
	"path"
	"strings"
)

// Path is a slash-separated absolute path within a provider. Paths are plain
// values: they cross a process boundary by copy.
type Path string

// Root is the root directory of every provider.
const Root Path = "/"

// NewPath cleans p and makes it absolute.
func NewPath(p string) Path {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return Path(path.Clean(p))
}

// String returns the path as a string.
func (p Path) String() string { return string(p) }

// Name returns the last element of p; the root's name is "".
func (p Path) Name() string {
	if p == Root || p == "" {
		return ""
	}
	return path.Base(string(p))
}

// Parent returns the directory containing p. The root is its own parent.
func (p Path) Parent() Path {
	if p == Root || p == "" {
		return Root
	}
	return Path(path.Dir(string(p)))
}

// Join appends elem to p and cleans the result.
func (p Path) Join(elem ...string) Path {
	return NewPath(path.Join(append([]string{string(p)}, elem...)...))
}

// Resolve interprets target relative to p's parent, the way a symbolic link
// stored at p is followed. Absolute targets are returned cleaned.
func (p Path) Resolve(target Path) Path {
	if strings.HasPrefix(string(target), "/") {
		return NewPath(string(target))
	}
	return p.Parent().Join(string(target))
}

// Elements splits p into its components. The root has none.
func (p Path) Elements() []string {
	s := strings.Trim(string(NewPath(string(p))), "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
