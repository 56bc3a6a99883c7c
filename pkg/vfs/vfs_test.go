package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	tests := []struct {
		in     string
		want   Path
		name   string
		parent Path
	}{
		{"/", Root, "", Root},
		{"a", "/a", "a", Root},
		{"/a/b/../c/", "/a/c", "c", "/a"},
		{"//x//y", "/x/y", "y", "/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := NewPath(tt.in)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.name, p.Name())
			assert.Equal(t, tt.parent, p.Parent())
		})
	}

	assert.Equal(t, Path("/a/b/c"), Path("/a").Join("b", "c"))
	assert.Equal(t, []string{"a", "b"}, Path("/a/b").Elements())
	assert.Nil(t, Root.Elements())
}

func TestPathResolve(t *testing.T) {
	link := Path("/dir/link")
	assert.Equal(t, Path("/dir/target"), link.Resolve("target"))
	assert.Equal(t, Path("/other"), link.Resolve("../other"))
	assert.Equal(t, Path("/abs/t"), link.Resolve("/abs/t"))
}

func TestErrorFormatting(t *testing.T) {
	assert.Equal(t, "NotFound: /a: no such file or directory", NewNotFoundError("/a").Error())
	assert.Equal(t, "CrossDevice: /l -> /e: link across stores",
		NewLinkError(ErrCrossDevice, "/l", "/e", "link across stores").Error())
	assert.Equal(t, "IOError: boom", NewError(ErrIO, "", "boom").Error())
	assert.Equal(t, "Unknown(99)", ErrorCode(99).String())
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("op failed: %w", NewAlreadyExistsError("/x"))

	assert.True(t, IsAlreadyExists(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrAlreadyExists, CodeOf(wrapped))
	assert.Zero(t, CodeOf(errors.New("plain")))

	assert.ErrorIs(t, wrapped, fs.ErrExist)
	assert.ErrorIs(t, NewNotFoundError("/y"), fs.ErrNotExist)
	assert.ErrorIs(t, NewAccessDeniedError("/z"), fs.ErrPermission)
	assert.NotErrorIs(t, NewAccessDeniedError("/z"), fs.ErrNotExist)
}

func TestFromError(t *testing.T) {
	assert.NoError(t, FromError(nil, "/a"))

	err := FromError(&fs.PathError{Op: "open", Path: "/real", Err: fs.ErrNotExist}, "/a")
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, e.Code)
	assert.Equal(t, "/a", e.Path)

	orig := NewNotLinkError("/b")
	assert.Same(t, orig, FromError(orig, "/other"))

	assert.Equal(t, ErrIO, CodeOf(FromError(errors.New("disk on fire"), "/c")))
}

func TestAccessModeMask(t *testing.T) {
	mask := AccessMask(AccessRead, AccessExecute)
	assert.Equal(t, uint32(5), mask)

	modes, err := AccessModesFromMask(mask)
	require.NoError(t, err)
	assert.Equal(t, []AccessMode{AccessRead, AccessExecute}, modes)

	modes, err = AccessModesFromMask(0)
	require.NoError(t, err)
	assert.Empty(t, modes)

	_, err = AccessModesFromMask(1 << 9)
	assert.Error(t, err)
}

func TestLinkOptions(t *testing.T) {
	assert.True(t, FollowLinks())
	assert.False(t, FollowLinks(NoFollowLinks))

	opts, err := LinkOptionsFromMask(LinkOptionMask(NoFollowLinks))
	require.NoError(t, err)
	assert.Equal(t, []LinkOption{NoFollowLinks}, opts)

	_, err = LinkOptionsFromMask(6)
	assert.Error(t, err)
}

func TestPermissionsFrom(t *testing.T) {
	perm, err := PermissionsFrom("/d", nil, 0o755)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), perm)

	perm, err = PermissionsFrom("/d", []FileAttribute{WithPermissions(0o700)}, 0o755)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o700), perm)

	_, err = PermissionsFrom("/d", []FileAttribute{{Name: "dos:hidden", Value: "true"}}, 0)
	assert.Equal(t, ErrNotSupported, CodeOf(err))

	_, err = PermissionsFrom("/d", []FileAttribute{{Name: AttrPosixPermissions, Value: "rwx"}}, 0)
	assert.Equal(t, ErrInvalidArgument, CodeOf(err))
}

func TestAttributesOfKind(t *testing.T) {
	full := &PosixAttributes{
		BasicAttributes: BasicAttributes{Type: TypeDirectory, Size: 4096},
		Owner:           "root",
		Permissions:     0o755,
	}

	basic, err := AttributesOfKind(full, AttributeKindBasic)
	require.NoError(t, err)
	assert.Equal(t, AttributeKindBasic, basic.Kind())
	assert.IsType(t, &BasicAttributes{}, basic)
	assert.True(t, basic.Basic().IsDirectory())

	posix, err := AttributesOfKind(full, AttributeKindPosix)
	require.NoError(t, err)
	assert.Equal(t, AttributeKindPosix, posix.Kind())
	assert.Equal(t, "root", posix.(*PosixAttributes).Owner)

	_, err = AttributesOfKind(full, 9)
	assert.Equal(t, ErrNotSupported, CodeOf(err))
}

func TestDeclarativeFilters(t *testing.T) {
	ctx := context.Background()

	ok, err := NoDotFiles().Accept(ctx, "/a/.hidden")
	require.NoError(t, err)
	assert.False(t, ok)

	g, err := Glob("*.txt")
	require.NoError(t, err)
	ok, err = g.Accept(ctx, "/docs/readme.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	kind, pattern := g.Spec()
	rebuilt, err := NewDeclarativeFilter(kind, pattern)
	require.NoError(t, err)
	ok, err = rebuilt.Accept(ctx, "/docs/readme.md")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Glob("[")
	assert.Error(t, err)
	_, err = NewDeclarativeFilter(42, "")
	assert.Error(t, err)
}

type countingStream struct {
	DirectoryStream
	closes int
}

func (c *countingStream) Close() error {
	c.closes++
	return c.DirectoryStream.Close()
}

func drain(t *testing.T, s DirectoryStream) ([]Path, error) {
	t.Helper()
	var out []Path
	for {
		p, err := s.Next(context.Background())
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}

func TestFilteredStream(t *testing.T) {
	inner := &countingStream{DirectoryStream: NewSliceStream([]Path{"/a/x", "/a/.y", "/a/z"})}
	s := NewFilteredStream(inner, NoDotFiles())

	got, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []Path{"/a/x", "/a/z"}, got)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, inner.closes)
}

func TestFilteredStreamFilterError(t *testing.T) {
	boom := errors.New("filter failed")
	calls := 0
	s := NewFilteredStream(NewSliceStream([]Path{"/1", "/2", "/3"}), FilterFunc(func(_ context.Context, p Path) (bool, error) {
		calls++
		if p == "/2" {
			return false, boom
		}
		return true, nil
	}))

	got, err := drain(t, s)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Path{"/1"}, got)
	assert.Equal(t, 2, calls)
}

func TestSliceStreamClosed(t *testing.T) {
	s := NewSliceStream([]Path{"/a"})
	require.NoError(t, s.Close())
	_, err := s.Next(context.Background())
	assert.Error(t, err)
}
