package vfs

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCode classifies a domain failure raised by a Provider.
type ErrorCode int

const (
	// ErrIO is an I/O failure that fits no narrower code.
	ErrIO ErrorCode = iota + 1

	// ErrFileSystem is a filesystem-level failure on one or two paths.
	ErrFileSystem

	// ErrNotFound indicates the path does not exist.
	ErrNotFound

	// ErrAlreadyExists indicates the target path already exists.
	ErrAlreadyExists

	// ErrDirectoryNotEmpty indicates a non-empty directory could not be removed.
	ErrDirectoryNotEmpty

	// ErrNotDirectory indicates a directory was required.
	ErrNotDirectory

	// ErrIsDirectory indicates a directory was given where it is not allowed.
	ErrIsDirectory

	// ErrAccessDenied indicates the caller lacks the required permission.
	ErrAccessDenied

	// ErrNotLink indicates the path is not a symbolic link.
	ErrNotLink

	// ErrLoop indicates too many levels of symbolic links.
	ErrLoop

	// ErrReadOnly indicates a mutation against a read-only filesystem.
	ErrReadOnly

	// ErrNotSupported indicates the provider does not implement the request.
	ErrNotSupported

	// ErrInvalidArgument indicates a malformed argument.
	ErrInvalidArgument

	// ErrNoSpace indicates the store is full.
	ErrNoSpace

	// ErrNameTooLong indicates a path component exceeds the provider limit.
	ErrNameTooLong

	// ErrCrossDevice indicates a link across file stores.
	ErrCrossDevice
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrIO:
		return "IOError"
	case ErrFileSystem:
		return "FileSystemError"
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrDirectoryNotEmpty:
		return "DirectoryNotEmpty"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrIsDirectory:
		return "IsDirectory"
	case ErrAccessDenied:
		return "AccessDenied"
	case ErrNotLink:
		return "NotLink"
	case ErrLoop:
		return "Loop"
	case ErrReadOnly:
		return "ReadOnly"
	case ErrNotSupported:
		return "NotSupported"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNoSpace:
		return "NoSpace"
	case ErrNameTooLong:
		return "NameTooLong"
	case ErrCrossDevice:
		return "CrossDevice"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error is a domain failure. It carries enough structure to be rebuilt on
// the other side of a process boundary: code, reason, and the path(s)
// involved.
type Error struct {
	Code      ErrorCode
	Message   string
	Path      string
	OtherPath string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.OtherPath != "":
		return fmt.Sprintf("%s: %s -> %s: %s", e.Code, e.Path, e.OtherPath, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is lets errors.Is match the io/fs sentinels for the codes that have one.
func (e *Error) Is(target error) bool {
	switch target {
	case fs.ErrNotExist:
		return e.Code == ErrNotFound
	case fs.ErrExist:
		return e.Code == ErrAlreadyExists
	case fs.ErrPermission:
		return e.Code == ErrAccessDenied
	}
	return false
}

// NewError builds an Error.
func NewError(code ErrorCode, path, message string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "no such file or directory", Path: path}
}

// NewAlreadyExistsError creates an AlreadyExists error.
func NewAlreadyExistsError(path string) *Error {
	return &Error{Code: ErrAlreadyExists, Message: "file already exists", Path: path}
}

// NewNotDirectoryError creates a NotDirectory error.
func NewNotDirectoryError(path string) *Error {
	return &Error{Code: ErrNotDirectory, Message: "not a directory", Path: path}
}

// NewDirectoryNotEmptyError creates a DirectoryNotEmpty error.
func NewDirectoryNotEmptyError(path string) *Error {
	return &Error{Code: ErrDirectoryNotEmpty, Message: "directory not empty", Path: path}
}

// NewAccessDeniedError creates an AccessDenied error.
func NewAccessDeniedError(path string) *Error {
	return &Error{Code: ErrAccessDenied, Message: "access denied", Path: path}
}

// NewNotLinkError creates a NotLink error.
func NewNotLinkError(path string) *Error {
	return &Error{Code: ErrNotLink, Message: "not a symbolic link", Path: path}
}

// NewReadOnlyError creates a ReadOnly error.
func NewReadOnlyError(path string) *Error {
	return &Error{Code: ErrReadOnly, Message: "read-only file system", Path: path}
}

// NewNotSupportedError creates a NotSupported error.
func NewNotSupportedError(path, what string) *Error {
	return &Error{Code: ErrNotSupported, Message: what + " not supported", Path: path}
}

// NewLinkError creates an error involving two paths, such as a failed hard
// link between link and existing.
func NewLinkError(code ErrorCode, link, existing, message string) *Error {
	return &Error{Code: code, Message: message, Path: link, OtherPath: existing}
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the *Error in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return 0
}

// IsNotFound reports whether err is a NotFound domain failure.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsAlreadyExists reports whether err is an AlreadyExists domain failure.
func IsAlreadyExists(err error) bool { return CodeOf(err) == ErrAlreadyExists }

// IsAccessDenied reports whether err is an AccessDenied domain failure.
func IsAccessDenied(err error) bool { return CodeOf(err) == ErrAccessDenied }

// FromError converts an io/fs error into an *Error for path. Errors that
// already are *Error are returned unchanged; nil stays nil.
func FromError(err error, path string) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewNotFoundError(path)
	case errors.Is(err, fs.ErrExist):
		return NewAlreadyExistsError(path)
	case errors.Is(err, fs.ErrPermission):
		return NewAccessDeniedError(path)
	case errors.Is(err, fs.ErrInvalid):
		return NewError(ErrInvalidArgument, path, err.Error())
	default:
		return NewError(ErrIO, path, err.Error())
	}
}
