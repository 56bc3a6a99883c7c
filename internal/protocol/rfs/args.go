package rfs

import (
	"bytes"
	"fmt"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// ============================================================================
// Flat bodies (go-xdr)
// ============================================================================

// HelloArgs opens a session. Endpoint is the caller's handle endpoint.
type HelloArgs struct {
	Version  uint32
	Endpoint [16]byte
	Software string
}

// HelloRes answers HELLO with the callee's endpoint.
type HelloRes struct {
	Version  uint32
	Endpoint [16]byte
	Software string
}

// FileStoreRes is the snapshot returned by GET_FILE_STORE.
type FileStoreRes struct {
	Store    WireHandle
	Name     string
	Type     string
	ReadOnly bool
}

// FileStoreSpaceArgs asks for one space figure of a store.
type FileStoreSpaceArgs struct {
	Store WireHandle
	Which uint32
}

// SpaceRes carries a space figure in bytes.
type SpaceRes struct {
	Bytes int64
}

// ReleaseArgs drops a handle owned by the callee.
type ReleaseArgs struct {
	Handle WireHandle
}

// FilterAcceptArgs asks the filter's owner to evaluate it for Path.
type FilterAcceptArgs struct {
	Filter WireHandle
	Path   string
}

// BoolRes carries a boolean result.
type BoolRes struct {
	Value bool
}

// ListDirectoryRes is a Directory Entry Batch.
type ListDirectoryRes struct {
	Entries []string
}

// MarshalFlat encodes a go-xdr compatible struct.
func MarshalFlat(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr2.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalFlat decodes data into v and rejects trailing bytes.
func UnmarshalFlat(data []byte, v any) error {
	r := bytes.NewReader(data)
	if _, err := xdr2.Unmarshal(r, v); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after XDR body", r.Len())
	}
	return nil
}

// ============================================================================
// Value-bearing bodies
// ============================================================================

func encodeValues(buf *bytes.Buffer, vals ...*Value) error {
	for _, v := range vals {
		if err := v.Encode(buf); err != nil {
			return err
		}
	}
	return nil
}

func decodeValues(r io.Reader, vals ...*Value) error {
	for _, v := range vals {
		if err := v.Decode(r); err != nil {
			return err
		}
	}
	return nil
}

// ListDirectoryArgs: LIST_DIRECTORY.
type ListDirectoryArgs struct {
	Dir    Value
	Filter Value
}

func (a *ListDirectoryArgs) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Dir, &a.Filter) }
func (a *ListDirectoryArgs) Decode(r io.Reader) error { return decodeValues(r, &a.Dir, &a.Filter) }

// CreateDirectoryArgs: CREATE_DIRECTORY.
type CreateDirectoryArgs struct {
	Dir   Value
	Attrs Value
}

func (a *CreateDirectoryArgs) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Dir, &a.Attrs) }
func (a *CreateDirectoryArgs) Decode(r io.Reader) error { return decodeValues(r, &a.Dir, &a.Attrs) }

// CreateSymbolicLinkArgs: CREATE_SYMBOLIC_LINK.
type CreateSymbolicLinkArgs struct {
	Link   Value
	Target Value
	Attrs  Value
}

func (a *CreateSymbolicLinkArgs) Encode(buf *bytes.Buffer) error {
	return encodeValues(buf, &a.Link, &a.Target, &a.Attrs)
}

func (a *CreateSymbolicLinkArgs) Decode(r io.Reader) error {
	return decodeValues(r, &a.Link, &a.Target, &a.Attrs)
}

// CreateLinkArgs: CREATE_LINK.
type CreateLinkArgs struct {
	Link     Value
	Existing Value
}

func (a *CreateLinkArgs) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Link, &a.Existing) }
func (a *CreateLinkArgs) Decode(r io.Reader) error { return decodeValues(r, &a.Link, &a.Existing) }

// PathArgs: DELETE, DELETE_IF_EXISTS, READ_SYMBOLIC_LINK, IS_HIDDEN,
// GET_FILE_STORE.
type PathArgs struct {
	Path Value
}

func (a *PathArgs) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Path) }
func (a *PathArgs) Decode(r io.Reader) error { return decodeValues(r, &a.Path) }

// PathPairArgs: IS_SAME_FILE.
type PathPairArgs struct {
	Path  Value
	Path2 Value
}

func (a *PathPairArgs) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Path, &a.Path2) }
func (a *PathPairArgs) Decode(r io.Reader) error { return decodeValues(r, &a.Path, &a.Path2) }

// CheckAccessArgs: CHECK_ACCESS.
type CheckAccessArgs struct {
	Path  Value
	Modes Value
}

func (a *CheckAccessArgs) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Path, &a.Modes) }
func (a *CheckAccessArgs) Decode(r io.Reader) error { return decodeValues(r, &a.Path, &a.Modes) }

// ReadAttributesArgs: READ_ATTRIBUTES.
type ReadAttributesArgs struct {
	Path    Value
	Kind    Value
	Options Value
}

func (a *ReadAttributesArgs) Encode(buf *bytes.Buffer) error {
	return encodeValues(buf, &a.Path, &a.Kind, &a.Options)
}

func (a *ReadAttributesArgs) Decode(r io.Reader) error {
	return decodeValues(r, &a.Path, &a.Kind, &a.Options)
}

// ValueRes: READ_SYMBOLIC_LINK and READ_ATTRIBUTES results.
type ValueRes struct {
	Value Value
}

func (a *ValueRes) Encode(buf *bytes.Buffer) error { return encodeValues(buf, &a.Value) }
func (a *ValueRes) Decode(r io.Reader) error { return decodeValues(r, &a.Value) }
