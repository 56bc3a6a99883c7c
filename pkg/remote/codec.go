package remote

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// valueError is a Marshaled Value that does not have the kind or content an
// argument requires. The stub answers it with GARBAGE_ARGS.
type valueError struct {
	what string
	got  rfs.ValueKind
	err  error
}

func (e *valueError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("bad %s value (%s): %v", e.what, e.got, e.err)
	}
	return fmt.Sprintf("bad %s value: got %s", e.what, e.got)
}

func (e *valueError) Unwrap() error { return e.err }

// peerCaller is what a Codec needs from its connection to evaluate a filter
// the peer exported by handle.
type peerCaller interface {
	peerEndpoint() uuid.UUID
	filterAccept(ctx context.Context, h handle.Handle, entry vfs.Path) (bool, error)
}

// Codec converts between Go values and Marshaled Values for one connection.
//
// Data (paths, option sets, attributes, declarative filters) travels by
// value. Behaviour (function filters, file stores) travels by handle: Wrap
// registers the object in the table under the connection's scope, and the
// peer's handles unwrap to proxies that call back over the connection.
type Codec struct {
	table *handle.Table
	scope string
	peer  peerCaller
}

// NewCodec returns a codec that registers exported objects in table under
// scope. peer may be nil when the connection never receives peer handles.
func NewCodec(table *handle.Table, scope string, peer peerCaller) *Codec {
	return &Codec{table: table, scope: scope, peer: peer}
}

// Wrap converts v to a Marshaled Value.
func (c *Codec) Wrap(v any) (rfs.Value, error) {
	switch x := v.(type) {
	case nil:
		return rfs.Null, nil
	case string:
		return rfs.Value{Kind: rfs.ValueString, Str: x}, nil
	case int64:
		return rfs.Value{Kind: rfs.ValueInt64, Int: x}, nil
	case int:
		return rfs.Value{Kind: rfs.ValueInt64, Int: int64(x)}, nil
	case bool:
		return rfs.Value{Kind: rfs.ValueBool, Bool: x}, nil
	case []byte:
		return rfs.Value{Kind: rfs.ValueBytes, Bytes: x}, nil
	case vfs.Path:
		return pathValue(x), nil
	case []vfs.AccessMode:
		return accessModesValue(x), nil
	case []vfs.LinkOption:
		return linkOptionsValue(x), nil
	case vfs.AttributeKind:
		return attributeKindValue(x), nil
	case []vfs.FileAttribute:
		return fileAttributesValue(x), nil
	case vfs.Attributes:
		return rfs.Value{Kind: rfs.ValueAttributes, Attributes: attributesRecord(x)}, nil
	case vfs.DeclarativeFilter:
		kind, pattern := x.Spec()
		return rfs.Value{Kind: rfs.ValueFilter, Mask: uint32(kind), Str: pattern}, nil
	case *peerFilter:
		// Already the peer's object: hand its handle back.
		return rfs.Value{Kind: rfs.ValueHandle, Handle: x.h}, nil
	case vfs.Filter, vfs.FileStore:
		return rfs.Value{Kind: rfs.ValueHandle, Handle: c.table.Register(x, c.scope)}, nil
	case handle.Handle:
		return rfs.Value{Kind: rfs.ValueHandle, Handle: x}, nil
	default:
		return rfs.Value{}, fmt.Errorf("cannot marshal %T", v)
	}
}

func pathValue(p vfs.Path) rfs.Value {
	return rfs.Value{Kind: rfs.ValuePath, Str: string(p)}
}

func accessModesValue(modes []vfs.AccessMode) rfs.Value {
	return rfs.Value{Kind: rfs.ValueAccessModes, Mask: vfs.AccessMask(modes...)}
}

func linkOptionsValue(opts []vfs.LinkOption) rfs.Value {
	return rfs.Value{Kind: rfs.ValueLinkOptions, Mask: vfs.LinkOptionMask(opts...)}
}

func attributeKindValue(kind vfs.AttributeKind) rfs.Value {
	return rfs.Value{Kind: rfs.ValueAttributeKind, Mask: uint32(kind)}
}

func fileAttributesValue(attrs []vfs.FileAttribute) rfs.Value {
	out := make([]rfs.FileAttribute, len(attrs))
	for i, a := range attrs {
		out[i] = rfs.FileAttribute{Name: a.Name, Value: a.Value}
	}
	return rfs.Value{Kind: rfs.ValueFileAttributes, FileAttributes: out}
}

// Unwrap converts a Marshaled Value back to a Go value. Handles resolve as
// follows: our own endpoint goes through the table, the connected peer's
// endpoint becomes a callback proxy, and anything else is stale.
func (c *Codec) Unwrap(v rfs.Value) (any, error) {
	switch v.Kind {
	case rfs.ValueNull:
		return nil, nil
	case rfs.ValueString:
		return v.Str, nil
	case rfs.ValueInt64:
		return v.Int, nil
	case rfs.ValueBool:
		return v.Bool, nil
	case rfs.ValueBytes:
		return v.Bytes, nil
	case rfs.ValuePath:
		return vfs.Path(v.Str), nil
	case rfs.ValueAccessModes:
		modes, err := vfs.AccessModesFromMask(v.Mask)
		if err != nil {
			return nil, &valueError{what: "access modes", got: v.Kind, err: err}
		}
		return modes, nil
	case rfs.ValueLinkOptions:
		opts, err := vfs.LinkOptionsFromMask(v.Mask)
		if err != nil {
			return nil, &valueError{what: "link options", got: v.Kind, err: err}
		}
		return opts, nil
	case rfs.ValueAttributeKind:
		// Unknown kinds are passed on; the provider rejects them with
		// NotSupported like it would for a local caller.
		return vfs.AttributeKind(v.Mask), nil
	case rfs.ValueFileAttributes:
		attrs := make([]vfs.FileAttribute, len(v.FileAttributes))
		for i, a := range v.FileAttributes {
			attrs[i] = vfs.FileAttribute{Name: a.Name, Value: a.Value}
		}
		return attrs, nil
	case rfs.ValueAttributes:
		if v.Attributes == nil {
			return nil, &valueError{what: "attributes", got: v.Kind}
		}
		return attributesFromRecord(v.Attributes), nil
	case rfs.ValueFilter:
		f, err := vfs.NewDeclarativeFilter(vfs.FilterKind(v.Mask), v.Str)
		if err != nil {
			return nil, &valueError{what: "filter", got: v.Kind, err: err}
		}
		return f, nil
	case rfs.ValueHandle:
		return c.resolve(v.Handle)
	default:
		return nil, &valueError{what: "any", got: v.Kind}
	}
}

func (c *Codec) resolve(h handle.Handle) (any, error) {
	if c.table.Owns(h) {
		return c.table.LookupScoped(h, c.scope)
	}
	if c.peer != nil && h.Endpoint == c.peer.peerEndpoint() {
		return &peerFilter{h: h, conn: c.peer}, nil
	}
	return nil, handle.NewStaleError(h, "unknown endpoint")
}

// Release drops a handle minted by Wrap. Values that are not handles are
// ignored.
func (c *Codec) Release(v rfs.Value) {
	if v.Kind == rfs.ValueHandle && c.table.Owns(v.Handle) {
		_ = c.table.ReleaseScoped(v.Handle, c.scope)
	}
}

// UnwrapPath unwraps a PATH value.
func (c *Codec) UnwrapPath(v rfs.Value) (vfs.Path, error) {
	if v.Kind != rfs.ValuePath {
		return "", &valueError{what: "path", got: v.Kind}
	}
	return vfs.Path(v.Str), nil
}

// UnwrapFilter unwraps a directory filter. NULL means no filter.
func (c *Codec) UnwrapFilter(v rfs.Value) (vfs.Filter, error) {
	switch v.Kind {
	case rfs.ValueNull, rfs.ValueFilter, rfs.ValueHandle:
	default:
		return nil, &valueError{what: "filter", got: v.Kind}
	}
	obj, err := c.Unwrap(v)
	if err != nil || obj == nil {
		return nil, err
	}
	f, ok := obj.(vfs.Filter)
	if !ok {
		return nil, &valueError{what: "filter", got: v.Kind, err: fmt.Errorf("handle refers to %T", obj)}
	}
	return f, nil
}

// UnwrapAccessModes unwraps an ACCESS_MODES value.
func (c *Codec) UnwrapAccessModes(v rfs.Value) ([]vfs.AccessMode, error) {
	if v.Kind != rfs.ValueAccessModes {
		return nil, &valueError{what: "access modes", got: v.Kind}
	}
	obj, err := c.Unwrap(v)
	if err != nil {
		return nil, err
	}
	return obj.([]vfs.AccessMode), nil
}

// UnwrapLinkOptions unwraps a LINK_OPTIONS value. NULL means no options.
func (c *Codec) UnwrapLinkOptions(v rfs.Value) ([]vfs.LinkOption, error) {
	switch v.Kind {
	case rfs.ValueNull:
		return nil, nil
	case rfs.ValueLinkOptions:
		obj, err := c.Unwrap(v)
		if err != nil {
			return nil, err
		}
		return obj.([]vfs.LinkOption), nil
	default:
		return nil, &valueError{what: "link options", got: v.Kind}
	}
}

// UnwrapAttributeKind unwraps an ATTRIBUTE_KIND value.
func (c *Codec) UnwrapAttributeKind(v rfs.Value) (vfs.AttributeKind, error) {
	if v.Kind != rfs.ValueAttributeKind {
		return 0, &valueError{what: "attribute kind", got: v.Kind}
	}
	return vfs.AttributeKind(v.Mask), nil
}

// UnwrapFileAttributes unwraps creation attributes. NULL means none.
func (c *Codec) UnwrapFileAttributes(v rfs.Value) ([]vfs.FileAttribute, error) {
	switch v.Kind {
	case rfs.ValueNull:
		return nil, nil
	case rfs.ValueFileAttributes:
		obj, err := c.Unwrap(v)
		if err != nil {
			return nil, err
		}
		return obj.([]vfs.FileAttribute), nil
	default:
		return nil, &valueError{what: "file attributes", got: v.Kind}
	}
}

// UnwrapAttributes unwraps an ATTRIBUTES value.
func (c *Codec) UnwrapAttributes(v rfs.Value) (vfs.Attributes, error) {
	if v.Kind != rfs.ValueAttributes {
		return nil, &valueError{what: "attributes", got: v.Kind}
	}
	obj, err := c.Unwrap(v)
	if err != nil {
		return nil, err
	}
	return obj.(vfs.Attributes), nil
}

// ============================================================================
// Attribute records
// ============================================================================

func attributesRecord(a vfs.Attributes) *rfs.AttributesRecord {
	b := a.Basic()
	rec := &rfs.AttributesRecord{
		Kind:    uint32(a.Kind()),
		Type:    uint32(b.Type),
		Size:    b.Size,
		FileKey: b.FileKey,
	}
	rec.ModifiedNs = putTime(b.LastModifiedTime, rfs.TimeModified, &rec.TimesSet)
	rec.AccessedNs = putTime(b.LastAccessTime, rfs.TimeAccessed, &rec.TimesSet)
	rec.CreatedNs = putTime(b.CreationTime, rfs.TimeCreated, &rec.TimesSet)
	if p, ok := a.(*vfs.PosixAttributes); ok {
		rec.Owner = p.Owner
		rec.Group = p.Group
		rec.UID = p.UID
		rec.GID = p.GID
		rec.Permissions = uint32(p.Permissions.Perm())
	}
	return rec
}

func attributesFromRecord(rec *rfs.AttributesRecord) vfs.Attributes {
	basic := vfs.BasicAttributes{
		Type:             vfs.FileType(rec.Type),
		Size:             rec.Size,
		LastModifiedTime: getTime(rec.ModifiedNs, rfs.TimeModified, rec.TimesSet),
		LastAccessTime:   getTime(rec.AccessedNs, rfs.TimeAccessed, rec.TimesSet),
		CreationTime:     getTime(rec.CreatedNs, rfs.TimeCreated, rec.TimesSet),
		FileKey:          rec.FileKey,
	}
	if vfs.AttributeKind(rec.Kind) != vfs.AttributeKindPosix {
		return &basic
	}
	return &vfs.PosixAttributes{
		BasicAttributes: basic,
		Owner:           rec.Owner,
		Group:           rec.Group,
		UID:             rec.UID,
		GID:             rec.GID,
		Permissions:     fs.FileMode(rec.Permissions).Perm(),
	}
}

// putTime encodes t and marks it present in set. The zero time stays unset.
func putTime(t time.Time, bit uint32, set *uint32) int64 {
	if t.IsZero() {
		return 0
	}
	*set |= bit
	return t.UnixNano()
}

func getTime(ns int64, bit, set uint32) time.Time {
	if set&bit == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ============================================================================
// Peer filter proxy
// ============================================================================

// peerFilter evaluates a filter that lives on the other side of the
// connection by calling FILTER_ACCEPT for each entry.
type peerFilter struct {
	h    handle.Handle
	conn peerCaller
}

func (f *peerFilter) Accept(ctx context.Context, entry vfs.Path) (bool, error) {
	return f.conn.filterAccept(ctx, f.h, entry)
}
