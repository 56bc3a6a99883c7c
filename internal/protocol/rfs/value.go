package rfs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/remotefs/internal/protocol/xdr"
	"github.com/marmos91/remotefs/pkg/remote/handle"
)

// ValueKind is the discriminant of a Marshaled Value.
type ValueKind uint32

// Marshaled Value arms. Every arm but ValueHandle carries its payload
// inline.
const (
	ValueNull           ValueKind = 0
	ValueString         ValueKind = 1
	ValueInt64          ValueKind = 2
	ValueBool           ValueKind = 3
	ValueBytes          ValueKind = 4
	ValuePath           ValueKind = 5
	ValueAccessModes    ValueKind = 6
	ValueLinkOptions    ValueKind = 7
	ValueAttributeKind  ValueKind = 8
	ValueFileAttributes ValueKind = 9
	ValueAttributes     ValueKind = 10
	ValueFilter         ValueKind = 11
	ValueHandle         ValueKind = 12
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "NULL"
	case ValueString:
		return "STRING"
	case ValueInt64:
		return "INT64"
	case ValueBool:
		return "BOOL"
	case ValueBytes:
		return "BYTES"
	case ValuePath:
		return "PATH"
	case ValueAccessModes:
		return "ACCESS_MODES"
	case ValueLinkOptions:
		return "LINK_OPTIONS"
	case ValueAttributeKind:
		return "ATTRIBUTE_KIND"
	case ValueFileAttributes:
		return "FILE_ATTRIBUTES"
	case ValueAttributes:
		return "ATTRIBUTES"
	case ValueFilter:
		return "FILTER"
	case ValueHandle:
		return "HANDLE"
	default:
		return fmt.Sprintf("VALUE_%d", uint32(k))
	}
}

// FileAttribute is a creation attribute on the wire.
type FileAttribute struct {
	Name  string
	Value string
}

// Bits of AttributesRecord.TimesSet.
const (
	TimeModified uint32 = 1 << iota
	TimeAccessed
	TimeCreated
)

// AttributesRecord carries basic or POSIX attributes. Kind selects how many
// fields are meaningful; all of them are always encoded. Times are Unix
// nanoseconds, present only when their TimesSet bit is on, so the epoch
// itself survives the trip.
type AttributesRecord struct {
	Kind        uint32
	Type        uint32
	Size        int64
	ModifiedNs  int64
	AccessedNs  int64
	CreatedNs   int64
	TimesSet    uint32
	FileKey     string
	Owner       string
	Group       string
	UID         uint32
	GID         uint32
	Permissions uint32
}

// Value is the Marshaled Value union. Only the fields of the arm selected
// by Kind are encoded:
//
//	STRING, PATH            Str
//	INT64                   Int
//	BOOL                    Bool
//	BYTES                   Bytes
//	ACCESS_MODES,
//	LINK_OPTIONS,
//	ATTRIBUTE_KIND          Mask
//	FILE_ATTRIBUTES         FileAttributes
//	ATTRIBUTES              Attributes
//	FILTER                  Mask (filter kind) and Str (pattern)
//	HANDLE                  Handle
type Value struct {
	Kind ValueKind

	Str            string
	Int            int64
	Bool           bool
	Bytes          []byte
	Mask           uint32
	FileAttributes []FileAttribute
	Attributes     *AttributesRecord
	Handle         handle.Handle
}

// Null is the NULL value.
var Null = Value{Kind: ValueNull}

// Encode writes the discriminant and the selected arm.
func (v *Value) Encode(buf *bytes.Buffer) error {
	if err := xdr.EncodeUnionDiscriminant(buf, uint32(v.Kind)); err != nil {
		return err
	}

	switch v.Kind {
	case ValueNull:
		return nil
	case ValueString, ValuePath:
		return xdr.WriteXDRString(buf, v.Str)
	case ValueInt64:
		return xdr.WriteInt64(buf, v.Int)
	case ValueBool:
		return xdr.WriteBool(buf, v.Bool)
	case ValueBytes:
		return xdr.WriteXDROpaque(buf, v.Bytes)
	case ValueAccessModes, ValueLinkOptions, ValueAttributeKind:
		return xdr.WriteUint32(buf, v.Mask)
	case ValueFileAttributes:
		if err := xdr.WriteUint32(buf, uint32(len(v.FileAttributes))); err != nil {
			return err
		}
		for _, a := range v.FileAttributes {
			if err := xdr.WriteXDRString(buf, a.Name); err != nil {
				return err
			}
			if err := xdr.WriteXDRString(buf, a.Value); err != nil {
				return err
			}
		}
		return nil
	case ValueAttributes:
		if v.Attributes == nil {
			return fmt.Errorf("ATTRIBUTES value without record")
		}
		_, err := xdr2.Marshal(buf, v.Attributes)
		return err
	case ValueFilter:
		if err := xdr.WriteUint32(buf, v.Mask); err != nil {
			return err
		}
		return xdr.WriteXDRString(buf, v.Str)
	case ValueHandle:
		return EncodeHandle(buf, v.Handle)
	default:
		return fmt.Errorf("encode value: unknown kind %d", uint32(v.Kind))
	}
}

// Decode reads a Value written by Encode.
func (v *Value) Decode(r io.Reader) error {
	disc, err := xdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return fmt.Errorf("decode value kind: %w", err)
	}
	*v = Value{Kind: ValueKind(disc)}

	switch v.Kind {
	case ValueNull:
		return nil
	case ValueString, ValuePath:
		v.Str, err = xdr.DecodeString(r)
	case ValueInt64:
		v.Int, err = xdr.DecodeInt64(r)
	case ValueBool:
		v.Bool, err = xdr.DecodeBool(r)
	case ValueBytes:
		v.Bytes, err = xdr.DecodeOpaque(r)
	case ValueAccessModes, ValueLinkOptions, ValueAttributeKind:
		v.Mask, err = xdr.DecodeUint32(r)
	case ValueFileAttributes:
		var n uint32
		if n, err = xdr.DecodeArrayLength(r); err != nil {
			break
		}
		v.FileAttributes = []FileAttribute{}
		for i := uint32(0); i < n; i++ {
			var a FileAttribute
			if a.Name, err = xdr.DecodeString(r); err != nil {
				break
			}
			if a.Value, err = xdr.DecodeString(r); err != nil {
				break
			}
			v.FileAttributes = append(v.FileAttributes, a)
		}
	case ValueAttributes:
		v.Attributes = &AttributesRecord{}
		_, err = xdr2.Unmarshal(r, v.Attributes)
	case ValueFilter:
		if v.Mask, err = xdr.DecodeUint32(r); err != nil {
			break
		}
		v.Str, err = xdr.DecodeString(r)
	case ValueHandle:
		v.Handle, err = DecodeHandle(r)
	default:
		return fmt.Errorf("decode value: unknown kind %d", disc)
	}
	if err != nil {
		return fmt.Errorf("decode %s value: %w", v.Kind, err)
	}
	return nil
}

// WireHandle is the fixed-size XDR form of a handle.Handle, for use inside
// go-xdr encoded structs.
type WireHandle struct {
	Endpoint [16]byte
	Token    uint64
}

// ToWire converts h to its wire form.
func ToWire(h handle.Handle) WireHandle {
	return WireHandle{Endpoint: h.Endpoint, Token: h.Token}
}

// Handle converts w back to a handle.Handle.
func (w WireHandle) Handle() handle.Handle {
	return handle.Handle{Endpoint: uuid.UUID(w.Endpoint), Token: w.Token}
}

// EncodeHandle writes h as 16 bytes of endpoint followed by the token.
func EncodeHandle(buf *bytes.Buffer, h handle.Handle) error {
	w := ToWire(h)
	_, err := xdr2.Marshal(buf, &w)
	return err
}

// DecodeHandle reads a handle written by EncodeHandle.
func DecodeHandle(r io.Reader) (handle.Handle, error) {
	var w WireHandle
	if _, err := xdr2.Unmarshal(r, &w); err != nil {
		return handle.Handle{}, err
	}
	return w.Handle(), nil
}
