package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

var zeroPad [3]byte

// padLen returns the number of zero bytes that follow n bytes of variable data.
func padLen(n int) int {
	return (4 - n%4) % 4
}

// WriteXDROpaque writes variable-length opaque data.
//
// Per RFC 4506 Section 4.10: [length:uint32][data][padding:0-3 bytes]
func WriteXDROpaque(buf *bytes.Buffer, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("opaque length %d exceeds uint32", len(data))
	}
	if err := WriteUint32(buf, uint32(len(data))); err != nil {
		return err
	}
	buf.Write(data)
	buf.Write(zeroPad[:padLen(len(data))])
	return nil
}

// WriteXDRString writes a string using the opaque encoding (RFC 4506 Section 4.11).
func WriteXDRString(buf *bytes.Buffer, s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return fmt.Errorf("string length %d exceeds uint32", len(s))
	}
	if err := WriteUint32(buf, uint32(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	buf.Write(zeroPad[:padLen(len(s))])
	return nil
}

// WriteUint32 writes an unsigned int.
func WriteUint32(buf *bytes.Buffer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := buf.Write(b[:])
	return err
}

// WriteUint64 writes an unsigned hyper.
func WriteUint64(buf *bytes.Buffer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := buf.Write(b[:])
	return err
}

// WriteInt32 writes a signed int.
func WriteInt32(buf *bytes.Buffer, v int32) error {
	return WriteUint32(buf, uint32(v))
}

// WriteInt64 writes a signed hyper.
func WriteInt64(buf *bytes.Buffer, v int64) error {
	return WriteUint64(buf, uint64(v))
}

// WriteBool writes a boolean as a uint32 0 or 1 (RFC 4506 Section 4.4).
func WriteBool(buf *bytes.Buffer, v bool) error {
	if v {
		return WriteUint32(buf, 1)
	}
	return WriteUint32(buf, 0)
}

// WriteStringArray writes a counted array of strings.
func WriteStringArray(buf *bytes.Buffer, items []string) error {
	if err := WriteUint32(buf, uint32(len(items))); err != nil {
		return err
	}
	for _, s := range items {
		if err := WriteXDRString(buf, s); err != nil {
			return err
		}
	}
	return nil
}
