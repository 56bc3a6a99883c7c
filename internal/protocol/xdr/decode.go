package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxOpaqueLength bounds any single variable-length item. A frame is limited
// separately by the connection; this keeps a corrupt length from allocating
// more than that.
const MaxOpaqueLength = 4 * 1024 * 1024

// MaxArrayLength bounds counted arrays.
const MaxArrayLength = 1 << 20

// DecodeOpaque decodes variable-length opaque data and skips its padding.
func DecodeOpaque(r io.Reader) ([]byte, error) {
	length, err := DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > MaxOpaqueLength {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, MaxOpaqueLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	if pad := padLen(int(length)); pad > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(r, padBuf[:pad]); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}
	return data, nil
}

// DecodeString decodes a variable-length string.
func DecodeString(r io.Reader) (string, error) {
	data, err := DecodeOpaque(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUint32 decodes an unsigned int.
func DecodeUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// DecodeUint64 decodes an unsigned hyper.
func DecodeUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// DecodeInt32 decodes a signed int.
func DecodeInt32(r io.Reader) (int32, error) {
	v, err := DecodeUint32(r)
	return int32(v), err
}

// DecodeInt64 decodes a signed hyper.
func DecodeInt64(r io.Reader) (int64, error) {
	v, err := DecodeUint64(r)
	return int64(v), err
}

// DecodeBool decodes a boolean. Values other than 0 and 1 are rejected.
func DecodeBool(r io.Reader) (bool, error) {
	v, err := DecodeUint32(r)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value %d", v)
	}
}

// DecodeArrayLength reads the count of a counted array and checks it
// against MaxArrayLength.
func DecodeArrayLength(r io.Reader) (uint32, error) {
	n, err := DecodeUint32(r)
	if err != nil {
		return 0, fmt.Errorf("read array length: %w", err)
	}
	if n > MaxArrayLength {
		return 0, fmt.Errorf("array length %d exceeds maximum %d", n, MaxArrayLength)
	}
	return n, nil
}

// DecodeStringArray decodes a counted array of strings.
func DecodeStringArray(r io.Reader) ([]string, error) {
	n, err := DecodeArrayLength(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := DecodeString(r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
