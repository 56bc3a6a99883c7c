package xdr

import (
	"bytes"
	"fmt"
	"io"
)

// XdrEncoder is implemented by types that encode themselves to XDR.
type XdrEncoder interface {
	Encode(buf *bytes.Buffer) error
}

// XdrDecoder is implemented by types that decode themselves from XDR.
type XdrDecoder interface {
	Decode(r io.Reader) error
}

// EncodeUnionDiscriminant writes the uint32 discriminant of a union
// (RFC 4506 Section 4.15). It reads better than WriteUint32 at union sites.
func EncodeUnionDiscriminant(buf *bytes.Buffer, disc uint32) error {
	return WriteUint32(buf, disc)
}

// DecodeUnionDiscriminant reads the uint32 discriminant of a union.
func DecodeUnionDiscriminant(r io.Reader) (uint32, error) {
	return DecodeUint32(r)
}

// Marshal encodes v into a fresh byte slice.
func Marshal(v XdrEncoder) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v and rejects trailing bytes.
func Unmarshal(data []byte, v XdrDecoder) error {
	r := bytes.NewReader(data)
	if err := v.Decode(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after XDR body", r.Len())
	}
	return nil
}
