package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/remotefs/pkg/bufpool"
)

// LastFragmentFlag marks the final fragment of a record (bit 31).
const LastFragmentFlag uint32 = 0x80000000

// DefaultMaxRecordSize bounds a reassembled record unless the connection is
// configured otherwise.
const DefaultMaxRecordSize = 4 << 20

// FragmentHeader is a parsed record-marking header:
//   - Bit 31: last fragment flag
//   - Bits 0-30: fragment length in bytes
type FragmentHeader struct {
	IsLast bool
	Length uint32
}

// ReadFragmentHeader reads the 4-byte fragment header. io.EOF is returned
// unwrapped so callers can tell a clean disconnect from a failure.
func ReadFragmentHeader(r io.Reader) (*FragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	h := binary.BigEndian.Uint32(buf[:])
	return &FragmentHeader{
		IsLast: h&LastFragmentFlag != 0,
		Length: h &^ LastFragmentFlag,
	}, nil
}

// ReadRecord reads fragments until the last one and returns the reassembled
// record. A record larger than maxSize is rejected before it is read.
func ReadRecord(r io.Reader, maxSize uint32) ([]byte, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxRecordSize
	}

	var record []byte
	for {
		hdr, err := ReadFragmentHeader(r)
		if err != nil {
			if len(record) > 0 && err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if uint64(len(record))+uint64(hdr.Length) > uint64(maxSize) {
			return nil, fmt.Errorf("record too large: %d bytes exceeds %d", uint64(len(record))+uint64(hdr.Length), maxSize)
		}

		start := len(record)
		record = append(record, make([]byte, hdr.Length)...)
		if _, err := io.ReadFull(r, record[start:]); err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}

		if hdr.IsLast {
			return record, nil
		}
	}
}

// WriteRecord writes msg as one record-marked fragment.
func WriteRecord(w io.Writer, msg []byte) error {
	if len(msg) > int(^LastFragmentFlag) {
		return fmt.Errorf("message too large for a single fragment: %d bytes", len(msg))
	}

	// Header and body go out in a single Write.
	out := bufpool.Get(4 + len(msg))
	defer bufpool.Put(out)

	binary.BigEndian.PutUint32(out[:4], LastFragmentFlag|uint32(len(msg)))
	copy(out[4:], msg)
	_, err := w.Write(out)
	return err
}
