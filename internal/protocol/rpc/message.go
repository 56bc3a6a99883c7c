// Package rpc implements the message layer shared by both ends of a remote
// filesystem connection: record marking, CALL/REPLY headers and XID routing.
//
// The layout follows ONC RPC (RFC 5531) closely enough to be recognisable
// in a packet capture, but it is symmetric: either peer may send CALLs,
// which is how client-side filter callbacks are served during a directory
// enumeration running on the server.
package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// Message types (first word after the XID).
const (
	MsgCall  uint32 = 0
	MsgReply uint32 = 1
)

// Accept status of a REPLY. Anything other than AcceptSuccess carries no
// procedure body.
const (
	AcceptSuccess      uint32 = 0
	AcceptProgUnavail  uint32 = 1
	AcceptProgMismatch uint32 = 2
	AcceptProcUnavail  uint32 = 3
	AcceptGarbageArgs  uint32 = 4
	AcceptSystemErr    uint32 = 5
)

// AcceptStatName returns a printable name for an accept status.
func AcceptStatName(stat uint32) string {
	switch stat {
	case AcceptSuccess:
		return "SUCCESS"
	case AcceptProgUnavail:
		return "PROG_UNAVAIL"
	case AcceptProgMismatch:
		return "PROG_MISMATCH"
	case AcceptProcUnavail:
		return "PROC_UNAVAIL"
	case AcceptGarbageArgs:
		return "GARBAGE_ARGS"
	case AcceptSystemErr:
		return "SYSTEM_ERR"
	default:
		return fmt.Sprintf("ACCEPT_%d", stat)
	}
}

// CallHeader identifies the procedure a CALL targets.
type CallHeader struct {
	Program   uint32
	Version   uint32
	Procedure uint32
}

// Message is a parsed CALL or REPLY. Body aliases the buffer passed to
// ParseMessage.
type Message struct {
	XID  uint32
	Type uint32

	// Set when Type == MsgCall
	Call CallHeader

	// Set when Type == MsgReply
	AcceptStat uint32

	Body []byte
}

// IsCall reports whether m is a CALL.
func (m *Message) IsCall() bool { return m.Type == MsgCall }

// ParseMessage parses the header of a record. The first 8 bytes are always
// XID and message type, which is all the read loop needs to demultiplex.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("message too short: %d bytes", len(data))
	}

	m := &Message{
		XID:  binary.BigEndian.Uint32(data[0:4]),
		Type: binary.BigEndian.Uint32(data[4:8]),
	}

	r := bytes.NewReader(data[8:])
	switch m.Type {
	case MsgCall:
		if _, err := xdr.Unmarshal(r, &m.Call); err != nil {
			return nil, fmt.Errorf("decode call header (xid=0x%x): %w", m.XID, err)
		}
	case MsgReply:
		var stat uint32
		if _, err := xdr.Unmarshal(r, &stat); err != nil {
			return nil, fmt.Errorf("decode reply header (xid=0x%x): %w", m.XID, err)
		}
		m.AcceptStat = stat
	default:
		return nil, fmt.Errorf("unknown message type %d (xid=0x%x)", m.Type, m.XID)
	}

	m.Body = data[len(data)-r.Len():]
	return m, nil
}

// EncodeCall builds a CALL message (without record mark).
func EncodeCall(xid uint32, hdr CallHeader, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(20 + len(body))
	if _, err := xdr.Marshal(&buf, &struct {
		XID  uint32
		Type uint32
		Hdr  CallHeader
	}{xid, MsgCall, hdr}); err != nil {
		return nil, fmt.Errorf("encode call header: %w", err)
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// EncodeReply builds a REPLY message (without record mark). body is ignored
// unless stat is AcceptSuccess.
func EncodeReply(xid, stat uint32, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(12 + len(body))
	if _, err := xdr.Marshal(&buf, &struct {
		XID  uint32
		Type uint32
		Stat uint32
	}{xid, MsgReply, stat}); err != nil {
		return nil, fmt.Errorf("encode reply header: %w", err)
	}
	if stat == AcceptSuccess {
		buf.Write(body)
	}
	return buf.Bytes(), nil
}
