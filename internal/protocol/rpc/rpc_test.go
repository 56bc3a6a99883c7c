package rpc

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallRoundTrip(t *testing.T) {
	hdr := CallHeader{Program: 0x52465331, Version: 1, Procedure: 7}
	msg, err := EncodeCall(0xdeadbeef, hdr, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	m, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.True(t, m.IsCall())
	assert.Equal(t, uint32(0xdeadbeef), m.XID)
	assert.Equal(t, hdr, m.Call)
	assert.Equal(t, []byte{1, 2, 3, 4}, m.Body)
}

func TestReplyBodyOnlyOnSuccess(t *testing.T) {
	msg, err := EncodeReply(5, AcceptSuccess, []byte{9, 9, 9, 9})
	require.NoError(t, err)
	m, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.False(t, m.IsCall())
	assert.Equal(t, AcceptSuccess, m.AcceptStat)
	assert.Equal(t, []byte{9, 9, 9, 9}, m.Body)

	msg, err = EncodeReply(6, AcceptGarbageArgs, []byte{9, 9, 9, 9})
	require.NoError(t, err)
	m, err = ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, AcceptGarbageArgs, m.AcceptStat)
	assert.Empty(t, m.Body)
	assert.Equal(t, "GARBAGE_ARGS", AcceptStatName(m.AcceptStat))
}

func TestParseMessageErrors(t *testing.T) {
	_, err := ParseMessage([]byte{0, 0, 0, 1})
	assert.Error(t, err)

	bad := make([]byte, 8)
	binary.BigEndian.PutUint32(bad[4:], 7)
	_, err = ParseMessage(bad)
	assert.Error(t, err)

	truncatedCall := make([]byte, 12)
	_, err = ParseMessage(truncatedCall)
	assert.Error(t, err)
}

func TestRecordMarking(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, []byte("hello")))
	require.NoError(t, WriteRecord(&buf, []byte{}))

	rec, err := ReadRecord(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), rec)

	rec, err = ReadRecord(&buf, 0)
	require.NoError(t, err)
	assert.Empty(t, rec)

	_, err = ReadRecord(&buf, 0)
	assert.Equal(t, io.EOF, err)
}

func TestReadRecordReassemblesFragments(t *testing.T) {
	var buf bytes.Buffer
	var hdr [4]byte

	binary.BigEndian.PutUint32(hdr[:], 3)
	buf.Write(hdr[:])
	buf.WriteString("abc")
	binary.BigEndian.PutUint32(hdr[:], LastFragmentFlag|2)
	buf.Write(hdr[:])
	buf.WriteString("de")

	rec, err := ReadRecord(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcde"), rec)
}

func TestReadRecordLimits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, make([]byte, 64)))
	_, err := ReadRecord(&buf, 32)
	assert.Error(t, err)

	var partial bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 2)
	partial.Write(hdr[:])
	partial.WriteString("ab")
	_, err = ReadRecord(&partial, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPendingReplies(t *testing.T) {
	p := NewPendingReplies()

	ch := p.Register(1)
	assert.Equal(t, 1, p.Len())
	assert.True(t, p.Deliver(&Message{XID: 1, Type: MsgReply}))
	assert.Equal(t, uint32(1), (<-ch).XID)
	assert.Equal(t, 0, p.Len())

	assert.False(t, p.Deliver(&Message{XID: 1}), "second delivery has no waiter")

	p.Register(2)
	p.Cancel(2)
	assert.False(t, p.Deliver(&Message{XID: 2}))
}

func TestPendingRepliesConcurrent(t *testing.T) {
	p := NewPendingReplies()
	const n = 64

	chans := make([]<-chan *Message, n)
	for i := range chans {
		chans[i] = p.Register(uint32(i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(xid uint32) {
			defer wg.Done()
			p.Deliver(&Message{XID: xid})
		}(uint32(i))
	}
	wg.Wait()

	for i, ch := range chans {
		assert.Equal(t, uint32(i), (<-ch).XID)
	}
}
