package rpc

import "sync"

// PendingReplies routes REPLY messages to the goroutine that sent the
// matching CALL. The read loop calls Deliver; the caller waits on the
// channel returned by Register.
type PendingReplies struct {
	mu      sync.Mutex
	waiters map[uint32]chan *Message
}

// NewPendingReplies creates an empty routing table.
func NewPendingReplies() *PendingReplies {
	return &PendingReplies{waiters: make(map[uint32]chan *Message)}
}

// Register returns a channel that receives the reply for xid. The channel
// has capacity 1 so Deliver never blocks the read loop.
func (p *PendingReplies) Register(xid uint32) <-chan *Message {
	ch := make(chan *Message, 1)
	p.mu.Lock()
	p.waiters[xid] = ch
	p.mu.Unlock()
	return ch
}

// Deliver hands reply to the waiter for its XID. It returns false when no
// waiter is registered (late or unsolicited reply).
func (p *PendingReplies) Deliver(reply *Message) bool {
	p.mu.Lock()
	ch, ok := p.waiters[reply.XID]
	if ok {
		delete(p.waiters, reply.XID)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- reply
	return true
}

// Cancel removes the waiter for xid without delivering anything.
func (p *PendingReplies) Cancel(xid uint32) {
	p.mu.Lock()
	delete(p.waiters, xid)
	p.mu.Unlock()
}

// Len returns the number of calls still waiting for a reply.
func (p *PendingReplies) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}
