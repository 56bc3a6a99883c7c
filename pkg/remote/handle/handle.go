// Package handle implements opaque cross-process object references.
//
// A Handle names an object that lives in one process (the endpoint that
// created it) and cannot cross the boundary by value: a filter with captured
// state, a file store, a stream. The owning process keeps the object in a
// Table keyed by token; the peer only ever sees the Handle.
//
// Identity is the pair (Endpoint, Token). Every process picks a fresh
// endpoint UUID at startup, so a handle minted by a previous incarnation,
// or by another process, can never resolve to a live object here.
package handle

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is an opaque reference to an object owned by Endpoint.
type Handle struct {
	Endpoint uuid.UUID
	Token    uint64
}

// IsZero reports whether h is the zero handle, which never names an object.
func (h Handle) IsZero() bool {
	return h.Token == 0 && h.Endpoint == uuid.Nil
}

// String renders h as "endpoint/token".
func (h Handle) String() string {
	return fmt.Sprintf("%s/%d", h.Endpoint, h.Token)
}

// ============================================================================
// Errors
// ============================================================================

// ErrStale matches every *StaleError with errors.Is.
var ErrStale = errors.New("stale handle")

// StaleError reports a handle whose referent was released or whose owning
// endpoint is not this process.
type StaleError struct {
	Handle Handle
	Reason string
}

func (e *StaleError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("stale handle %s", e.Handle)
	}
	return fmt.Sprintf("stale handle %s: %s", e.Handle, e.Reason)
}

// Is matches ErrStale.
func (e *StaleError) Is(target error) bool {
	return target == ErrStale
}

// NewStaleError returns a StaleError for h.
func NewStaleError(h Handle, reason string) *StaleError {
	return &StaleError{Handle: h, Reason: reason}
}

// ============================================================================
// Table
// ============================================================================

type entry struct {
	obj   any
	scope string
}

// Table maps tokens to live objects for one endpoint. It is safe for
// concurrent use.
//
// Tokens come from a monotonic counter and are never reused, so a released
// token stays stale for the lifetime of the table. Entries are grouped by
// scope (a connection ID) so everything a peer was handed can be dropped
// at once when that peer goes away.
type Table struct {
	endpoint  uuid.UUID
	nextToken atomic.Uint64

	mu      sync.RWMutex
	entries map[uint64]entry
}

// NewTable creates a table with a fresh random endpoint.
func NewTable() *Table {
	return NewTableWithEndpoint(uuid.New())
}

// NewTableWithEndpoint creates a table owned by endpoint.
func NewTableWithEndpoint(endpoint uuid.UUID) *Table {
	return &Table{
		endpoint: endpoint,
		entries:  make(map[uint64]entry),
	}
}

// Endpoint returns the UUID stamped into every handle this table mints.
func (t *Table) Endpoint() uuid.UUID {
	return t.endpoint
}

// Owns reports whether h was minted by this table's endpoint. It does not
// say whether the referent is still live.
func (t *Table) Owns(h Handle) bool {
	return h.Endpoint == t.endpoint
}

// Register stores obj under a new token in scope and returns its handle.
func (t *Table) Register(obj any, scope string) Handle {
	token := t.nextToken.Add(1)

	t.mu.Lock()
	t.entries[token] = entry{obj: obj, scope: scope}
	t.mu.Unlock()

	return Handle{Endpoint: t.endpoint, Token: token}
}

// Lookup returns the object h refers to, whatever its scope.
func (t *Table) Lookup(h Handle) (any, error) {
	return t.lookup(h, "", false)
}

// LookupScoped is Lookup for a handle presented by the holder of scope. A
// live handle registered under another scope is stale to that holder.
func (t *Table) LookupScoped(h Handle, scope string) (any, error) {
	return t.lookup(h, scope, true)
}

func (t *Table) lookup(h Handle, scope string, scoped bool) (any, error) {
	if !t.Owns(h) {
		return nil, NewStaleError(h, "unknown endpoint")
	}

	t.mu.RLock()
	e, ok := t.entries[h.Token]
	t.mu.RUnlock()

	if !ok {
		return nil, NewStaleError(h, "released")
	}
	if scoped && e.scope != scope {
		return nil, NewStaleError(h, "not issued to this connection")
	}
	return e.obj, nil
}

// Release drops h. Releasing an unknown or already released handle returns
// a StaleError.
func (t *Table) Release(h Handle) error {
	return t.release(h, "", false)
}

// ReleaseScoped drops h only if it was registered under scope. A handle of
// another scope is left alone and reported stale.
func (t *Table) ReleaseScoped(h Handle, scope string) error {
	return t.release(h, scope, true)
}

func (t *Table) release(h Handle, scope string, scoped bool) error {
	if !t.Owns(h) {
		return NewStaleError(h, "unknown endpoint")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[h.Token]
	if !ok {
		return NewStaleError(h, "released")
	}
	if scoped && e.scope != scope {
		return NewStaleError(h, "not issued to this connection")
	}
	delete(t.entries, h.Token)
	return nil
}

// ReleaseScope drops every handle registered in scope and returns how many
// were released.
func (t *Table) ReleaseScope(scope string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for token, e := range t.entries {
		if e.scope == scope {
			delete(t.entries, token)
			n++
		}
	}
	return n
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
