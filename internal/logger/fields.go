package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging. Use them consistently so logs
// from rfsd and rfsctl can be queried by the same keys.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Remote calls
	KeyProcedure = "procedure"  // LIST_DIRECTORY, READ_ATTRIBUTES, ...
	KeyXID       = "xid"        // Call transaction ID
	KeyOutcome   = "outcome"    // ok, failed, stale, violation
	KeyHandle    = "handle"     // endpoint/token pair
	KeyEndpoint  = "endpoint"   // Endpoint UUID
	KeyVersion   = "version"    // Program version
	KeyFrameSize = "frame_size" // Record size in bytes

	// Connections
	KeyConnectionID = "connection_id"
	KeyPeer         = "peer"
	KeyNetwork      = "network"
	KeyAddress      = "address"
	KeyActive       = "active"

	// Filesystem operations
	KeyPath       = "path"
	KeyOtherPath  = "other_path"
	KeyLinkTarget = "link_target"
	KeyEntries    = "entries"
	KeyKind       = "kind"
	KeyStore      = "store"
	KeyCode       = "code"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyComponent  = "component"
)

// Procedure returns a slog.Attr for a procedure name
func Procedure(name string) slog.Attr {
	return slog.String(KeyProcedure, name)
}

// XID returns a slog.Attr for a call transaction ID
func XID(xid uint32) slog.Attr {
	return slog.Any(KeyXID, xid)
}

// Peer returns a slog.Attr for a remote address
func Peer(addr string) slog.Attr {
	return slog.String(KeyPeer, addr)
}

// Path returns a slog.Attr for a file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error. A nil error yields an empty Attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr with the milliseconds elapsed since start.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
