package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for remote filesystem calls.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Peer attributes
	// ========================================================================
	AttrClientAddr   = "client.address"
	AttrConnectionID = "rfs.connection_id"

	// ========================================================================
	// RPC attributes
	// ========================================================================
	AttrRPCXID     = "rpc.xid"
	AttrRPCProgram = "rpc.program"
	AttrRPCVersion = "rpc.version"
	AttrRPCSide    = "rpc.side" // client or server

	// ========================================================================
	// RFS attributes
	// ========================================================================
	AttrProcedure = "rfs.procedure"
	AttrOutcome   = "rfs.outcome" // ok, failed, stale, violation
	AttrHandle    = "rfs.handle"
	AttrEntries   = "rfs.entries"

	// ========================================================================
	// Filesystem attributes
	// ========================================================================
	AttrPath      = "fs.path"
	AttrOtherPath = "fs.other_path"
	AttrErrorCode = "fs.error_code"
	AttrStoreName = "fs.store"
	AttrProvider  = "rfs.provider" // resource attribute: local or memory
)

// Side of a call span.
const (
	SideClient = "client"
	SideServer = "server"
)

// SpanPrefix is prepended to procedure names to form span names
// (rfs.LIST_DIRECTORY, rfs.READ_ATTRIBUTES, ...).
const SpanPrefix = "rfs."

// ClientAddr returns an attribute for the peer address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ConnectionID returns an attribute for the connection ID
func ConnectionID(id string) attribute.KeyValue {
	return attribute.String(AttrConnectionID, id)
}

// RPCXID returns an attribute for the call transaction ID
func RPCXID(xid uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCXID, int64(xid))
}

// Procedure returns an attribute for the procedure name
func Procedure(name string) attribute.KeyValue {
	return attribute.String(AttrProcedure, name)
}

// Outcome returns an attribute for the outcome arm of a reply
func Outcome(status string) attribute.KeyValue {
	return attribute.String(AttrOutcome, status)
}

// Handle returns an attribute for a handle in its printable form
func Handle(h string) attribute.KeyValue {
	return attribute.String(AttrHandle, h)
}

// Entries returns an attribute for the size of a directory batch
func Entries(n int) attribute.KeyValue {
	return attribute.Int(AttrEntries, n)
}

// FSPath returns an attribute for a file path
func FSPath(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// FSOtherPath returns an attribute for the second path of a two-path call
func FSOtherPath(path string) attribute.KeyValue {
	return attribute.String(AttrOtherPath, path)
}

// ErrorCode returns an attribute for a domain error code name
func ErrorCode(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}

// StoreName returns an attribute for a file store name
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StartCallSpan starts a span for one remote call. side is SideClient for
// the caller and SideServer for the stub answering it.
func StartCallSpan(ctx context.Context, side, procedure string, xid uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		attribute.String(AttrRPCSide, side),
		Procedure(procedure),
		RPCXID(xid),
	}
	allAttrs = append(allAttrs, attrs...)

	kind := trace.SpanKindClient
	if side == SideServer {
		kind = trace.SpanKindServer
	}
	return StartSpan(ctx, SpanPrefix+procedure, trace.WithAttributes(allAttrs...), trace.WithSpanKind(kind))
}

// EndCallSpan records the outcome and ends span. A non-nil err marks the
// span as failed.
func EndCallSpan(span trace.Span, outcome string, err error) {
	if outcome != "" {
		span.SetAttributes(Outcome(outcome))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
