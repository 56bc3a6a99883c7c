package metrics

import "time"

// Call sides, used as a label so client and server traffic of the same
// process can be told apart.
const (
	SideClient = "client"
	SideServer = "server"
)

// RemoteMetrics provides observability for remote provider connections.
//
// This interface is optional: pass nil to disable metrics collection with
// zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewRemoteMetrics()
//	srv := remote.NewServer(cfg, provider, m)
//
//	// Without metrics
//	srv := remote.NewServer(cfg, provider, nil)
type RemoteMetrics interface {
	// RecordRequest records a completed call.
	//
	// Parameters:
	//   - side: SideClient or SideServer
	//   - procedure: Procedure name (e.g., "LIST_DIRECTORY")
	//   - duration: Time from CALL to REPLY
	//   - outcome: Outcome arm ("ok", "failed", "stale", "violation") or the
	//     accept status name when the call was rejected
	RecordRequest(side, procedure string, duration time.Duration, outcome string)

	// RecordRequestStart increments the in-flight call gauge.
	RecordRequestStart(side, procedure string)

	// RecordRequestEnd decrements the in-flight call gauge.
	RecordRequestEnd(side, procedure string)

	// RecordRecordSize records the size of a record sent or received.
	//
	// Parameters:
	//   - direction: "in" or "out"
	//   - bytes: Record size without the record mark
	RecordRecordSize(direction string, bytes int)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed connections
	// counter. Called when connections are closed after the shutdown timeout.
	RecordConnectionForceClosed()

	// ObserveLiveHandles registers fn as the source of the live handle gauge.
	// fn is called at scrape time.
	ObserveLiveHandles(fn func() int)
}
