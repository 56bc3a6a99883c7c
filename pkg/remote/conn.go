package remote

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/internal/protocol/rpc"
	"github.com/marmos91/remotefs/internal/protocol/xdr"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// DefaultMaxRequests bounds how many incoming calls one connection executes
// concurrently.
const DefaultMaxRequests = 64

// Software is announced in HELLO.
var Software = "remotefs"

var (
	processTable     *handle.Table
	processTableOnce sync.Once
)

// ProcessTable returns the handle table shared by every connection of this
// process that was not given its own.
func ProcessTable() *handle.Table {
	processTableOnce.Do(func() { processTable = handle.NewTable() })
	return processTable
}

// Options configures a connection. The zero value is usable.
type Options struct {
	// Table holds the objects this side exports by handle. Nil uses
	// ProcessTable. Two ends of a connection must not share a table.
	Table *handle.Table

	// MaxRecordSize bounds an incoming record. Zero means
	// rpc.DefaultMaxRecordSize.
	MaxRecordSize uint32

	// MaxRequests bounds concurrently executing incoming calls. Zero means
	// DefaultMaxRequests.
	MaxRequests int

	// IdleTimeout closes the connection when nothing is received for this
	// long. Zero disables it.
	IdleTimeout time.Duration

	// Metrics is optional.
	Metrics metrics.RemoteMetrics
}

func (o Options) withDefaults() Options {
	if o.Table == nil {
		o.Table = ProcessTable()
	}
	if o.MaxRecordSize == 0 {
		o.MaxRecordSize = rpc.DefaultMaxRecordSize
	}
	if o.MaxRequests <= 0 {
		o.MaxRequests = DefaultMaxRequests
	}
	return o
}

// Conn is one end of a remote filesystem connection. Both ends send CALLs
// and answer them: the dialing side calls provider procedures, the serving
// side calls FILTER_ACCEPT back while it enumerates a directory.
//
// A single reader goroutine demultiplexes the stream. REPLYs are routed to
// the waiting caller by XID; each CALL runs on its own goroutine. Writes are
// serialized by writeMu so records never interleave.
type Conn struct {
	id       string
	nc       net.Conn
	opts     Options
	table    *handle.Table
	provider vfs.Provider
	codec    *Codec
	stub     *stub
	logCtx   *logger.LogContext

	pending *rpc.PendingReplies
	nextXID atomic.Uint32
	writeMu sync.Mutex

	peerMu sync.RWMutex
	peer   uuid.UUID

	// ctx is the parent of every served call; cancelled when the
	// connection fails.
	ctx    context.Context
	cancel context.CancelFunc

	sem     chan struct{}
	serving sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
	done      chan struct{}
}

// newConn wraps nc and starts its read loop. provider is nil on a side that
// only consumes a provider.
func newConn(nc net.Conn, provider vfs.Provider, opts Options) *Conn {
	opts = opts.withDefaults()

	c := &Conn{
		id:       uuid.NewString(),
		nc:       nc,
		opts:     opts,
		table:    opts.Table,
		provider: provider,
		pending:  rpc.NewPendingReplies(),
		sem:      make(chan struct{}, opts.MaxRequests),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.codec = NewCodec(c.table, c.id, c)
	c.stub = newStub(c)
	c.logCtx = logger.NewLogContext(c.id, remoteAddr(nc))

	// Random start so XIDs of short-lived connections do not all look alike
	// in captures.
	c.nextXID.Store(uuid.New().ID())

	go c.readLoop()
	return c
}

func remoteAddr(nc net.Conn) string {
	if a := nc.RemoteAddr(); a != nil && a.String() != "" {
		return a.String()
	}
	return "local"
}

// ID returns the connection ID, which is also the handle scope of
// everything this side exported on the connection.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Done is closed once the connection is down and every served call has
// returned.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection went down, or nil while it is up.
func (c *Conn) Err() error {
	select {
	case <-c.closed:
		return c.closeErr
	default:
		return nil
	}
}

// Close shuts the connection down and waits for the read loop and served
// calls to finish. Pending calls fail with a TransportError.
func (c *Conn) Close() error {
	c.fail(ErrClosed)
	<-c.done
	return nil
}

func (c *Conn) peerEndpoint() uuid.UUID {
	c.peerMu.RLock()
	defer c.peerMu.RUnlock()
	return c.peer
}

func (c *Conn) setPeerEndpoint(id uuid.UUID) {
	c.peerMu.Lock()
	c.peer = id
	c.peerMu.Unlock()
}

// fail records the first reason the connection went down and tears it down.
func (c *Conn) fail(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		c.cancel()
		_ = c.nc.Close()

		if errors.Is(err, ErrClosed) || errors.Is(err, io.EOF) {
			logger.DebugCtx(logger.WithContext(context.Background(), c.logCtx), "Connection closed")
		} else {
			logger.InfoCtx(logger.WithContext(context.Background(), c.logCtx), "Connection failed", logger.KeyError, err)
		}
	})
}

// ============================================================================
// Read loop
// ============================================================================

func (c *Conn) readLoop() {
	defer func() {
		c.serving.Wait()
		if n := c.table.ReleaseScope(c.id); n > 0 {
			logger.Debug("Released connection handles",
				logger.KeyConnectionID, c.id, "count", n)
		}
		close(c.done)
	}()

	r := bufio.NewReader(c.nc)
	for {
		if c.opts.IdleTimeout > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout))
		}

		record, err := rpc.ReadRecord(r, c.opts.MaxRecordSize)
		if err != nil {
			c.fail(err)
			return
		}
		if c.opts.Metrics != nil {
			c.opts.Metrics.RecordRecordSize("in", len(record))
		}

		msg, err := rpc.ParseMessage(record)
		if err != nil {
			c.fail(fmt.Errorf("malformed record: %w", err))
			return
		}

		if msg.IsCall() {
			c.dispatch(msg)
			continue
		}
		if !c.pending.Deliver(msg) {
			logger.Debug("Dropping unsolicited reply",
				logger.KeyConnectionID, c.id, logger.KeyXID, msg.XID)
		}
	}
}

// dispatch runs one incoming CALL. Replies must keep flowing while calls
// wait for a slot, so the slot is taken inside the goroutine and the read
// loop never blocks on it.
func (c *Conn) dispatch(msg *rpc.Message) {
	select {
	case <-c.closed:
		return
	default:
	}

	c.serving.Add(1)
	go func() {
		defer c.serving.Done()

		select {
		case c.sem <- struct{}{}:
		case <-c.closed:
			return
		}
		defer func() { <-c.sem }()

		c.serve(msg)
	}()
}

func (c *Conn) serve(msg *rpc.Message) {
	proc := rfs.ProcName(msg.Call.Procedure)
	lc := c.logCtx.WithCall(proc, msg.XID)
	ctx := logger.WithContext(c.ctx, lc)

	ctx, span := telemetry.StartCallSpan(ctx, telemetry.SideServer, proc, msg.XID,
		telemetry.ConnectionID(c.id), telemetry.ClientAddr(lc.Peer))
	ctx = logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRequestStart(metrics.SideServer, proc)
		defer c.opts.Metrics.RecordRequestEnd(metrics.SideServer, proc)
	}

	stat, body, outcome := uint32(rpc.AcceptSystemErr), []byte(nil), ""
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorCtx(ctx, "Panic while serving call",
					"panic", r, "stack", string(debug.Stack()))
				stat, body, outcome = rpc.AcceptSystemErr, nil, ""
			}
		}()
		stat, body, outcome = c.stub.handle(ctx, msg)
	}()

	if outcome == "" {
		outcome = rpc.AcceptStatName(stat)
	}
	logger.DebugCtx(ctx, "Call served", logger.KeyOutcome, outcome, logger.DurationMs(lc.StartTime))
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRequest(metrics.SideServer, proc, time.Since(lc.StartTime), outcome)
	}

	var spanErr error
	if stat != rpc.AcceptSuccess {
		spanErr = fmt.Errorf("call rejected: %s", rpc.AcceptStatName(stat))
	}
	telemetry.EndCallSpan(span, outcome, spanErr)

	reply, err := rpc.EncodeReply(msg.XID, stat, body)
	if err == nil {
		err = c.send(reply)
	}
	if err != nil {
		logger.DebugCtx(ctx, "Reply not sent", logger.KeyError, err)
	}
}

func (c *Conn) send(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return c.closeErr
	default:
	}

	if err := rpc.WriteRecord(c.nc, msg); err != nil {
		c.fail(err)
		return err
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRecordSize("out", len(msg))
	}
	return nil
}

// ============================================================================
// Outgoing calls
// ============================================================================

// roundTrip sends one CALL and waits for its REPLY. Anything but a SUCCESS
// reply is a TransportError. A cancelled ctx stops the wait only; the peer
// still runs the procedure.
func (c *Conn) roundTrip(ctx context.Context, proc uint32, xid uint32, body []byte) ([]byte, error) {
	name := rfs.ProcName(proc)

	select {
	case <-c.closed:
		return nil, transportError(name, c.closeErr)
	default:
	}

	call, err := rpc.EncodeCall(xid, rpc.CallHeader{
		Program:   rfs.Program,
		Version:   rfs.Version,
		Procedure: proc,
	}, body)
	if err != nil {
		return nil, transportError(name, err)
	}

	replyCh := c.pending.Register(xid)
	defer c.pending.Cancel(xid)

	if err := c.send(call); err != nil {
		return nil, transportError(name, err)
	}

	select {
	case reply := <-replyCh:
		if reply.AcceptStat != rpc.AcceptSuccess {
			return nil, transportError(name, fmt.Errorf("call rejected: %s", rpc.AcceptStatName(reply.AcceptStat)))
		}
		return reply.Body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		// A reply that raced the failure still wins.
		select {
		case reply := <-replyCh:
			if reply.AcceptStat == rpc.AcceptSuccess {
				return reply.Body, nil
			}
		default:
		}
		return nil, transportError(name, c.closeErr)
	}
}

// call invokes a procedure whose reply body is an Outcome and turns the
// Outcome into the result bytes or the matching error.
func (c *Conn) call(ctx context.Context, proc uint32, args xdr.XdrEncoder, attrs ...attribute.KeyValue) ([]byte, error) {
	var body []byte
	if args != nil {
		var err error
		if body, err = xdr.Marshal(args); err != nil {
			return nil, fmt.Errorf("encode %s arguments: %w", rfs.ProcName(proc), err)
		}
	}

	var result []byte
	err := c.observe(ctx, proc, attrs, func(ctx context.Context, xid uint32) (string, error) {
		reply, err := c.roundTrip(ctx, proc, xid, body)
		if err != nil {
			return "", err
		}

		var out rfs.Outcome
		if err := out.Decode(bytes.NewReader(reply)); err != nil {
			return "", transportError(rfs.ProcName(proc), fmt.Errorf("malformed reply: %w", err))
		}
		if out.Status == rfs.StatusOK {
			result = out.Result
		}
		return out.Status.String(), outcomeError(rfs.ProcName(proc), &out)
	})
	return result, err
}

// callFlat invokes a procedure without an Outcome (NULL, HELLO).
func (c *Conn) callFlat(ctx context.Context, proc uint32, args, res any) error {
	var body []byte
	if args != nil {
		var err error
		if body, err = rfs.MarshalFlat(args); err != nil {
			return fmt.Errorf("encode %s arguments: %w", rfs.ProcName(proc), err)
		}
	}
	return c.observe(ctx, proc, nil, func(ctx context.Context, xid uint32) (string, error) {
		reply, err := c.roundTrip(ctx, proc, xid, body)
		if err != nil {
			return "", err
		}
		if res == nil {
			return "ok", nil
		}
		if err := rfs.UnmarshalFlat(reply, res); err != nil {
			return "", transportError(rfs.ProcName(proc), fmt.Errorf("malformed reply: %w", err))
		}
		return "ok", nil
	})
}

// observe wraps one outgoing call with a span, a log line and metrics.
func (c *Conn) observe(ctx context.Context, proc uint32, attrs []attribute.KeyValue, fn func(ctx context.Context, xid uint32) (string, error)) error {
	name := rfs.ProcName(proc)
	xid := c.nextXID.Add(1)
	start := time.Now()

	ctx, span := telemetry.StartCallSpan(ctx, telemetry.SideClient, name, xid,
		append(attrs, telemetry.ConnectionID(c.id))...)
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRequestStart(metrics.SideClient, name)
		defer c.opts.Metrics.RecordRequestEnd(metrics.SideClient, name)
	}

	outcome, err := fn(ctx, xid)
	if outcome == "" {
		outcome = "transport"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
	}

	logger.DebugCtx(ctx, "Call completed",
		logger.KeyConnectionID, c.id, logger.KeyProcedure, name, logger.KeyXID, xid,
		logger.KeyOutcome, outcome, logger.DurationMs(start), logger.Err(err))
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordRequest(metrics.SideClient, name, time.Since(start), outcome)
	}
	telemetry.EndCallSpan(span, outcome, err)
	return err
}

// ============================================================================
// Calls both sides make
// ============================================================================

// Ping calls NULL.
func (c *Conn) Ping(ctx context.Context) error {
	return c.callFlat(ctx, rfs.ProcNull, nil, nil)
}

// hello exchanges endpoints with the peer.
func (c *Conn) hello(ctx context.Context) (*rfs.HelloRes, error) {
	var res rfs.HelloRes
	err := c.callFlat(ctx, rfs.ProcHello, &rfs.HelloArgs{
		Version:  rfs.Version,
		Endpoint: c.table.Endpoint(),
		Software: Software,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Version != rfs.Version {
		return nil, transportError("HELLO", fmt.Errorf("peer speaks version %d, want %d", res.Version, rfs.Version))
	}
	c.setPeerEndpoint(uuid.UUID(res.Endpoint))
	return &res, nil
}

// release asks the peer to drop one of its handles.
func (c *Conn) release(ctx context.Context, h handle.Handle) error {
	_, err := c.call(ctx, rfs.ProcRelease, &flatArgs{v: &rfs.ReleaseArgs{Handle: rfs.ToWire(h)}})
	return err
}

// filterAccept evaluates a filter the peer exported.
func (c *Conn) filterAccept(ctx context.Context, h handle.Handle, entry vfs.Path) (bool, error) {
	result, err := c.call(ctx, rfs.ProcFilterAccept, &flatArgs{v: &rfs.FilterAcceptArgs{
		Filter: rfs.ToWire(h),
		Path:   string(entry),
	}})
	if err != nil {
		return false, err
	}
	var res rfs.BoolRes
	if err := rfs.UnmarshalFlat(result, &res); err != nil {
		return false, transportError("FILTER_ACCEPT", fmt.Errorf("malformed result: %w", err))
	}
	return res.Value, nil
}

// flatArgs adapts a go-xdr struct to xdr.XdrEncoder.
type flatArgs struct{ v any }

func (a *flatArgs) Encode(buf *bytes.Buffer) error {
	data, err := rfs.MarshalFlat(a.v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
