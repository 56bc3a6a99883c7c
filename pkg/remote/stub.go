package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/internal/protocol/rpc"
	"github.com/marmos91/remotefs/internal/protocol/xdr"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// procHandler answers one CALL. It returns the accept status, the reply
// body (meaningful only for SUCCESS) and the outcome name for logs and
// metrics.
type procHandler func(s *stub, ctx context.Context, body []byte) (stat uint32, reply []byte, outcome string)

// stub is the serving half of a connection: it decodes arguments, runs the
// provider operation and settles the result into an Outcome.
type stub struct {
	conn     *Conn
	codec    *Codec
	table    *handle.Table
	provider vfs.Provider
}

func newStub(c *Conn) *stub {
	return &stub{conn: c, codec: c.codec, table: c.table, provider: c.provider}
}

// Procedures every connection answers. Provider procedures are answered
// only when the connection serves a provider.
var (
	commonHandlers = map[uint32]procHandler{
		rfs.ProcNull:         (*stub).null,
		rfs.ProcHello:        (*stub).hello,
		rfs.ProcRelease:      (*stub).release,
		rfs.ProcFilterAccept: (*stub).filterAccept,
	}

	providerHandlers = map[uint32]procHandler{
		rfs.ProcListDirectory:      (*stub).listDirectory,
		rfs.ProcCreateDirectory:    (*stub).createDirectory,
		rfs.ProcCreateSymbolicLink: (*stub).createSymbolicLink,
		rfs.ProcCreateLink:         (*stub).createLink,
		rfs.ProcDelete:             (*stub).delete,
		rfs.ProcDeleteIfExists:     (*stub).deleteIfExists,
		rfs.ProcReadSymbolicLink:   (*stub).readSymbolicLink,
		rfs.ProcIsSameFile:         (*stub).isSameFile,
		rfs.ProcIsHidden:           (*stub).isHidden,
		rfs.ProcGetFileStore:       (*stub).getFileStore,
		rfs.ProcCheckAccess:        (*stub).checkAccess,
		rfs.ProcReadAttributes:     (*stub).readAttributes,
		rfs.ProcFileStoreSpace:     (*stub).fileStoreSpace,
	}
)

func (s *stub) handle(ctx context.Context, msg *rpc.Message) (uint32, []byte, string) {
	if msg.Call.Program != rfs.Program {
		return rpc.AcceptProgUnavail, nil, ""
	}
	if msg.Call.Version != rfs.Version {
		return rpc.AcceptProgMismatch, nil, ""
	}

	h, ok := commonHandlers[msg.Call.Procedure]
	if !ok && s.provider != nil {
		h, ok = providerHandlers[msg.Call.Procedure]
	}
	if !ok {
		logger.DebugCtx(ctx, "Procedure unavailable")
		return rpc.AcceptProcUnavail, nil, ""
	}
	return h(s, ctx, msg.Body)
}

// run decodes args from body, runs op and settles the outcome.
//
// Errors returned by op are sorted here: a stale handle becomes a STALE
// outcome, a malformed argument becomes GARBAGE_ARGS, and anything else is
// a domain failure delivered through the channel.
func (s *stub) run(ctx context.Context, body []byte, args xdr.XdrDecoder, op func(ctx context.Context) ([]byte, error)) (uint32, []byte, string) {
	if args != nil {
		if err := xdr.Unmarshal(body, args); err != nil {
			logger.DebugCtx(ctx, "Undecodable arguments", logger.KeyError, err)
			return rpc.AcceptGarbageArgs, nil, ""
		}
	}

	result, err := op(ctx)

	var ch Channel
	var stale *handle.StaleError
	var bad *valueError
	switch {
	case err == nil:
	case errors.As(err, &bad):
		logger.DebugCtx(ctx, "Malformed argument", logger.KeyError, err)
		return rpc.AcceptGarbageArgs, nil, ""
	case errors.As(err, &stale):
		return s.reply(ctx, rfs.Stale(stale.Handle))
	default:
		failure := asDomainError(err)
		telemetry.SetAttributes(ctx, telemetry.ErrorCode(failure.Code.String()))
		if err := ch.Set(failure); err != nil {
			logger.WarnCtx(ctx, "Operation raised more than one failure", logger.KeyError, err)
		}
	}

	return s.reply(ctx, settle(result, &ch))
}

func (s *stub) reply(ctx context.Context, out *rfs.Outcome) (uint32, []byte, string) {
	data, err := xdr.Marshal(out)
	if err != nil {
		logger.ErrorCtx(ctx, "Cannot encode outcome", logger.KeyError, err)
		return rpc.AcceptSystemErr, nil, ""
	}
	if out.Status == rfs.StatusViolation {
		logger.WarnCtx(ctx, "Operation broke the call contract", "reason", out.Violation)
	}
	return rpc.AcceptSuccess, data, out.Status.String()
}

// asDomainError converts any provider error into a *vfs.Error so that it
// can be transported. Errors that are not domain failures become IOError.
func asDomainError(err error) *vfs.Error {
	if e, ok := vfs.AsError(err); ok {
		return e
	}
	if e, ok := vfs.AsError(vfs.FromError(err, "")); ok {
		return e
	}
	return vfs.NewError(vfs.ErrIO, "", err.Error())
}

func flat(v any) ([]byte, error) {
	return rfs.MarshalFlat(v)
}

// ============================================================================
// Session procedures
// ============================================================================

func (s *stub) null(_ context.Context, _ []byte) (uint32, []byte, string) {
	return rpc.AcceptSuccess, nil, "ok"
}

func (s *stub) hello(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.HelloArgs
	if err := rfs.UnmarshalFlat(body, &args); err != nil {
		return rpc.AcceptGarbageArgs, nil, ""
	}
	if args.Version != rfs.Version {
		logger.InfoCtx(ctx, "Peer speaks an unsupported version",
			logger.KeyVersion, args.Version, "software", args.Software)
		return rpc.AcceptProgMismatch, nil, ""
	}

	s.conn.setPeerEndpoint(uuid.UUID(args.Endpoint))
	logger.DebugCtx(ctx, "Peer said hello",
		logger.KeyEndpoint, uuid.UUID(args.Endpoint).String(), "software", args.Software)

	reply, err := flat(&rfs.HelloRes{
		Version:  rfs.Version,
		Endpoint: s.table.Endpoint(),
		Software: Software,
	})
	if err != nil {
		return rpc.AcceptSystemErr, nil, ""
	}
	return rpc.AcceptSuccess, reply, "ok"
}

func (s *stub) release(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.ReleaseArgs
	if err := rfs.UnmarshalFlat(body, &args); err != nil {
		return rpc.AcceptGarbageArgs, nil, ""
	}
	return s.run(ctx, nil, nil, func(ctx context.Context) ([]byte, error) {
		h := args.Handle.Handle()
		logger.DebugCtx(ctx, "Releasing handle", logger.KeyHandle, h.String())
		return nil, s.table.ReleaseScoped(h, s.conn.ID())
	})
}

func (s *stub) filterAccept(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.FilterAcceptArgs
	if err := rfs.UnmarshalFlat(body, &args); err != nil {
		return rpc.AcceptGarbageArgs, nil, ""
	}
	return s.run(ctx, nil, nil, func(ctx context.Context) ([]byte, error) {
		obj, err := s.table.LookupScoped(args.Filter.Handle(), s.conn.ID())
		if err != nil {
			return nil, err
		}
		filter, ok := obj.(vfs.Filter)
		if !ok {
			return nil, &valueError{what: "filter", got: rfs.ValueHandle, err: fmt.Errorf("handle refers to %T", obj)}
		}
		accepted, err := filter.Accept(ctx, vfs.Path(args.Path))
		if err != nil {
			return nil, err
		}
		return flat(&rfs.BoolRes{Value: accepted})
	})
}

// ============================================================================
// Provider procedures
// ============================================================================

func (s *stub) listDirectory(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.ListDirectoryArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		dir, err := s.codec.UnwrapPath(args.Dir)
		if err != nil {
			return nil, err
		}
		filter, err := s.codec.UnwrapFilter(args.Filter)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(dir)))

		entries, err := Drain(ctx, s.provider, dir, filter)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.Entries(len(entries)))

		res := rfs.ListDirectoryRes{Entries: make([]string, len(entries))}
		for i, p := range entries {
			res.Entries[i] = string(p)
		}
		return flat(&res)
	})
}

func (s *stub) createDirectory(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.CreateDirectoryArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		dir, err := s.codec.UnwrapPath(args.Dir)
		if err != nil {
			return nil, err
		}
		attrs, err := s.codec.UnwrapFileAttributes(args.Attrs)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(dir)))
		return nil, s.provider.CreateDirectory(ctx, dir, attrs...)
	})
}

func (s *stub) createSymbolicLink(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.CreateSymbolicLinkArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		link, err := s.codec.UnwrapPath(args.Link)
		if err != nil {
			return nil, err
		}
		target, err := s.codec.UnwrapPath(args.Target)
		if err != nil {
			return nil, err
		}
		attrs, err := s.codec.UnwrapFileAttributes(args.Attrs)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(link)), telemetry.FSOtherPath(string(target)))
		return nil, s.provider.CreateSymbolicLink(ctx, link, target, attrs...)
	})
}

func (s *stub) createLink(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.CreateLinkArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		link, err := s.codec.UnwrapPath(args.Link)
		if err != nil {
			return nil, err
		}
		existing, err := s.codec.UnwrapPath(args.Existing)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(link)), telemetry.FSOtherPath(string(existing)))
		return nil, s.provider.CreateLink(ctx, link, existing)
	})
}

func (s *stub) delete(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.PathArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)))
		return nil, s.provider.Delete(ctx, p)
	})
}

func (s *stub) deleteIfExists(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.PathArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)))
		deleted, err := s.provider.DeleteIfExists(ctx, p)
		if err != nil {
			return nil, err
		}
		return flat(&rfs.BoolRes{Value: deleted})
	})
}

func (s *stub) readSymbolicLink(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.PathArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		link, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(link)))
		target, err := s.provider.ReadSymbolicLink(ctx, link)
		if err != nil {
			return nil, err
		}
		return s.wrapResult(target)
	})
}

func (s *stub) isSameFile(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.PathPairArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		p2, err := s.codec.UnwrapPath(args.Path2)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)), telemetry.FSOtherPath(string(p2)))
		same, err := s.provider.IsSameFile(ctx, p, p2)
		if err != nil {
			return nil, err
		}
		return flat(&rfs.BoolRes{Value: same})
	})
}

func (s *stub) isHidden(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.PathArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)))
		hidden, err := s.provider.IsHidden(ctx, p)
		if err != nil {
			return nil, err
		}
		return flat(&rfs.BoolRes{Value: hidden})
	})
}

func (s *stub) getFileStore(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.PathArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)))
		store, err := s.provider.GetFileStore(ctx, p)
		if err != nil {
			return nil, err
		}

		v, err := s.codec.Wrap(store)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.StoreName(store.Name()), telemetry.Handle(v.Handle.String()))
		return flat(&rfs.FileStoreRes{
			Store:    rfs.ToWire(v.Handle),
			Name:     store.Name(),
			Type:     store.Type(),
			ReadOnly: store.IsReadOnly(),
		})
	})
}

func (s *stub) checkAccess(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.CheckAccessArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		modes, err := s.codec.UnwrapAccessModes(args.Modes)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)))
		return nil, s.provider.CheckAccess(ctx, p, modes...)
	})
}

func (s *stub) readAttributes(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.ReadAttributesArgs
	return s.run(ctx, body, &args, func(ctx context.Context) ([]byte, error) {
		p, err := s.codec.UnwrapPath(args.Path)
		if err != nil {
			return nil, err
		}
		kind, err := s.codec.UnwrapAttributeKind(args.Kind)
		if err != nil {
			return nil, err
		}
		opts, err := s.codec.UnwrapLinkOptions(args.Options)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.FSPath(string(p)))
		attrs, err := s.provider.ReadAttributes(ctx, p, kind, opts...)
		if err != nil {
			return nil, err
		}
		return s.wrapResult(attrs)
	})
}

func (s *stub) fileStoreSpace(ctx context.Context, body []byte) (uint32, []byte, string) {
	var args rfs.FileStoreSpaceArgs
	if err := rfs.UnmarshalFlat(body, &args); err != nil {
		return rpc.AcceptGarbageArgs, nil, ""
	}
	return s.run(ctx, nil, nil, func(ctx context.Context) ([]byte, error) {
		obj, err := s.table.LookupScoped(args.Store.Handle(), s.conn.ID())
		if err != nil {
			return nil, err
		}
		store, ok := obj.(vfs.FileStore)
		if !ok {
			return nil, &valueError{what: "file store", got: rfs.ValueHandle, err: fmt.Errorf("handle refers to %T", obj)}
		}

		var n int64
		switch args.Which {
		case rfs.SpaceTotal:
			n, err = store.TotalSpace(ctx)
		case rfs.SpaceUsable:
			n, err = store.UsableSpace(ctx)
		case rfs.SpaceUnallocated:
			n, err = store.UnallocatedSpace(ctx)
		default:
			return nil, &valueError{what: "space selector", got: rfs.ValueInt64, err: fmt.Errorf("unknown selector %d", args.Which)}
		}
		if err != nil {
			return nil, err
		}
		return flat(&rfs.SpaceRes{Bytes: n})
	})
}

// wrapResult encodes a single Marshaled Value result.
func (s *stub) wrapResult(v any) ([]byte, error) {
	val, err := s.codec.Wrap(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	res := rfs.ValueRes{Value: val}
	if err := res.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
