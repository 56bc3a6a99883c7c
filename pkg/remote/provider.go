package remote

import (
	"context"
	"fmt"
	"net"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/internal/protocol/xdr"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// Client is a vfs.Provider whose operations run on a remote rfsd. Every
// method is one call on the underlying connection; concurrent calls are
// multiplexed over it.
//
// Failures come in four shapes: *vfs.Error for domain failures raised by
// the remote provider, *TransportError when the call could not complete,
// *handle.StaleError for handles the peer no longer knows, and
// *ProtocolError when the peer broke the call contract.
type Client struct {
	conn *Conn

	// Server identification learned in HELLO.
	ServerSoftware string
}

var _ vfs.Provider = (*Client)(nil)

// Dial connects to an rfsd listening on network/address and performs the
// HELLO handshake.
func Dial(ctx context.Context, network, address string, opts Options) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, transportError("dial", err)
	}
	return NewClient(ctx, nc, opts)
}

// NewClient runs the client side of the protocol over an established
// connection. It takes ownership of nc.
func NewClient(ctx context.Context, nc net.Conn, opts Options) (*Client, error) {
	conn := newConn(nc, nil, opts)

	res, err := conn.hello(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("Connected to remote provider",
		logger.KeyAddress, remoteAddr(nc), "software", res.Software,
		logger.KeyConnectionID, conn.ID())
	return &Client{conn: conn, ServerSoftware: res.Software}, nil
}

// Conn returns the underlying connection.
func (c *Client) Conn() *Conn { return c.conn }

// Close closes the connection. Pending calls fail with a TransportError.
func (c *Client) Close() error { return c.conn.Close() }

// Ping calls NULL on the server.
func (c *Client) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

func decodeBool(proc string, result []byte) (bool, error) {
	var res rfs.BoolRes
	if err := rfs.UnmarshalFlat(result, &res); err != nil {
		return false, transportError(proc, fmt.Errorf("malformed result: %w", err))
	}
	return res.Value, nil
}

func (c *Client) decodeValue(proc string, result []byte) (rfs.Value, error) {
	var res rfs.ValueRes
	if err := xdr.Unmarshal(result, &res); err != nil {
		return rfs.Value{}, transportError(proc, fmt.Errorf("malformed result: %w", err))
	}
	return res.Value, nil
}

// NewDirectoryStream lists dir on the server and exposes the batch as a
// stream. A filter that is not declarative is exported by handle for the
// duration of the call and evaluated through FILTER_ACCEPT callbacks.
func (c *Client) NewDirectoryStream(ctx context.Context, dir vfs.Path, filter vfs.Filter) (vfs.DirectoryStream, error) {
	entries, err := c.ListDirectory(ctx, dir, filter)
	if err != nil {
		return nil, err
	}
	return vfs.NewSliceStream(entries), nil
}

// ListDirectory returns the Directory Entry Batch for dir without the
// stream wrapper.
func (c *Client) ListDirectory(ctx context.Context, dir vfs.Path, filter vfs.Filter) ([]vfs.Path, error) {
	fv := rfs.Null
	if filter != nil {
		var err error
		if fv, err = c.conn.codec.Wrap(filter); err != nil {
			return nil, err
		}
		defer c.conn.codec.Release(fv)
	}

	result, err := c.conn.call(ctx, rfs.ProcListDirectory, &rfs.ListDirectoryArgs{
		Dir:    pathValue(dir),
		Filter: fv,
	}, telemetry.FSPath(string(dir)))
	if err != nil {
		return nil, err
	}

	var res rfs.ListDirectoryRes
	if err := rfs.UnmarshalFlat(result, &res); err != nil {
		return nil, transportError("LIST_DIRECTORY", fmt.Errorf("malformed result: %w", err))
	}
	entries := make([]vfs.Path, len(res.Entries))
	for i, e := range res.Entries {
		entries[i] = vfs.Path(e)
	}
	return entries, nil
}

func (c *Client) CreateDirectory(ctx context.Context, dir vfs.Path, attrs ...vfs.FileAttribute) error {
	_, err := c.conn.call(ctx, rfs.ProcCreateDirectory, &rfs.CreateDirectoryArgs{
		Dir:   pathValue(dir),
		Attrs: fileAttributesValue(attrs),
	}, telemetry.FSPath(string(dir)))
	return err
}

func (c *Client) CreateSymbolicLink(ctx context.Context, link, target vfs.Path, attrs ...vfs.FileAttribute) error {
	_, err := c.conn.call(ctx, rfs.ProcCreateSymbolicLink, &rfs.CreateSymbolicLinkArgs{
		Link:   pathValue(link),
		Target: pathValue(target),
		Attrs:  fileAttributesValue(attrs),
	}, telemetry.FSPath(string(link)), telemetry.FSOtherPath(string(target)))
	return err
}

func (c *Client) CreateLink(ctx context.Context, link, existing vfs.Path) error {
	_, err := c.conn.call(ctx, rfs.ProcCreateLink, &rfs.CreateLinkArgs{
		Link:     pathValue(link),
		Existing: pathValue(existing),
	}, telemetry.FSPath(string(link)), telemetry.FSOtherPath(string(existing)))
	return err
}

func (c *Client) Delete(ctx context.Context, p vfs.Path) error {
	_, err := c.conn.call(ctx, rfs.ProcDelete, &rfs.PathArgs{Path: pathValue(p)}, telemetry.FSPath(string(p)))
	return err
}

func (c *Client) DeleteIfExists(ctx context.Context, p vfs.Path) (bool, error) {
	result, err := c.conn.call(ctx, rfs.ProcDeleteIfExists, &rfs.PathArgs{Path: pathValue(p)}, telemetry.FSPath(string(p)))
	if err != nil {
		return false, err
	}
	return decodeBool("DELETE_IF_EXISTS", result)
}

func (c *Client) ReadSymbolicLink(ctx context.Context, link vfs.Path) (vfs.Path, error) {
	result, err := c.conn.call(ctx, rfs.ProcReadSymbolicLink, &rfs.PathArgs{Path: pathValue(link)}, telemetry.FSPath(string(link)))
	if err != nil {
		return "", err
	}
	v, err := c.decodeValue("READ_SYMBOLIC_LINK", result)
	if err != nil {
		return "", err
	}
	target, err := c.conn.codec.UnwrapPath(v)
	if err != nil {
		return "", transportError("READ_SYMBOLIC_LINK", err)
	}
	return target, nil
}

func (c *Client) IsSameFile(ctx context.Context, p, p2 vfs.Path) (bool, error) {
	result, err := c.conn.call(ctx, rfs.ProcIsSameFile, &rfs.PathPairArgs{
		Path:  pathValue(p),
		Path2: pathValue(p2),
	}, telemetry.FSPath(string(p)), telemetry.FSOtherPath(string(p2)))
	if err != nil {
		return false, err
	}
	return decodeBool("IS_SAME_FILE", result)
}

func (c *Client) IsHidden(ctx context.Context, p vfs.Path) (bool, error) {
	result, err := c.conn.call(ctx, rfs.ProcIsHidden, &rfs.PathArgs{Path: pathValue(p)}, telemetry.FSPath(string(p)))
	if err != nil {
		return false, err
	}
	return decodeBool("IS_HIDDEN", result)
}

// GetFileStore returns a proxy for the store holding p. Name, type and the
// read-only flag are captured now; space figures are fetched on demand.
// Close the store (a *FileStore) to release it on the server; otherwise it
// lives as long as the connection.
func (c *Client) GetFileStore(ctx context.Context, p vfs.Path) (vfs.FileStore, error) {
	result, err := c.conn.call(ctx, rfs.ProcGetFileStore, &rfs.PathArgs{Path: pathValue(p)}, telemetry.FSPath(string(p)))
	if err != nil {
		return nil, err
	}
	var res rfs.FileStoreRes
	if err := rfs.UnmarshalFlat(result, &res); err != nil {
		return nil, transportError("GET_FILE_STORE", fmt.Errorf("malformed result: %w", err))
	}
	return newFileStore(c.conn, &res), nil
}

func (c *Client) CheckAccess(ctx context.Context, p vfs.Path, modes ...vfs.AccessMode) error {
	_, err := c.conn.call(ctx, rfs.ProcCheckAccess, &rfs.CheckAccessArgs{
		Path:  pathValue(p),
		Modes: accessModesValue(modes),
	}, telemetry.FSPath(string(p)))
	return err
}

func (c *Client) ReadAttributes(ctx context.Context, p vfs.Path, kind vfs.AttributeKind, opts ...vfs.LinkOption) (vfs.Attributes, error) {
	result, err := c.conn.call(ctx, rfs.ProcReadAttributes, &rfs.ReadAttributesArgs{
		Path:    pathValue(p),
		Kind:    attributeKindValue(kind),
		Options: linkOptionsValue(opts),
	}, telemetry.FSPath(string(p)))
	if err != nil {
		return nil, err
	}
	v, err := c.decodeValue("READ_ATTRIBUTES", result)
	if err != nil {
		return nil, err
	}
	attrs, err := c.conn.codec.UnwrapAttributes(v)
	if err != nil {
		return nil, transportError("READ_ATTRIBUTES", err)
	}
	return attrs, nil
}
