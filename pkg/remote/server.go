package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// DefaultShutdownTimeout is used when ServerConfig.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 30 * time.Second

// ServerConfig configures a Server.
type ServerConfig struct {
	// Network is "tcp" or "unix". Empty means "tcp".
	Network string

	// Address is host:port for tcp or a socket path for unix.
	Address string

	// MaxConnections limits concurrent connections. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Stop waits for peers to hang up
	// before closing their connections.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is the interval at which to log connection counts.
	// 0 disables periodic logging.
	MetricsLogInterval time.Duration

	// Conn is applied to every accepted connection.
	Conn Options
}

// Server exports a vfs.Provider to remote clients.
//
// Each accepted connection runs the serving side of the protocol on its own
// read loop. On shutdown the listener is closed first, then peers get up to
// ShutdownTimeout to disconnect before their connections are closed.
//
// All exported methods are safe for concurrent use.
type Server struct {
	config   ServerConfig
	provider vfs.Provider

	listenerMu    sync.RWMutex
	listener      net.Listener
	listenerReady chan struct{}
	readyOnce     sync.Once

	shutdownOnce sync.Once
	shutdown     chan struct{}

	connSemaphore chan struct{}
	connCount     atomic.Int32
	activeConns   sync.WaitGroup

	// conns maps connection ID to *Conn for forced closure.
	conns sync.Map
}

// NewServer creates a stopped server for provider.
func NewServer(provider vfs.Provider, config ServerConfig) *Server {
	if config.Network == "" {
		config.Network = "tcp"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	config.Conn = config.Conn.withDefaults()

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("Connection limit", "max_connections", config.MaxConnections)
	} else {
		logger.Debug("Connection limit", "max_connections", "unlimited")
	}

	if config.Conn.Metrics != nil {
		config.Conn.Metrics.ObserveLiveHandles(config.Conn.Table.Len)
	}

	return &Server{
		config:        config,
		provider:      provider,
		listenerReady: make(chan struct{}),
		shutdown:      make(chan struct{}),
		connSemaphore: connSemaphore,
	}
}

// Serve listens on the configured address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	if s.config.Network == "unix" {
		// A socket file left by a previous run blocks the bind.
		if err := os.Remove(s.config.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale socket %s: %w", s.config.Address, err)
		}
	}

	l, err := net.Listen(s.config.Network, s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s %s: %w", s.config.Network, s.config.Address, err)
	}
	return s.ServeListener(ctx, l)
}

// ServeListener serves connections accepted from l and takes ownership of
// it.
//
// Returns nil on graceful shutdown, or an error if connections had to be
// force-closed.
func (s *Server) ServeListener(ctx context.Context, l net.Listener) error {
	s.listenerMu.Lock()
	s.listener = l
	s.listenerMu.Unlock()
	s.readyOnce.Do(func() { close(s.listenerReady) })

	logger.Info("Remote provider listening",
		logger.KeyNetwork, l.Addr().Network(), logger.KeyAddress, l.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received", logger.KeyError, ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		nc, err := l.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting connection", logger.KeyError, err)
				continue
			}
		}

		if tcp, ok := nc.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
			}
		}

		s.track(nc)
	}
}

func (s *Server) track(nc net.Conn) {
	s.activeConns.Add(1)
	current := s.connCount.Add(1)

	conn := newConn(nc, s.provider, s.config.Conn)
	s.conns.Store(conn.ID(), conn)

	metrics := s.config.Conn.Metrics
	if metrics != nil {
		metrics.RecordConnectionAccepted()
		metrics.SetActiveConnections(current)
	}
	logger.Debug("Connection accepted",
		logger.KeyConnectionID, conn.ID(), logger.KeyAddress, remoteAddr(nc), logger.KeyActive, current)

	go func() {
		<-conn.Done()

		s.conns.Delete(conn.ID())
		s.activeConns.Done()
		remaining := s.connCount.Add(-1)
		if s.connSemaphore != nil {
			<-s.connSemaphore
		}

		if metrics != nil {
			metrics.RecordConnectionClosed()
			metrics.SetActiveConnections(remaining)
		}
		logger.Debug("Connection released",
			logger.KeyConnectionID, conn.ID(), logger.KeyActive, remaining)
	}()
}

// initiateShutdown stops accepting connections. Safe to call more than once.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Shutdown initiated")
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", logger.KeyError, err)
			}
		}
		s.listenerMu.Unlock()
	})
}

// gracefulShutdown waits for peers to hang up, then force-closes whatever
// is left.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("Graceful shutdown: waiting for active connections",
		logger.KeyActive, active, "timeout", s.config.ShutdownTimeout)

	select {
	case <-s.drained():
		logger.Info("Graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("Shutdown timeout exceeded - forcing closure",
			logger.KeyActive, remaining, "timeout", s.config.ShutdownTimeout)

		s.forceCloseConnections()
		<-s.drained()
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *Server) drained() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()
	return done
}

func (s *Server) forceCloseConnections() {
	closed := 0
	s.conns.Range(func(key, value any) bool {
		conn := value.(*Conn)
		_ = conn.Close()
		closed++
		logger.Debug("Force-closed connection", logger.KeyConnectionID, key)
		if s.config.Conn.Metrics != nil {
			s.config.Conn.Metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed connections", "count", closed)
	}
}

// Stop stops accepting connections and waits until every connection is
// gone or ctx is done. When ctx expires the remaining connections are
// closed and ctx.Err() is returned.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	select {
	case <-s.drained():
		return nil
	case <-ctx.Done():
		logger.Warn("Shutdown context cancelled",
			logger.KeyActive, s.connCount.Load(), logger.KeyError, ctx.Err())
		s.forceCloseConnections()
		return ctx.Err()
	}
}

func (s *Server) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("Remote provider metrics",
				"active_connections", s.connCount.Load(),
				"live_handles", s.config.Conn.Table.Len())
		}
	}
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr returns the listening address. It blocks until the listener is
// ready.
func (s *Server) Addr() net.Addr {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	return s.listener.Addr()
}
