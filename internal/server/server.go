package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/nerrad567/domotic-core/internal/infrastructure/logging"
	"github.com/nerrad567/domotic-core/internal/invoke"
)

// Handler turns one inbound datagram into one reply.
// *dispatch.Dispatcher satisfies it.
type Handler interface {
	Handle(ctx context.Context, raw, source string) string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, raw, source string) string

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, raw, source string) string {
	return f(ctx, raw, source)
}

// internalErrorReply is sent when the handler panics.
const internalErrorReply = "500 Internal Server Error"

// Server is the node's UDP command listener.
//
// A single goroutine reads a datagram, hands it to the Handler and writes
// the reply back to the sender before reading the next one.
type Server struct {
	addr    string
	handler Handler
	logger  *logging.Logger

	mu     sync.Mutex
	conn   *net.UDPConn
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Server that will listen on addr (host:port). Port 0 picks
// an ephemeral port; see LocalAddr.
func New(addr string, handler Handler, logger *logging.Logger) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger.Component("server"),
	}, nil
}

// Start binds the socket and launches the serve loop.
//
// Returns:
//   - error: If the address is invalid or already in use
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("server already started")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.conn = conn
	s.done = make(chan struct{})

	// Parent cancellation closes the socket, which ends the read loop.
	context.AfterFunc(srvCtx, func() { _ = conn.Close() })

	go s.serve(srvCtx, conn, s.done)

	s.logger.Info("listening for commands", "address", conn.LocalAddr().String())
	return nil
}

// LocalAddr returns the bound address, or an invalid AddrPort before Start.
func (s *Server) LocalAddr() netip.AddrPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return netip.AddrPort{}
	}
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Close stops the serve loop and waits for the in-flight command to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	conn, cancel, done := s.conn, s.cancel, s.done
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	cancel()
	<-done
	s.logger.Info("command listener stopped")
	return nil
}

// HealthCheck reports whether the listener is bound and serving.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("server health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return fmt.Errorf("server not started")
	}
	select {
	case <-done:
		return fmt.Errorf("server stopped")
	default:
		return nil
	}
}

func (s *Server) serve(ctx context.Context, conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, invoke.MaxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("read failed", "error", err)
			continue
		}

		reply := s.handle(ctx, string(buf[:n]), from)
		if _, err := conn.WriteToUDPAddrPort([]byte(reply), from); err != nil {
			s.logger.Warn("reply failed", "to", from.String(), "error", err)
		}
	}
}

// handle runs the handler, converting a panic into a 500 reply.
func (s *Server) handle(ctx context.Context, raw string, from netip.AddrPort) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handling command",
				"from", from.String(),
				"panic", r,
			)
			reply = internalErrorReply
		}
	}()
	return s.handler.Handle(ctx, raw, "udp:"+from.String())
}
