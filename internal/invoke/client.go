package invoke

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// MaxDatagramSize bounds the payload read for a single reply or command.
const MaxDatagramSize = 8192

// Logger is the logging surface used by the client.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client performs one request/response exchange per call over UDP.
//
// Each call allocates its own ephemeral socket, sends a single datagram and
// waits for a single reply. There is no retransmission.
//
// By default datagrams from any address other than the target are discarded
// while waiting. A multi-homed peer that answers from another interface is
// then never heard and the call times out; WithSourceCheck(false) accepts
// such replies. With correlation enabled the request carries an "@<id> " tag and
// only a reply echoing the same tag is accepted.
//
// Thread Safety:
//   - Invoke is safe for concurrent use; calls share no socket.
type Client struct {
	localAddr *net.UDPAddr
	localErr  error
	correlate   bool
	sourceCheck bool
	logger      Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLocalAddr binds the ephemeral socket to addr (host:port). An
// unparseable address makes every Invoke fail with ErrTransportUnavailable.
func WithLocalAddr(addr string) Option {
	return func(c *Client) {
		c.localAddr, c.localErr = net.ResolveUDPAddr("udp", addr)
	}
}

// WithCorrelation enables request tagging.
func WithCorrelation(enabled bool) Option {
	return func(c *Client) {
		c.correlate = enabled
	}
}

// WithSourceCheck controls whether replies must come from the target
// address. Enabled by default. Pair a disabled check with WithCorrelation
// so stray datagrams are still rejected by tag.
func WithSourceCheck(enabled bool) Option {
	return func(c *Client) {
		c.sourceCheck = enabled
	}
}

// WithLogger sets the client logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{sourceCheck: true, logger: noopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke sends message to target:port and returns the reply payload.
//
// Parameters:
//   - ctx: Cancels the wait early; its deadline also bounds the wait
//   - message: Command text, sent as one datagram
//   - target, port: Peer endpoint
//   - timeout: Maximum wait for the reply; zero waits until ctx is done
//
// Returns:
//   - string: Reply payload, verbatim (minus the correlation tag)
//   - error: ErrTimeout, ErrTransportUnavailable or the context error
func (c *Client) Invoke(ctx context.Context, message string, target netip.Addr, port int, timeout time.Duration) (string, error) {
	if !target.IsValid() || port < 1 || port > 65535 {
		return "", fmt.Errorf("%w: invalid target %s:%d", ErrTransportUnavailable, target, port)
	}
	target = target.Unmap()
	if c.localErr != nil {
		return "", fmt.Errorf("%w: %w", ErrTransportUnavailable, c.localErr)
	}

	conn, err := net.ListenUDP("udp", c.localAddr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	defer conn.Close() //nolint:errcheck // best-effort close of a per-call socket

	var tag string
	payload := message
	if c.correlate {
		tag = NewTag()
		payload = Tag(tag, message)
	}

	dst := netip.AddrPortFrom(target, uint16(port)) //nolint:gosec // range checked above
	if _, err := conn.WriteToUDPAddrPort([]byte(payload), dst); err != nil {
		return "", fmt.Errorf("%w: sending to %s: %w", ErrTransportUnavailable, dst, err)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	// Wake the blocked read on cancellation.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
				return "", ctxErr
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "", fmt.Errorf("%w from %s", ErrTimeout, dst)
			}
			return "", fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
		}

		if c.sourceCheck && from.Addr().Unmap() != target {
			c.logger.Debug("ignoring datagram from unexpected source",
				"expected", target.String(),
				"from", from.String(),
			)
			continue
		}

		reply := string(buf[:n])
		if c.correlate {
			id, rest := SplitTag(reply)
			if id != tag {
				c.logger.Debug("ignoring reply with mismatched tag",
					"expected", tag,
					"got", id,
					"from", from.String(),
				)
				continue
			}
			reply = rest
		}
		return reply, nil
	}
}
