package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"time"

	"github.com/nerrad567/domotic-core/internal/invoke"
)

// ExitCommand ends a session. It is not sent to the node.
const ExitCommand = "EXIT"

// Prompts and messages written to the session output.
const (
	PromptServer  = "Server address: "
	PromptCommand = "Command (EXIT to quit): "
	MsgTimedOut   = "timed out"
	MsgBye        = "Leaving console."
	replyPrefix   = "Reply: "
)

// ErrInvalidServer is returned when the entered server address is not an IP.
var ErrInvalidServer = errors.New("console: invalid server address")

// Invoker sends one command and waits for one reply. *invoke.Client
// satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, message string, target netip.Addr, port int, timeout time.Duration) (string, error)
}

// Session is one interactive console run.
type Session struct {
	In      io.Reader
	Out     io.Writer
	Invoker Invoker

	// Server is the node to talk to. When invalid, the session prompts
	// for it first.
	Server netip.Addr
	Port   int

	// Timeout bounds each reply wait. Zero waits indefinitely.
	Timeout time.Duration
}

// Run drives the session until EXIT, end of input, or ctx cancellation.
//
// Returns:
//   - nil on EXIT or end of input
//   - ErrInvalidServer if the prompted address does not parse
//   - invoke.ErrTransportUnavailable (wrapped) if no local socket can be opened
//   - ctx.Err() if the context is cancelled while waiting for a reply
func (s *Session) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.In)
	scanner.Buffer(make([]byte, 0, invoke.MaxDatagramSize), invoke.MaxDatagramSize)

	server := s.Server
	if !server.IsValid() {
		fmt.Fprint(s.Out, PromptServer)
		if !scanner.Scan() {
			return scanner.Err()
		}
		addr, err := netip.ParseAddr(strings.TrimSpace(scanner.Text()))
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidServer, strings.TrimSpace(scanner.Text()))
		}
		server = addr.Unmap()
	}

	for {
		fmt.Fprint(s.Out, PromptCommand)
		if !scanner.Scan() {
			fmt.Fprintln(s.Out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, ExitCommand):
			fmt.Fprintln(s.Out, MsgBye)
			return nil
		}

		reply, err := s.Invoker.Invoke(ctx, line, server, s.Port, s.Timeout)
		switch {
		case err == nil:
			fmt.Fprintln(s.Out, replyPrefix+strings.TrimRight(reply, "\n"))
		case errors.Is(err, invoke.ErrTimeout):
			fmt.Fprintln(s.Out, MsgTimedOut)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("sending %q: %w", line, err)
		}
	}
}
