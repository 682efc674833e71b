// Command domotic-console is an interactive client for a domotic node.
//
// It reads one command per line, sends it to the node over UDP and prints
// the reply, until EXIT or end of input.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/nerrad567/domotic-core/internal/console"
	"github.com/nerrad567/domotic-core/internal/invoke"
)

type cli struct {
	Server    string        `help:"Node address; prompted for when empty" env:"DOMOTIC_SERVER"`
	Port      int           `help:"Node command port" default:"9999" env:"DOMOTIC_PORT"`
	Timeout   time.Duration `help:"Reply timeout, 0 waits indefinitely" default:"0s" env:"DOMOTIC_TIMEOUT"`
	Correlate bool          `help:"Tag requests and ignore replies without the matching tag" env:"DOMOTIC_CORRELATE"`
}

func main() {
	var params cli
	kong.Parse(&params,
		kong.Name("domotic-console"),
		kong.Description("Interactive console for a domotic node."),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := params.session()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	sess.In = os.Stdin
	sess.Out = os.Stdout

	if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session builds a console session from the parsed flags, without I/O.
func (c *cli) session() (*console.Session, error) {
	if c.Port < 1 || c.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative")
	}

	var server netip.Addr
	if c.Server != "" {
		addr, err := netip.ParseAddr(c.Server)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", console.ErrInvalidServer, c.Server)
		}
		server = addr.Unmap()
	}

	return &console.Session{
		Invoker: invoke.NewClient(invoke.WithCorrelation(c.Correlate)),
		Server:  server,
		Port:    c.Port,
		Timeout: c.Timeout,
	}, nil
}
