// Package invoke is the remote invocation client: it sends one command
// datagram to a peer and waits, up to a timeout, for exactly one reply.
//
// # Reply matching
//
// The wire protocol has no request id. The client therefore only accepts a
// reply whose source address is the target. When every peer runs this
// implementation, correlation can be enabled: requests are sent as
// "@<id> <command>" and replies must echo the same tag. Dispatchers always
// echo an inbound tag, so tagged and untagged peers interoperate.
//
// # Usage
//
//	client := invoke.NewClient(invoke.WithCorrelation(cfg.Relay.Correlate))
//	reply, err := client.Invoke(ctx, "GET lamp led", addr, 9999, 5*time.Second)
//	if errors.Is(err, invoke.ErrTimeout) {
//	    // peer did not answer
//	}
package invoke
