// Package server runs the UDP command listener of a domotic node.
//
// Datagrams are processed strictly one after another: the next datagram is
// read only once the reply to the previous one has been sent. A panic in
// the handler is recovered and answered with "500 Internal Server Error".
//
//	srv, err := server.New(cfg.ListenAddr(), dispatcher, logger)
//	if err := srv.Start(ctx); err != nil { ... }
//	defer srv.Close()
package server
