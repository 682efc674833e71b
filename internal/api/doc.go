// Package api provides the admin HTTP API of a domotic node.
//
// It exposes read access to the node identity and directory, the command
// log, and a command endpoint that feeds text commands through the same
// dispatcher as UDP traffic (serialised with it).
//
// Routes (all under /api/v1):
//
//	GET    /health             liveness plus component checks
//	GET    /node               identity, options and directory size
//	GET    /devices            directory in insertion order
//	POST   /devices            register a peer (runs ADD)
//	DELETE /devices/{name}     remove a peer (runs DEL)
//	POST   /commands           run any protocol command
//	GET    /audit              command log, newest first
//
// The server follows the same lifecycle as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// There is no authentication: bind the API to a trusted interface.
package api
