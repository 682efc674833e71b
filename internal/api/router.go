package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter mounts every route under /api/v1.
//
//	GET    /health          component health
//	GET    /node            identity, capabilities, directory size
//	GET    /devices         directory listing
//	POST   /devices         ADD through the dispatcher
//	GET    /devices/{name}  one entry
//	DELETE /devices/{name}  DEL through the dispatcher
//	POST   /commands        any protocol command
//	GET    /audit           command log
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(middleware.RequestSize(maxCommandBody))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/node", s.handleGetNode)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleAddDevice)
			r.Get("/{name}", s.handleGetDevice)
			r.Delete("/{name}", s.handleDeleteDevice)
		})

		r.Post("/commands", s.handleCommand)
		r.Get("/audit", s.handleListAudit)
	})

	return r
}
