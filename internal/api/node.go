package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 2 * time.Second

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth reports liveness and the state of every registered component.
// The HTTP status is 503 when any component is unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	components := make(map[string]componentHealth, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		if err != nil {
			status = "degraded"
			components[name] = componentHealth{Status: "error", Error: err.Error()}
			continue
		}
		components[name] = componentHealth{Status: "ok"}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

type nodeResponse struct {
	Name      string `json:"name"`
	NameSet   bool   `json:"name_set"`
	Address   string `json:"address"`
	Broadcast string `json:"broadcast"`
	Options   string `json:"options"`
	Devices   int    `json:"devices"`
	Capacity  int    `json:"capacity"`
}

// handleGetNode returns the node identity and directory occupancy.
func (s *Server) handleGetNode(w http.ResponseWriter, _ *http.Request) {
	id := s.dispatcher.Identity()
	dir := s.dispatcher.Directory()

	resp := nodeResponse{
		Name:     id.Name(),
		NameSet:  id.Name() != "",
		Options:  s.dispatcher.Options(),
		Devices:  dir.Len(),
		Capacity: dir.Capacity(),
	}
	if a := id.Addr(); a.IsValid() {
		resp.Address = a.String()
	}
	if b := id.Broadcast(); b.IsValid() {
		resp.Broadcast = b.String()
	}

	writeJSON(w, http.StatusOK, resp)
}
