package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/domotic-core/internal/dispatch"
)

type deviceResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type deviceListResponse struct {
	Devices  []deviceResponse `json:"devices"`
	Count    int              `json:"count"`
	Capacity int              `json:"capacity"`
}

type addDeviceRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`

	// Device skips the reciprocal registration (plain peripheral).
	Device bool `json:"device"`
}

// handleListDevices returns the directory in insertion order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	dir := s.dispatcher.Directory()
	devices := dir.List()

	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{Name: d.Name, Address: d.Address()})
	}

	writeJSON(w, http.StatusOK, deviceListResponse{
		Devices:  out,
		Count:    len(out),
		Capacity: dir.Capacity(),
	})
}

// handleGetDevice returns one directory entry.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := s.dispatcher.Directory().Find(name)
	if !ok {
		fail(w, r, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse{Name: d.Name, Address: d.Address()})
}

// handleAddDevice registers a peer by running ADD through the dispatcher,
// so reciprocal registration and validation match the UDP path.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !isToken(req.Name) || !isToken(req.Address) {
		fail(w, r, http.StatusBadRequest, "name and address are required and must not contain whitespace")
		return
	}

	cmd := "ADD " + req.Name + " " + req.Address
	if req.Device {
		cmd += " device"
	}

	res := s.run(r, cmd)
	if dispatch.IsNameConflict(res.Response) {
		res.Success = false
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, replyStatus(res.Status, http.StatusCreated), res)
}

// handleDeleteDevice removes a peer by running DEL through the dispatcher.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !isToken(name) {
		fail(w, r, http.StatusBadRequest, "invalid device name")
		return
	}

	res := s.run(r, "DEL "+name)
	writeJSON(w, replyStatus(res.Status, http.StatusOK), res)
}

// isToken reports whether s is a single non-empty protocol token.
func isToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\r\n@")
}
