package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/domotic-core/internal/audit"
)

// handleListAudit returns command log entries, newest first.
//
// Query parameters:
//   - verb: exact verb (ADD, GET, ...)
//   - target: exact target device
//   - status: reply status code
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		fail(w, r, http.StatusServiceUnavailable, "command log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Verb:   q.Get("verb"),
		Target: q.Get("target"),
	}

	for param, dst := range map[string]*int{
		"status": &filter.Status,
		"limit":  &filter.Limit,
		"offset": &filter.Offset,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(w, r, http.StatusBadRequest, param+" must be an integer")
			return
		}
		*dst = n
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command log", "error", err)
		fail(w, r, http.StatusInternalServerError, "failed to list command log")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
