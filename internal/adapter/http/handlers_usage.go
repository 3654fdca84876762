package adapthttp

import (
	"net/http"
	"time"
)

// handleUsage returns a usage snapshot across the configured providers.
// Session-gated; the provider fetchers themselves are opaque
// collaborators.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	readings := s.usageSvc.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"readings":    readings,
		"lastUpdated": time.Now().UTC(),
	})
}
