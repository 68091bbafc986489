package api

import "net/http"

// handleScanNow triggers an immediate market scan and returns the
// freshly persisted opportunities.
func (s *Server) handleScanNow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scan == nil {
		writeError(w, http.StatusServiceUnavailable, "market scanning is not configured")
		return
	}

	found := s.deps.Scan.ScanNow(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"found":         len(found),
		"opportunities": found,
	})
}
