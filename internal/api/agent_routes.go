package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kjannette/trahn-agents/internal/registry"
)

type agentStartRequest struct {
	Settings map[string]string `json:"settings,omitempty"`
}

// handleAgentStart brings the agent's runtime up, reusing a live one
// when its configuration still matches. Request-body settings override
// the stored ones for this start.
func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	ctx := r.Context()
	row, err := s.agentRepo.Get(ctx, id)
	if err != nil {
		fmt.Printf("Error fetching agent %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch agent")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	var body agentStartRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	settings := row.Settings
	if len(body.Settings) > 0 {
		merged := make(map[string]string, len(settings)+len(body.Settings))
		for k, v := range settings {
			merged[k] = v
		}
		for k, v := range body.Settings {
			merged[k] = v
		}
		settings = merged
	}

	handle, err := s.deps.Registry.Start(ctx, id, registry.Config{Name: row.Name, Settings: settings})
	if err != nil {
		var initErr *registry.InitError
		if errors.As(err, &initErr) {
			writeError(w, http.StatusUnprocessableEntity, initErr.Error())
			return
		}
		fmt.Printf("Error starting agent %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to start agent")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agentId": handle.AgentID,
		"status":  "active",
		"name":    handle.Config.Name,
	})
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	s.deps.Registry.Stop(r.Context(), id)

	writeJSON(w, http.StatusOK, map[string]any{
		"agentId": id,
		"status":  "inactive",
	})
}

// handleAgentStatus reports the agent status derived from runtime
// presence, overwriting whatever the row said before.
func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	ctx := r.Context()
	row, err := s.agentRepo.Get(ctx, id)
	if err != nil {
		fmt.Printf("Error fetching agent %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch agent")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	status := s.deps.Registry.Reconcile(ctx, id)
	_, live := s.deps.Registry.Get(id)

	writeJSON(w, http.StatusOK, map[string]any{
		"agentId": id,
		"name":    row.Name,
		"status":  status,
		"live":    live,
	})
}

func (s *Server) handleAgentOpportunities(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	limit := parseLimit(r, 50)

	ops, err := s.oppRepo.GetRecent(r.Context(), id, limit)
	if err != nil {
		fmt.Printf("Error fetching opportunities for %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch opportunities")
		return
	}
	writeJSON(w, http.StatusOK, ops)
}
