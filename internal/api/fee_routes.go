package api

import (
	"fmt"
	"net/http"

	"github.com/kjannette/trahn-agents/internal/models"
)

var feeStatuses = map[models.FeeStatus]bool{
	models.FeePending:     true,
	models.FeeCollected:   true,
	models.FeeTransferred: true,
	models.FeeFailed:      true,
	models.FeeRefunded:    true,
}

func (s *Server) handleFeeList(w http.ResponseWriter, r *http.Request) {
	status := models.FeeStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.FeeCollected
	}
	if !feeStatuses[status] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown fee status %q", status))
		return
	}
	limit := parseLimit(r, 100)

	records, err := s.feeRepo.ListByStatus(r.Context(), status, limit)
	if err != nil {
		fmt.Printf("Error fetching fees: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch fees")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleFeeTransfer pushes one collected fee to the treasury on
// demand. The outcome is reported per item, never as an HTTP failure:
// a failed transfer is a recorded settlement result, not a broken
// request.
func (s *Server) handleFeeTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fee id")
		return
	}

	ctx := r.Context()
	fee, err := s.feeRepo.Get(ctx, id)
	if err != nil {
		fmt.Printf("Error fetching fee %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch fee")
		return
	}
	if fee == nil {
		writeError(w, http.StatusNotFound, "fee not found")
		return
	}

	result := s.deps.Settle.TransferFee(ctx, fee)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFeeBatchTransfer(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	batch, err := s.deps.Settle.SettleBatch(r.Context(), limit)
	if err != nil {
		fmt.Printf("Error running batch settlement: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to run batch settlement")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleUserFees(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	limit := parseLimit(r, 100)

	records, err := s.feeRepo.GetByUser(r.Context(), id, limit)
	if err != nil {
		fmt.Printf("Error fetching fees for user %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch fees")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUserFeeStats(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	stats, err := s.feeRepo.UserStats(r.Context(), id)
	if err != nil {
		fmt.Printf("Error fetching fee stats for user %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch fee stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
