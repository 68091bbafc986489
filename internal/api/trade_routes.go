package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/kjannette/trahn-agents/internal/fees"
	"github.com/kjannette/trahn-agents/internal/models"
	"github.com/kjannette/trahn-agents/internal/repository"
)

type tradeCreateRequest struct {
	AgentID uuid.UUID `json:"agentId"`
	UserID  uuid.UUID `json:"userId"`
	Symbol  string    `json:"symbol"`
	Side    string    `json:"side"`
	Amount  float64   `json:"amount"`
	Price   float64   `json:"price"`
}

// parseAgentFilter extracts the optional ?agent= query parameter.
func parseAgentFilter(r *http.Request) (*uuid.UUID, error) {
	v := r.URL.Query().Get("agent")
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("invalid agent filter %q", v)
	}
	return &id, nil
}

// handleTradeCreate records the trade and runs it through fee
// settlement in one request.
func (s *Server) handleTradeCreate(w http.ResponseWriter, r *http.Request) {
	var body tradeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side := models.TradeSide(body.Side)
	if side != models.SideBuy && side != models.SideSell {
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}
	if body.Amount <= 0 || body.Price <= 0 {
		writeError(w, http.StatusBadRequest, "amount and price must be positive")
		return
	}
	if body.AgentID == uuid.Nil || body.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "agentId and userId are required")
		return
	}

	ctx := r.Context()
	trade, err := s.tradeRepo.Record(ctx, &models.Trade{
		AgentID: body.AgentID,
		UserID:  body.UserID,
		Symbol:  body.Symbol,
		Side:    side,
		Amount:  body.Amount,
		Price:   body.Price,
	})
	if err != nil {
		fmt.Printf("Error recording trade: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to record trade")
		return
	}

	fee, err := s.deps.Settle.SettleTrade(ctx, trade)
	if err != nil {
		var badValue *fees.InvalidTradeValueError
		if errors.As(err, &badValue) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fmt.Printf("Error settling trade %s: %v\n", trade.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to settle trade")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"trade": trade,
		"fee":   fee,
	})
}

func (s *Server) handleTradeList(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	agentID, err := parseAgentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.tradeRepo.GetAll(r.Context(), limit, agentID)
	if err != nil {
		fmt.Printf("Error fetching trades: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	agentID, err := parseAgentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.tradeRepo.Stats(r.Context(), agentID)
	if err != nil {
		fmt.Printf("Error fetching trade stats: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trade stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTradeCancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	if err := s.tradeRepo.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTradeNotPending) {
			writeError(w, http.StatusConflict, "only pending trades can be cancelled")
			return
		}
		fmt.Printf("Error cancelling trade %s: %v\n", id, err)
		writeError(w, http.StatusInternalServerError, "failed to cancel trade")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tradeId": id,
		"status":  models.TradeCancelled,
	})
}
