package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/trahn-agents/internal/marketdata"
	"github.com/kjannette/trahn-agents/internal/models"
	"github.com/kjannette/trahn-agents/internal/notifications"
	"github.com/kjannette/trahn-agents/internal/registry"
	"github.com/kjannette/trahn-agents/internal/risk"
)

// AgentLookup resolves an agent row, needed to attribute trades to the
// owning user.
type AgentLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

// Defaults fill in per-agent settings the owner left unset.
type Defaults struct {
	Symbols      []string
	TickInterval time.Duration
	TradeSizeUSD float64
}

// Factory builds Trader runtimes for the registry. Per-agent settings
// override the service defaults: "symbols" is a comma-separated list,
// "tradeSizeUsd" a dollar amount.
type Factory struct {
	Agents   AgentLookup
	Provider marketdata.Provider
	Guardian *risk.Guardian
	Trades   TradeRecorder
	Settler  Settler
	Notify   *notifications.Sender
	Defaults Defaults
}

func (f *Factory) NewContext(agentID uuid.UUID, cfg registry.Config) (registry.ExecutionContext, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row, err := f.Agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("look up agent %s: %w", agentID, err)
	}
	if row == nil {
		return nil, fmt.Errorf("agent %s not found", agentID)
	}

	symbols := f.Defaults.Symbols
	if raw, ok := cfg.Settings["symbols"]; ok {
		if parsed := ParseSymbols(raw); len(parsed) > 0 {
			symbols = parsed
		}
	}

	return NewTrader(TraderParams{
		AgentID:      agentID,
		UserID:       row.UserID,
		Symbols:      symbols,
		TickInterval: f.Defaults.TickInterval,
		TradeSizeUSD: ParseTradeSize(cfg.Settings["tradeSizeUsd"], f.Defaults.TradeSizeUSD),
		Provider:     f.Provider,
		Guardian:     f.Guardian,
		Trades:       f.Trades,
		Settler:      f.Settler,
		Notify:       f.Notify,
	})
}
