package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/trahn-agents/internal/marketdata"
	"github.com/kjannette/trahn-agents/internal/models"
	"github.com/kjannette/trahn-agents/internal/notifications"
	"github.com/kjannette/trahn-agents/internal/risk"
	"github.com/kjannette/trahn-agents/internal/scanner"
)

// Settler is the slice of the settlement pipeline a trader drives.
type Settler interface {
	SettleTrade(ctx context.Context, trade *models.Trade) (*models.FeeRecord, error)
}

// TradeRecorder persists a new pending trade.
type TradeRecorder interface {
	Record(ctx context.Context, t *models.Trade) (*models.Trade, error)
}

// Trader is the live runtime behind one agent: a ticker loop that
// scans its symbols for opportunities, risk-checks the strongest one,
// and runs the winning trade through settlement.
type Trader struct {
	agentID uuid.UUID
	userID  uuid.UUID

	scanner      *scanner.Scanner
	provider     marketdata.Provider
	guardian     *risk.Guardian
	trades       TradeRecorder
	settler      Settler
	notify       *notifications.Sender
	tickInterval time.Duration
	tradeSizeUSD float64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	TicksProcessed int
	TradesExecuted int
}

type TraderParams struct {
	AgentID      uuid.UUID
	UserID       uuid.UUID
	Symbols      []string
	TickInterval time.Duration
	TradeSizeUSD float64
	Provider     marketdata.Provider
	Guardian     *risk.Guardian
	Trades       TradeRecorder
	Settler      Settler
	Notify       *notifications.Sender
}

func NewTrader(p TraderParams) (*Trader, error) {
	if len(p.Symbols) == 0 {
		return nil, fmt.Errorf("agent %s has no symbols to trade", p.AgentID)
	}
	if p.TradeSizeUSD <= 0 {
		return nil, fmt.Errorf("agent %s has invalid trade size %.2f", p.AgentID, p.TradeSizeUSD)
	}
	if p.TickInterval <= 0 {
		p.TickInterval = time.Minute
	}

	return &Trader{
		agentID: p.AgentID,
		userID:  p.UserID,
		scanner: scanner.New(
			scanner.NewTechnicalDetector(p.Provider, p.Symbols, p.AgentID),
			scanner.NewSentimentDetector(p.Provider, p.Symbols, p.AgentID),
		),
		provider:     p.Provider,
		guardian:     p.Guardian,
		trades:       p.Trades,
		settler:      p.Settler,
		notify:       p.Notify,
		tickInterval: p.TickInterval,
		tradeSizeUSD: p.TradeSizeUSD,
	}, nil
}

// Start launches the trading loop. It returns immediately; the loop
// runs until Stop.
func (t *Trader) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.done = make(chan struct{})

	go t.run(t.stopCh, t.done)

	t.notify.Send(fmt.Sprintf("Agent %s trading loop started (every %s)", t.agentID, t.tickInterval))
	return nil
}

// Stop halts the loop and waits for the in-flight tick to finish, or
// for ctx to expire.
func (t *Trader) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	close(t.stopCh)
	done := t.done
	t.mu.Unlock()

	select {
	case <-done:
		t.notify.Send(fmt.Sprintf("Agent %s trading loop stopped", t.agentID))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("agent %s loop did not stop in time: %w", t.agentID, ctx.Err())
	}
}

func (t *Trader) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Trader) run(stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()

	// Do one immediate tick
	t.tick(context.Background())

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			t.tick(context.Background())
		}
	}
}

func (t *Trader) tick(ctx context.Context) {
	t.TicksProcessed++

	ops := t.scanner.Scan(ctx)
	if len(ops) == 0 {
		return
	}

	best := ops[0]
	fmt.Printf("[AGENT %s] Top signal: %s score %.2f (%s)\n",
		shortID(t.agentID), best.Symbol, best.Score, best.Description)

	quotes, err := t.provider.Prices(ctx, []string{best.Symbol})
	if err != nil {
		fmt.Printf("[AGENT %s] Price fetch failed: %v\n", shortID(t.agentID), err)
		return
	}
	price := quotes[best.Symbol].Price
	if price <= 0 {
		fmt.Printf("[AGENT %s] No usable price for %s, skipping tick\n", shortID(t.agentID), best.Symbol)
		return
	}

	if err := t.guardian.PreTradeCheck(ctx, t.agentID, t.tradeSizeUSD); err != nil {
		t.notify.Send(fmt.Sprintf("[RISK] %v", err))
		return
	}

	side := models.SideBuy
	if best.Criteria["signal"] == "overbought" {
		side = models.SideSell
	}

	trade, err := t.trades.Record(ctx, &models.Trade{
		AgentID: t.agentID,
		UserID:  t.userID,
		Symbol:  best.Symbol,
		Side:    side,
		Amount:  t.tradeSizeUSD / price,
		Price:   price,
	})
	if err != nil {
		fmt.Printf("[AGENT %s] Failed to record trade: %v\n", shortID(t.agentID), err)
		return
	}

	record, err := t.settler.SettleTrade(ctx, trade)
	if err != nil {
		fmt.Printf("[AGENT %s] Settlement failed for trade %s: %v\n", shortID(t.agentID), trade.ID, err)
		return
	}

	t.TradesExecuted++
	t.notify.Send(fmt.Sprintf("Agent %s executed %s %.6f %s @ $%.2f (fee $%.2f)",
		t.agentID, side, trade.Amount, trade.Symbol, price, record.FeeAmount))
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// ParseSymbols splits a comma-separated symbol list from agent
// settings, dropping empties.
func ParseSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(strings.ToUpper(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseTradeSize reads a dollar trade size from agent settings,
// falling back to def when absent or malformed.
func ParseTradeSize(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
