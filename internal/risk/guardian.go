package risk

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DailyTradeCounter abstracts the trade-counting dependency so Guardian
// can be tested without a real database.
type DailyTradeCounter interface {
	CountToday(ctx context.Context, agentID uuid.UUID) (int, error)
}

// Limits holds the per-agent risk thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxDailyTrades     int
	MaxPositionSizeUSD float64
}

type Guardian struct {
	limits  Limits
	counter DailyTradeCounter
}

func NewGuardian(limits Limits, counter DailyTradeCounter) *Guardian {
	return &Guardian{limits: limits, counter: counter}
}

// PreTradeCheck validates per-trade constraints before execution.
// Returns nil if the trade is allowed, a descriptive error if blocked.
// The daily count is scoped to the agent placing the trade, so one
// busy agent never locks out its siblings.
func (g *Guardian) PreTradeCheck(ctx context.Context, agentID uuid.UUID, tradeUSDValue float64) error {
	if g.limits.MaxPositionSizeUSD > 0 && tradeUSDValue > g.limits.MaxPositionSizeUSD {
		return fmt.Errorf("trade blocked: position size $%.2f exceeds max $%.2f",
			tradeUSDValue, g.limits.MaxPositionSizeUSD)
	}

	if g.limits.MaxDailyTrades > 0 && g.counter != nil {
		count, err := g.counter.CountToday(ctx, agentID)
		if err != nil {
			return fmt.Errorf("trade blocked: unable to verify daily trade count: %w", err)
		}
		if count >= g.limits.MaxDailyTrades {
			return fmt.Errorf("trade blocked: agent %s hit daily limit of %d trades (%d executed today)",
				agentID, g.limits.MaxDailyTrades, count)
		}
	}

	return nil
}
