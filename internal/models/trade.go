package models

import (
	"time"

	"github.com/google/uuid"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeExecuted  TradeStatus = "executed"
	TradeCancelled TradeStatus = "cancelled"
	TradeFailed    TradeStatus = "failed"
)

type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade is immutable once it reaches executed, cancelled or failed.
// Only pending trades may be cancelled.
type Trade struct {
	ID         uuid.UUID   `json:"id"`
	AgentID    uuid.UUID   `json:"agentId"`
	UserID     uuid.UUID   `json:"userId"`
	Symbol     string      `json:"symbol"`
	Side       TradeSide   `json:"side"`
	Amount     float64     `json:"amount"`
	Price      float64     `json:"price"`
	Status     TradeStatus `json:"status"`
	ExecutedAt *time.Time  `json:"executedAt,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Value is the trade notional in USD.
func (t *Trade) Value() float64 {
	return t.Amount * t.Price
}

type TradeStats struct {
	TotalTrades int64      `json:"totalTrades"`
	BuyCount    int64      `json:"buyCount"`
	SellCount   int64      `json:"sellCount"`
	TotalVolume *float64   `json:"totalVolume"`
	AvgPrice    *float64   `json:"avgPrice"`
	FirstTrade  *time.Time `json:"firstTrade"`
	LastTrade   *time.Time `json:"lastTrade"`
}
