package models

import (
	"time"

	"github.com/google/uuid"
)

// FeeStatus is the settlement state of a collected transaction fee.
//
// Lifecycle: a fee is created in "collected" when its trade executes.
// It moves to "transferred" only on confirmed on-chain finality, or to
// "failed" on any transfer error. Failed records are retained so the
// transfer can be retried; "refunded" is set out of band and is never
// produced by the settlement pipeline.
type FeeStatus string

const (
	FeePending     FeeStatus = "pending"
	FeeCollected   FeeStatus = "collected"
	FeeTransferred FeeStatus = "transferred"
	FeeFailed      FeeStatus = "failed"
	FeeRefunded    FeeStatus = "refunded"
)

type FeeRecord struct {
	ID            uuid.UUID  `json:"id"`
	TradeID       uuid.UUID  `json:"tradeId"`
	UserID        uuid.UUID  `json:"userId"`
	AgentID       uuid.UUID  `json:"agentId"`
	FeeAmount     float64    `json:"feeAmount"`
	FeePercentage float64    `json:"feePercentage"`
	TradeValue    float64    `json:"tradeValue"`
	Status        FeeStatus  `json:"status"`
	TransferTx    *string    `json:"transferTxHash,omitempty"`
	FailureDetail *string    `json:"failureDetail,omitempty"`
	CollectedAt   time.Time  `json:"collectedAt"`
	TransferredAt *time.Time `json:"transferredAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type FeeStats struct {
	TotalFees  float64 `json:"totalFees"`
	FeeCount   int64   `json:"feeCount"`
	AverageFee float64 `json:"averageFee"`
}
