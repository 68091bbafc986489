package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy defines how a transaction fee is derived from a trade's USD
// notional. A zero MinimumFee or MaximumFee disables that bound.
type Policy struct {
	Percentage float64 // e.g. 0.001 for 0.1%
	MinimumFee float64
	MaximumFee float64
}

// DefaultPolicy is a 0.1% fee with a $0.01 floor.
var DefaultPolicy = Policy{
	Percentage: 0.001,
	MinimumFee: 0.01,
}

// Calculation is the computed fee for a single trade.
type Calculation struct {
	FeeAmount     float64 `json:"feeAmount"`
	FeePercentage float64 `json:"feePercentage"`
	TradeValue    float64 `json:"tradeValue"`
}

// InvalidTradeValueError reports a caller contract violation: fees are
// only defined for non-negative trade values.
type InvalidTradeValueError struct {
	TradeValue float64
}

func (e *InvalidTradeValueError) Error() string {
	return fmt.Sprintf("invalid trade value %.2f: must be non-negative", e.TradeValue)
}

// Calculate derives the fee for a trade notional under the given policy.
//
// The raw fee is tradeValue × percentage, clamped to the policy bounds
// (minimum applied before maximum), then rounded half-up to cents —
// the minimum unit of the USD-pegged settlement asset. A maximum below
// the minimum is a policy configuration error.
func Calculate(tradeValue float64, policy Policy) (Calculation, error) {
	if tradeValue < 0 {
		return Calculation{}, &InvalidTradeValueError{TradeValue: tradeValue}
	}
	if policy.MaximumFee > 0 && policy.MinimumFee > 0 && policy.MaximumFee < policy.MinimumFee {
		return Calculation{}, fmt.Errorf("invalid fee policy: maximum %.2f below minimum %.2f",
			policy.MaximumFee, policy.MinimumFee)
	}

	fee := decimal.NewFromFloat(tradeValue).Mul(decimal.NewFromFloat(policy.Percentage))

	if min := decimal.NewFromFloat(policy.MinimumFee); policy.MinimumFee > 0 && fee.LessThan(min) {
		fee = min
	}
	if max := decimal.NewFromFloat(policy.MaximumFee); policy.MaximumFee > 0 && fee.GreaterThan(max) {
		fee = max
	}

	amount, _ := fee.Round(2).Float64()
	return Calculation{
		FeeAmount:     amount,
		FeePercentage: policy.Percentage,
		TradeValue:    tradeValue,
	}, nil
}
