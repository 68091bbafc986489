package fees

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_BasicPercentage(t *testing.T) {
	calc, err := Calculate(10000, Policy{Percentage: 0.001, MinimumFee: 0.01})
	require.NoError(t, err)

	assert.Equal(t, 10.00, calc.FeeAmount)
	assert.Equal(t, 0.001, calc.FeePercentage)
	assert.Equal(t, 10000.0, calc.TradeValue)
}

func TestCalculate_MinimumFloorApplied(t *testing.T) {
	calc, err := Calculate(1, Policy{Percentage: 0.001, MinimumFee: 0.01})
	require.NoError(t, err)

	// 1 × 0.001 = 0.001, below the $0.01 floor
	assert.Equal(t, 0.01, calc.FeeAmount)
}

func TestCalculate_MaximumCapApplied(t *testing.T) {
	calc, err := Calculate(1_000_000, Policy{Percentage: 0.001, MaximumFee: 500})
	require.NoError(t, err)

	// raw fee would be $1000, capped at $500
	assert.Equal(t, 500.0, calc.FeeAmount)
}

func TestCalculate_MinimumBeforeMaximum(t *testing.T) {
	// raw below minimum, minimum above... maximum respected last
	calc, err := Calculate(10, Policy{Percentage: 0.001, MinimumFee: 2, MaximumFee: 5})
	require.NoError(t, err)
	assert.Equal(t, 2.0, calc.FeeAmount)
}

func TestCalculate_RoundsHalfUp(t *testing.T) {
	// 12345 × 0.001 = 12.345 → 12.35 (half-up, not banker's)
	calc, err := Calculate(12345, Policy{Percentage: 0.001})
	require.NoError(t, err)
	assert.Equal(t, 12.35, calc.FeeAmount)

	// 12.344… stays 12.34
	calc, err = Calculate(12344, Policy{Percentage: 0.001})
	require.NoError(t, err)
	assert.Equal(t, 12.34, calc.FeeAmount)
}

func TestCalculate_ZeroValue(t *testing.T) {
	calc, err := Calculate(0, Policy{Percentage: 0.001})
	require.NoError(t, err)
	assert.Equal(t, 0.0, calc.FeeAmount)

	// the floor still applies to a zero-value trade
	calc, err = Calculate(0, DefaultPolicy)
	require.NoError(t, err)
	assert.Equal(t, 0.01, calc.FeeAmount)
}

func TestCalculate_NegativeValueRejected(t *testing.T) {
	_, err := Calculate(-1, DefaultPolicy)
	require.Error(t, err)

	var invalid *InvalidTradeValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, -1.0, invalid.TradeValue)
}

func TestCalculate_InvertedBoundsRejected(t *testing.T) {
	_, err := Calculate(100, Policy{Percentage: 0.001, MinimumFee: 10, MaximumFee: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum")
}

func TestCalculate_WithinBoundsWhenSet(t *testing.T) {
	policy := Policy{Percentage: 0.002, MinimumFee: 0.50, MaximumFee: 100}
	for _, value := range []float64{0, 1, 99.99, 250, 10_000, 49_999.50, 1_000_000} {
		calc, err := Calculate(value, policy)
		require.NoError(t, err, "value %.2f", value)
		assert.GreaterOrEqual(t, calc.FeeAmount, policy.MinimumFee, "value %.2f", value)
		assert.LessOrEqual(t, calc.FeeAmount, policy.MaximumFee, "value %.2f", value)
	}
}
