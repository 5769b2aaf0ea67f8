package orca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLegacySwapOutput(t *testing.T) {
	out, impact, err := CalculateLegacySwapOutput(1000, 1_000_000, 1_000_000, 3, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(996), out)
	assert.InDelta(t, 0.004, impact, 0.001)

	_, _, err = CalculateLegacySwapOutput(0, 1, 1, 3, 1000)
	assert.Error(t, err)

	_, _, err = CalculateLegacySwapOutput(10, 1, 1, 1000, 1000)
	assert.Error(t, err)
}

func TestApplySlippage(t *testing.T) {
	assert.Equal(t, uint64(990), ApplySlippage(1000, 100))
	assert.Equal(t, uint64(1000), ApplySlippage(1000, 0))
	assert.Zero(t, ApplySlippage(1000, 10000))
}

func TestValidatePriceImpact(t *testing.T) {
	assert.NoError(t, ValidatePriceImpact(0.005, 100))
	assert.Error(t, ValidatePriceImpact(0.05, 100))
	assert.NoError(t, ValidatePriceImpact(0.9, 0))
}

func TestCalculateFeeBps(t *testing.T) {
	assert.Equal(t, uint16(30), CalculateFeeBps(3, 1000))
	assert.Zero(t, CalculateFeeBps(3, 0))
}
