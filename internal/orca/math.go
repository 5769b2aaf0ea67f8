package orca

import (
	"fmt"
	"math"
	"math/big"
)

const bpsDenominator = 10000

// CalculateLegacySwapOutput computes output for constant-product AMM (legacy pools)
// Uses x * y = k formula with fees applied to input
// Returns (amountOut, priceImpact, error)
func CalculateLegacySwapOutput(
	amountIn uint64,
	reserveIn uint64,
	reserveOut uint64,
	feeNumerator uint64,
	feeDenominator uint64,
) (uint64, float64, error) {

	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return 0, 0, fmt.Errorf("invalid inputs: amounts must be > 0")
	}
	if feeDenominator == 0 || feeNumerator >= feeDenominator {
		return 0, 0, fmt.Errorf("invalid fee %d/%d", feeNumerator, feeDenominator)
	}

	// amountInAfterFee = amountIn * (feeDenominator - feeNumerator) / feeDenominator
	afterFee := new(big.Int).Mul(
		new(big.Int).SetUint64(amountIn),
		new(big.Int).SetUint64(feeDenominator-feeNumerator),
	)
	afterFee.Div(afterFee, new(big.Int).SetUint64(feeDenominator))

	// out = (afterFee * reserveOut) / (reserveIn + afterFee)
	numerator := new(big.Int).Mul(afterFee, new(big.Int).SetUint64(reserveOut))
	denominator := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), afterFee)
	out := new(big.Int).Div(numerator, denominator)

	if !out.IsUint64() {
		return 0, 0, fmt.Errorf("output amount overflow")
	}
	amountOut := out.Uint64()

	// priceImpact = 1 - executionRate / idealRate
	idealRate := float64(reserveOut) / float64(reserveIn)
	executionRate := float64(amountOut) / float64(amountIn)
	priceImpact := 0.0
	if idealRate > 0 {
		priceImpact = math.Max(0, 1-(executionRate/idealRate))
	}

	return amountOut, priceImpact, nil
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= bpsDenominator {
		return 0
	}

	result := new(big.Int).Mul(
		new(big.Int).SetUint64(amountOut),
		new(big.Int).SetUint64(bpsDenominator-uint64(slippageBps)),
	)
	result.Div(result, big.NewInt(bpsDenominator))
	return result.Uint64()
}

// ValidatePriceImpact checks if price impact exceeds threshold.
// A zero threshold disables the check.
func ValidatePriceImpact(priceImpact float64, maxImpactBps uint16) error {
	if maxImpactBps == 0 {
		return nil
	}
	maxImpact := float64(maxImpactBps) / bpsDenominator
	if priceImpact > maxImpact {
		return fmt.Errorf("price impact %.4f%% exceeds max %.4f%%", priceImpact*100, maxImpact*100)
	}
	return nil
}

// CalculateFeeBps converts fee numerator/denominator to basis points
func CalculateFeeBps(feeNumerator, feeDenominator uint64) uint16 {
	if feeDenominator == 0 {
		return 0
	}
	return uint16((feeNumerator * bpsDenominator) / feeDenominator)
}
