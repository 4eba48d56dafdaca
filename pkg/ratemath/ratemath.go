// Package ratemath implements exact fixed-point exchange rate arithmetic.
// All rates are scaled to 18 decimals, all division truncates, and amounts
// are never represented as floats.
package ratemath

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrZeroTrades and ErrBelowMinimum are blocking validation failures:
	// a submission path seeing either must not proceed.
	ErrZeroTrades   = errors.New("order must be split into at least one trade")
	ErrBelowMinimum = errors.New("sub-trade amount below network minimum")
)

var (
	oneE18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	oneE36 = new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil)

	// Warning thresholds in 18-decimal parts: 30% slippage, 3% fee overhead.
	SlippageWarning  = new(big.Int).Mul(big.NewInt(30), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
	ExecutionWarning = new(big.Int).Mul(big.NewInt(3), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
)

// RateState distinguishes the three outcomes of a rate computation.
// Unavailable (missing or zero inputs) and NeverExecutes (gas cost
// exceeds the order size) are domain states, not errors.
type RateState uint8

const (
	RateAvailable RateState = iota
	RateUnavailable
	RateNeverExecutes
)

// Rate is an 18-decimal fixed-point exchange rate, or one of the two
// non-numeric states.
type Rate struct {
	state RateState
	value *big.Int
}

func Available(v *big.Int) Rate { return Rate{state: RateAvailable, value: v} }

var (
	Unavailable   = Rate{state: RateUnavailable}
	NeverExecutes = Rate{state: RateNeverExecutes}
)

func (r Rate) State() RateState { return r.state }

// Value returns the numeric rate and whether one is available.
func (r Rate) Value() (*big.Int, bool) {
	if r.state != RateAvailable {
		return nil, false
	}
	return r.value, true
}

func (r Rate) String() string {
	switch r.state {
	case RateUnavailable:
		return "unavailable"
	case RateNeverExecutes:
		return "never executes"
	default:
		return r.value.String()
	}
}

func pow10(d uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
}

// ExchangeRate derives the 18-decimal rate between an input and output
// amount, normalizing for token decimals. With invert the reciprocal
// orientation is computed directly rather than by flipping afterwards,
// so truncation happens at most once.
func ExchangeRate(inputAmount *big.Int, inputDecimals uint8, outputAmount *big.Int, outputDecimals uint8, invert bool) Rate {
	if inputAmount == nil || outputAmount == nil {
		return Unavailable
	}
	if invert {
		if outputAmount.Sign() == 0 {
			return Unavailable
		}
		r := new(big.Int).Mul(inputAmount, oneE18)
		r.Div(r, outputAmount)
		r.Mul(r, pow10(outputDecimals))
		r.Div(r, pow10(inputDecimals))
		return Available(r)
	}
	if inputAmount.Sign() == 0 {
		return Unavailable
	}
	r := new(big.Int).Mul(outputAmount, oneE18)
	r.Div(r, inputAmount)
	r.Mul(r, pow10(inputDecimals))
	r.Div(r, pow10(outputDecimals))
	return Available(r)
}

// FlipRate returns 10^36 / rate: the same rate quoted in the opposite
// direction.
func FlipRate(r Rate) Rate {
	v, ok := r.Value()
	if !ok || v.Sign() == 0 {
		return Unavailable
	}
	return Available(new(big.Int).Div(oneE36, v))
}

// PercentDelta returns (a*10^18 / b) - 10^18: the signed deviation of a
// from b in 18-decimal parts. A nil or zero b yields no result.
func PercentDelta(a, b *big.Int) (*big.Int, bool) {
	if a == nil || b == nil || b.Sign() == 0 {
		return nil, false
	}
	d := new(big.Int).Mul(a, oneE18)
	d.Div(d, b)
	d.Sub(d, oneE18)
	return d, true
}

// ApplyRate converts an input amount to the output amount implied by an
// 18-decimal rate, normalizing for token decimals.
func ApplyRate(inputAmount *big.Int, r Rate, inputDecimals, outputDecimals uint8, invert bool) (*big.Int, bool) {
	rate, ok := r.Value()
	if !ok || inputAmount == nil {
		return nil, false
	}
	if invert {
		if rate.Sign() == 0 {
			return nil, false
		}
		out := new(big.Int).Mul(inputAmount, oneE18)
		out.Div(out, rate)
		out.Mul(out, pow10(outputDecimals))
		out.Div(out, pow10(inputDecimals))
		return out, true
	}
	out := new(big.Int).Mul(rate, inputAmount)
	out.Div(out, oneE18)
	out.Mul(out, pow10(outputDecimals))
	out.Div(out, pow10(inputDecimals))
	return out, true
}

// GasAdjustedExecutionRate computes the rate the owner actually realizes
// once the relayer's gas cost is reimbursed from the input: the nominal
// input minus the gas cost (already quoted in input-token units) against
// the required return. An adjusted input of zero or less means the order
// can never execute at any market rate.
func GasAdjustedExecutionRate(inputAmount, gasCostInInput *big.Int, inputDecimals uint8, minReturn *big.Int, outputDecimals uint8) Rate {
	if inputAmount == nil || gasCostInInput == nil || minReturn == nil {
		return Unavailable
	}
	adjusted := new(big.Int).Sub(inputAmount, gasCostInInput)
	if adjusted.Sign() <= 0 {
		return NeverExecutes
	}
	return ExchangeRate(adjusted, inputDecimals, minReturn, outputDecimals, false)
}

// MinViableSubTradeSize validates that splitting totalInput into numTrades
// leaves each sub-trade at or above the per-network executor floor.
func MinViableSubTradeSize(totalInput *big.Int, numTrades int64, perNetworkFloor *big.Int) error {
	if totalInput == nil {
		return fmt.Errorf("total input is required")
	}
	if numTrades <= 0 {
		return ErrZeroTrades
	}
	if perNetworkFloor == nil {
		return nil
	}
	perTrade := new(big.Int).Div(totalInput, big.NewInt(numTrades))
	if perTrade.Cmp(perNetworkFloor) < 0 {
		return fmt.Errorf("%w: %s per trade, floor %s", ErrBelowMinimum, perTrade, perNetworkFloor)
	}
	return nil
}

// HighSlippage reports whether a desired-vs-market rate delta is beyond
// the warning threshold (desired rate more than 30% under market).
func HighSlippage(delta *big.Int) bool {
	if delta == nil {
		return false
	}
	return delta.Cmp(new(big.Int).Neg(SlippageWarning)) < 0
}
