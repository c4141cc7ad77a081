package credit

import (
	"math"

	"github.com/holiman/uint256"
)

const (
	SecondsPerYear uint64 = 365 * 24 * 60 * 60
	// GracePeriod is the inactivity required before a tier D line can be liquidated.
	GracePeriod uint64 = 30 * 24 * 60 * 60

	bpsDenominator uint64 = 10_000
	pctDenominator uint64 = 100
)

/*
Accrue adds the simple interest accumulated since the last accrual to the debt
and moves the accrual time to "now". Interest is floored and compounds only at
the granularity of the calls, calling Accrue often yields slightly more
interest than calling it rarely. Time never moves backwards and the debt
saturates at the maximum uint64 value. Returns the interest added.
*/
func Accrue(line *Line, now uint64, aprBps uint64) uint64 {
	if now <= line.LastAccrueTime {
		return 0
	}
	elapsed := now - line.LastAccrueTime
	line.LastAccrueTime = now
	if line.Debt == 0 || aprBps == 0 {
		return 0
	}
	interest := Interest(line.Debt, aprBps, elapsed)
	if interest > math.MaxUint64-line.Debt {
		interest = math.MaxUint64 - line.Debt
	}
	line.Debt += interest
	return interest
}

// Interest returns debt × aprBps × elapsed / (SecondsPerYear × 10000), floored.
func Interest(debt, aprBps, elapsed uint64) uint64 {
	num := new(uint256.Int).Mul(uint256.NewInt(debt), uint256.NewInt(aprBps))
	num.Mul(num, uint256.NewInt(elapsed))
	den := new(uint256.Int).Mul(uint256.NewInt(SecondsPerYear), uint256.NewInt(bpsDenominator))
	res := num.Div(num, den)
	if !res.IsUint64() {
		return math.MaxUint64
	}
	return res.Uint64()
}

// Limit returns min(limitHint × multiplierPct / 100, capBps × liquidity / 10000).
func Limit(limitHint, multiplierPct, capBps, liquidity uint64) uint64 {
	scaled := new(uint256.Int).Mul(uint256.NewInt(limitHint), uint256.NewInt(multiplierPct))
	scaled.Div(scaled, uint256.NewInt(pctDenominator))
	capped := new(uint256.Int).Mul(uint256.NewInt(capBps), uint256.NewInt(liquidity))
	capped.Div(capped, uint256.NewInt(bpsDenominator))
	if scaled.Lt(capped) {
		return scaled.Uint64()
	}
	// capped never exceeds the liquidity as capBps is at most 10000
	if !capped.IsUint64() {
		return math.MaxUint64
	}
	return capped.Uint64()
}
