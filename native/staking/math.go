package staking

import "math/big"

const (
	// BasisPoints is the fixed-point scale of APY rates.
	BasisPoints = 10_000
	// yieldDivisor combines the basis point scale with the x100 applied to the
	// daily rate.
	yieldDivisor = BasisPoints * 100
	daysPerYear  = 365
)

// DailyRate returns floor(apyBps*100/365).
func DailyRate(apyBps uint64) *big.Int {
	rate := new(big.Int).SetUint64(apyBps)
	rate.Mul(rate, big.NewInt(100))
	return rate.Quo(rate, big.NewInt(daysPerYear))
}

// ComputeYield returns the simple interest accrued on amount between
// lastClaimEpoch and epochNow. Each division truncates in the order
// daily = floor(apy*100/365), yield = floor(amount*daily*elapsed/1_000_000).
func ComputeYield(amount *big.Int, lastClaimEpoch uint64, apyBps uint64, epochNow uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || epochNow <= lastClaimEpoch {
		return big.NewInt(0)
	}
	elapsed := new(big.Int).SetUint64(epochNow - lastClaimEpoch)
	yield := new(big.Int).Mul(amount, DailyRate(apyBps))
	yield.Mul(yield, elapsed)
	return yield.Quo(yield, big.NewInt(yieldDivisor))
}
