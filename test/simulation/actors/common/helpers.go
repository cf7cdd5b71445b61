package common

import (
	"math/big"
	"math/rand"
	"time"

	"gitlab.com/badgerdao/settsim/constants"
)

////////////////////////////////////////////////////////////////////////////////////////
// Amounts
////////////////////////////////////////////////////////////////////////////////////////

// ScaleBasisPoints returns amount * bps / 10000. A positive amount never scales to
// zero, so a drawn fraction always moves at least one unit.
func ScaleBasisPoints(amount *big.Int, bps int64) *big.Int {
	scaled := new(big.Int).Mul(amount, big.NewInt(bps))
	scaled.Div(scaled, big.NewInt(constants.MaxBasisPoints))
	if scaled.Sign() == 0 && amount.Sign() > 0 {
		scaled.SetInt64(1)
	}
	return scaled
}

////////////////////////////////////////////////////////////////////////////////////////
// Draws
////////////////////////////////////////////////////////////////////////////////////////

// DrawBasisPoints draws uniformly from [1, 10000].
func DrawBasisPoints(rng *rand.Rand) int64 {
	return rng.Int63n(constants.MaxBasisPoints) + 1
}

// DrawDuration draws a whole number of seconds uniformly from [min, max].
func DrawDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	lo := int64(min / time.Second)
	hi := int64(max / time.Second)
	return time.Duration(rng.Int63n(hi-lo+1)+lo) * time.Second
}

// DrawReport draws an oracle report, fixed point at 18 decimals, within spread basis
// points of 1.
func DrawReport(rng *rand.Rand, spread int64) *big.Int {
	bps := constants.MaxBasisPoints + rng.Int63n(2*spread+1) - spread
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(constants.PPFSDecimals), nil)
	report := new(big.Int).Mul(one, big.NewInt(bps))
	return report.Div(report, big.NewInt(constants.MaxBasisPoints))
}
