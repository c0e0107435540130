package lottery

import "math/big"

// Prize returns the currently distributable yield: the venue-side balance in
// excess of the recognised principal, clamped at zero. Integer truncation in
// all prize maths favours the pool over the individual.
func Prize(venueBalance, totalSupply *big.Int) *big.Int {
	prize := copyBigInt(venueBalance)
	if totalSupply != nil {
		prize.Sub(prize, totalSupply)
	}
	if prize.Sign() < 0 {
		return big.NewInt(0)
	}
	return prize
}

// Fee returns the protocol cut of prize at feeBps basis points.
func Fee(prize *big.Int, feeBps uint64) *big.Int {
	if prize == nil || prize.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(prize, new(big.Int).SetUint64(feeBps))
	return fee.Quo(fee, big.NewInt(BpsDenominator))
}

// EarlyExitAmount returns the payout for a withdrawal of amount. Within the
// penalty window the configured basis points are retained by the pool;
// otherwise the full amount is paid out.
func EarlyExitAmount(amount *big.Int, withinWindow bool, penaltyBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	if !withinWindow || penaltyBps == 0 {
		return new(big.Int).Set(amount)
	}
	if penaltyBps >= BpsDenominator {
		return big.NewInt(0)
	}
	payout := new(big.Int).Mul(amount, new(big.Int).SetUint64(BpsDenominator-penaltyBps))
	return payout.Quo(payout, big.NewInt(BpsDenominator))
}
