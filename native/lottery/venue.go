package lottery

import (
	"context"
	"math/big"
)

// YieldVenue is the external staking service that holds the pool's underlying
// asset and accrues rewards. The engine treats venue balances as ground truth
// for yield computation and never inspects how yield is generated.
type YieldVenue interface {
	// DepositSelf stakes amount held by the pool into the venue.
	DepositSelf(ctx context.Context, amount *big.Int) error
	// Withdraw unstakes amount and sends it to recipient.
	Withdraw(ctx context.Context, amount *big.Int, recipient [20]byte) error
	// ClaimSelf collects any unclaimed rewards into the pool's loose balance.
	ClaimSelf(ctx context.Context) error
	// StakeInfo reports the pool's deposited principal and unclaimed rewards.
	StakeInfo(ctx context.Context) (VenueStakeInfo, error)
	// MinDeposit reports the venue's minimum stake increment.
	MinDeposit(ctx context.Context) (*big.Int, error)
}

// Coordinator is the external randomness oracle. Fulfillment arrives
// asynchronously through Engine.FulfillRandomness.
type Coordinator interface {
	// RequestRandomWords opens a randomness request and returns its id.
	RequestRandomWords(ctx context.Context) (uint64, error)
}
