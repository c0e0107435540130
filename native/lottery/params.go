package lottery

import (
	"errors"
	"fmt"
	"math/big"
)

// BpsDenominator is the fixed denominator for fee and penalty rates.
const BpsDenominator = 10000

// TreeKey is the namespace under which the pool's selection tree is stored.
const TreeKey = "lottery/stake"

// DefaultBranching is the branching factor used for the selection tree.
const DefaultBranching uint64 = 4

// Params controls the prize pool behaviour. FeeBps, FeeReceiver and MaxStake
// are owner-adjustable at runtime; the remaining fields are fixed at
// construction.
type Params struct {
	FeeBps       uint64   `json:"feeBps"`
	MaxFeeBps    uint64   `json:"maxFeeBps"`
	PenaltyBps   uint64   `json:"penaltyBps"`
	MaxStake     *big.Int `json:"maxStake"`
	MinMaxStake  *big.Int `json:"minMaxStake"`
	EpochSeconds uint64   `json:"epochSeconds"`
	GraceBlocks  uint64   `json:"graceBlocks"`
	FeeReceiver  [20]byte `json:"feeReceiver"`
}

// DefaultParams returns a conservative starting configuration.
func DefaultParams() Params {
	return Params{
		FeeBps:       1000,
		MaxFeeBps:    2000,
		PenaltyBps:   500,
		MaxStake:     big.NewInt(0).Mul(big.NewInt(100_000), big.NewInt(1_000_000)),
		MinMaxStake:  big.NewInt(1),
		EpochSeconds: 7 * 24 * 60 * 60,
		GraceBlocks:  7200,
	}
}

// Validate ensures the configuration values fall within acceptable bounds.
func (p Params) Validate() error {
	if p.MaxFeeBps > BpsDenominator {
		return fmt.Errorf("max fee cap must be <= %d", BpsDenominator)
	}
	if p.FeeBps > p.MaxFeeBps {
		return ErrFeeTooHigh
	}
	if p.PenaltyBps > BpsDenominator {
		return fmt.Errorf("penalty bps must be <= %d", BpsDenominator)
	}
	if p.MaxStake == nil || p.MaxStake.Sign() <= 0 {
		return errors.New("max stake must be positive")
	}
	if p.MinMaxStake == nil || p.MinMaxStake.Sign() <= 0 {
		return errors.New("max stake floor must be positive")
	}
	if p.MaxStake.Cmp(p.MinMaxStake) < 0 {
		return ErrMaxStakeTooLow
	}
	if p.EpochSeconds == 0 {
		return errors.New("epoch duration must be positive")
	}
	if p.GraceBlocks == 0 {
		return errors.New("recovery grace period must be positive")
	}
	if p.FeeReceiver == ([20]byte{}) {
		return errors.New("fee receiver must be set")
	}
	return nil
}

// Clone produces a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	clone.MaxStake = copyBigInt(p.MaxStake)
	clone.MinMaxStake = copyBigInt(p.MinMaxStake)
	return clone
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
