package events

import (
	"math/big"
	"strconv"

	"prizepool/core/types"
	"prizepool/crypto"
)

const (
	// TypeLotteryDeposit captures principal entering the pool.
	TypeLotteryDeposit = "lottery.deposit"
	// TypeLotteryWithdraw captures principal leaving the pool, including any
	// early-exit penalty retained by the pool.
	TypeLotteryWithdraw = "lottery.withdraw"
	// TypeLotteryTransfer captures pool token balance moving between participants.
	TypeLotteryTransfer = "lottery.transfer"
	// TypeAwardStarted is emitted when a prize draw has been opened and
	// randomness requested.
	TypeAwardStarted = "lottery.awardStarted"
	// TypeAwardSettled is emitted when randomness arrived and a winner was paid.
	TypeAwardSettled = "lottery.awardSettled"
	// TypeAwardRecovered is emitted when a stalled draw was abandoned after the
	// grace period.
	TypeAwardRecovered = "lottery.awardRecovered"
	// TypeEpochFinalized signals the epoch boundary advancing.
	TypeEpochFinalized = "lottery.epochFinalized"
	// TypeFeeReceiverUpdated signals an administrative fee receiver change.
	TypeFeeReceiverUpdated = "lottery.feeReceiverUpdated"
	// TypeFeeUpdated signals an administrative fee rate change.
	TypeFeeUpdated = "lottery.feeUpdated"
	// TypeMaxStakeUpdated signals an administrative per-participant cap change.
	TypeMaxStakeUpdated = "lottery.maxStakeUpdated"
)

func addressString(addr [20]byte) string {
	return crypto.NewAddress(crypto.PoolPrefix, addr[:]).String()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// LotteryDeposit captures an accepted deposit.
type LotteryDeposit struct {
	Address    [20]byte
	Amount     *big.Int
	NewBalance *big.Int
	Timestamp  uint64
}

// EventType satisfies the Event interface.
func (LotteryDeposit) EventType() string { return TypeLotteryDeposit }

// Event converts the deposit into the generic event representation.
func (d LotteryDeposit) Event() *types.Event {
	return &types.Event{
		Type: TypeLotteryDeposit,
		Attributes: map[string]string{
			"address":    addressString(d.Address),
			"amount":     bigString(d.Amount),
			"newBalance": bigString(d.NewBalance),
			"timestamp":  strconv.FormatUint(d.Timestamp, 10),
		},
	}
}

// LotteryWithdraw captures an accepted withdrawal.
type LotteryWithdraw struct {
	Address   [20]byte
	Amount    *big.Int
	Payout    *big.Int
	Penalty   *big.Int
	Timestamp uint64
}

// EventType satisfies the Event interface.
func (LotteryWithdraw) EventType() string { return TypeLotteryWithdraw }

// Event converts the withdrawal into the generic event representation.
func (w LotteryWithdraw) Event() *types.Event {
	return &types.Event{
		Type: TypeLotteryWithdraw,
		Attributes: map[string]string{
			"address":   addressString(w.Address),
			"amount":    bigString(w.Amount),
			"payout":    bigString(w.Payout),
			"penalty":   bigString(w.Penalty),
			"timestamp": strconv.FormatUint(w.Timestamp, 10),
		},
	}
}

// LotteryTransfer captures a pool token transfer between participants.
type LotteryTransfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

// EventType satisfies the Event interface.
func (LotteryTransfer) EventType() string { return TypeLotteryTransfer }

// Event converts the transfer into the generic event representation.
func (t LotteryTransfer) Event() *types.Event {
	return &types.Event{
		Type: TypeLotteryTransfer,
		Attributes: map[string]string{
			"from":   addressString(t.From),
			"to":     addressString(t.To),
			"amount": bigString(t.Amount),
		},
	}
}

// AwardStarted captures the opening of a prize draw.
type AwardStarted struct {
	RequestID       uint64
	Prize           *big.Int
	HeightRequested uint64
}

// EventType satisfies the Event interface.
func (AwardStarted) EventType() string { return TypeAwardStarted }

// Event converts the award start into the generic event representation.
func (a AwardStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeAwardStarted,
		Attributes: map[string]string{
			"requestId":       strconv.FormatUint(a.RequestID, 10),
			"prize":           bigString(a.Prize),
			"heightRequested": strconv.FormatUint(a.HeightRequested, 10),
		},
	}
}

// AwardSettled captures a completed draw with a paid winner.
type AwardSettled struct {
	RequestID     uint64
	Winner        [20]byte
	Prize         *big.Int
	Fee           *big.Int
	WinnerAmount  *big.Int
	HeightSettled uint64
}

// EventType satisfies the Event interface.
func (AwardSettled) EventType() string { return TypeAwardSettled }

// Event converts the settlement into the generic event representation.
func (a AwardSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeAwardSettled,
		Attributes: map[string]string{
			"requestId":     strconv.FormatUint(a.RequestID, 10),
			"winner":        addressString(a.Winner),
			"prize":         bigString(a.Prize),
			"fee":           bigString(a.Fee),
			"winnerAmount":  bigString(a.WinnerAmount),
			"heightSettled": strconv.FormatUint(a.HeightSettled, 10),
		},
	}
}

// AwardRecovered captures a stalled draw abandoned without a winner.
type AwardRecovered struct {
	RequestID       uint64
	HeightRecovered uint64
}

// EventType satisfies the Event interface.
func (AwardRecovered) EventType() string { return TypeAwardRecovered }

// Event converts the recovery into the generic event representation.
func (a AwardRecovered) Event() *types.Event {
	return &types.Event{
		Type: TypeAwardRecovered,
		Attributes: map[string]string{
			"requestId":       strconv.FormatUint(a.RequestID, 10),
			"heightRecovered": strconv.FormatUint(a.HeightRecovered, 10),
		},
	}
}

// EpochFinalized captures the epoch boundary advancing to a new start.
type EpochFinalized struct {
	EpochStartedAt uint64
	EpochEndAt     uint64
}

// EventType satisfies the Event interface.
func (EpochFinalized) EventType() string { return TypeEpochFinalized }

// Event converts the finalization into the generic event representation.
func (e EpochFinalized) Event() *types.Event {
	return &types.Event{
		Type: TypeEpochFinalized,
		Attributes: map[string]string{
			"epochStartedAt": strconv.FormatUint(e.EpochStartedAt, 10),
			"epochEndAt":     strconv.FormatUint(e.EpochEndAt, 10),
		},
	}
}

// FeeReceiverUpdated captures an administrative fee receiver change.
type FeeReceiverUpdated struct {
	Previous [20]byte
	Current  [20]byte
}

// EventType satisfies the Event interface.
func (FeeReceiverUpdated) EventType() string { return TypeFeeReceiverUpdated }

// Event converts the update into the generic event representation.
func (f FeeReceiverUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeReceiverUpdated,
		Attributes: map[string]string{
			"previous": addressString(f.Previous),
			"current":  addressString(f.Current),
		},
	}
}

// FeeUpdated captures an administrative fee rate change.
type FeeUpdated struct {
	PreviousBps uint64
	CurrentBps  uint64
}

// EventType satisfies the Event interface.
func (FeeUpdated) EventType() string { return TypeFeeUpdated }

// Event converts the update into the generic event representation.
func (f FeeUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeUpdated,
		Attributes: map[string]string{
			"previousBps": strconv.FormatUint(f.PreviousBps, 10),
			"currentBps":  strconv.FormatUint(f.CurrentBps, 10),
		},
	}
}

// MaxStakeUpdated captures an administrative per-participant cap change.
type MaxStakeUpdated struct {
	Previous *big.Int
	Current  *big.Int
}

// EventType satisfies the Event interface.
func (MaxStakeUpdated) EventType() string { return TypeMaxStakeUpdated }

// Event converts the update into the generic event representation.
func (m MaxStakeUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeMaxStakeUpdated,
		Attributes: map[string]string{
			"previous": bigString(m.Previous),
			"current":  bigString(m.Current),
		},
	}
}
