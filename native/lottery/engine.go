package lottery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"prizepool/core/events"
	"prizepool/native/sortition"
)

// Engine sequences the pool lifecycle: an open epoch accepting deposits and
// withdrawals, a single outstanding prize draw once the epoch has ended, and
// the settlement or recovery that re-opens the next epoch. All transitions
// are expected to run serialized; the caller owns that guarantee.
type Engine struct {
	state       engineState
	ledger      *Ledger
	venue       YieldVenue
	coordinator Coordinator
	emitter     events.Emitter
	params      Params
	nowFn       func() uint64
	heightFn    func() uint64
}

// NewEngine wires the lottery module. The epoch clock starts at epochStartedAt
// unless a persisted epoch record already exists.
func NewEngine(state engineState, venue YieldVenue, coordinator Coordinator, params Params, epochStartedAt uint64) (*Engine, error) {
	if state == nil {
		return nil, errNilState
	}
	if venue == nil {
		return nil, errNilVenue
	}
	if coordinator == nil {
		return nil, errNilCoordinator
	}
	stored, hasStored, err := state.LotteryParams()
	if err != nil {
		return nil, err
	}
	if hasStored {
		params = stored.Clone()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("lottery engine: invalid params: %w", err)
	}
	ledger, err := NewLedger(state)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		state:       state,
		ledger:      ledger,
		venue:       venue,
		coordinator: coordinator,
		emitter:     events.NoopEmitter{},
		params:      params.Clone(),
		nowFn:       func() uint64 { return uint64(time.Now().Unix()) },
		heightFn:    func() uint64 { return 0 },
	}
	if _, ok, err := state.LotteryEpoch(); err != nil {
		return nil, err
	} else if !ok {
		if err := state.PutLotteryEpoch(&EpochState{EpochStartedAt: epochStartedAt}); err != nil {
			return nil, err
		}
	}
	if !hasStored {
		if err := e.persistParams(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// SetHeightFunc overrides the observed block height source used by the
// randomness recovery clock.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

// Deposit stakes amount for addr. Allowed only while the epoch is open with
// no draw outstanding, and only if the post-deposit balance stays within the
// configured maximum.
func (e *Engine) Deposit(ctx context.Context, addr [20]byte, amount *big.Int) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	epoch, err := e.epoch()
	if err != nil {
		return err
	}
	if epoch.AwardingInProgress {
		return ErrAwardInProgress
	}
	now := e.nowFn()
	if now >= e.epochEndAt(epoch) {
		return ErrEpochEnded
	}
	balance, err := e.ledger.BalanceOf(addr)
	if err != nil {
		return err
	}
	if new(big.Int).Add(balance, amount).Cmp(e.params.MaxStake) > 0 {
		return ErrMaxStakeExceeded
	}

	if err := e.venue.DepositSelf(ctx, amount); err != nil {
		return fmt.Errorf("lottery engine: venue deposit: %w", err)
	}
	account, err := e.ledger.Account(addr)
	if err != nil {
		return err
	}
	account.LastDepositAt = now
	if err := e.ledger.PutAccount(addr, account); err != nil {
		return err
	}
	if err := e.ledger.Mint(addr, amount); err != nil {
		return err
	}
	newBalance, err := e.ledger.BalanceOf(addr)
	if err != nil {
		return err
	}
	e.emitter.Emit(events.LotteryDeposit{Address: addr, Amount: copyBigInt(amount), NewBalance: newBalance, Timestamp: now})
	return nil
}

// Withdraw burns amount of addr's stake and pays out the principal from the
// venue, minus the early-exit penalty when the withdrawal falls within one
// epoch duration of the participant's last deposit. The penalty remains
// staked at the venue and enlarges future prize pools.
func (e *Engine) Withdraw(ctx context.Context, addr [20]byte, amount *big.Int) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	epoch, err := e.epoch()
	if err != nil {
		return err
	}
	if epoch.AwardingInProgress {
		return ErrAwardInProgress
	}
	balance, err := e.ledger.BalanceOf(addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	account, err := e.ledger.Account(addr)
	if err != nil {
		return err
	}
	now := e.nowFn()
	withinWindow := account.LastDepositAt > 0 && now < account.LastDepositAt+e.params.EpochSeconds
	payout := EarlyExitAmount(amount, withinWindow, e.params.PenaltyBps)
	penalty := new(big.Int).Sub(amount, payout)

	// The burn must persist before any value leaves the venue.
	if err := e.ledger.Burn(addr, amount); err != nil {
		return err
	}
	if payout.Sign() > 0 {
		if err := e.venue.Withdraw(ctx, payout, addr); err != nil {
			return fmt.Errorf("lottery engine: venue withdraw: %w", err)
		}
	}
	e.emitter.Emit(events.LotteryWithdraw{Address: addr, Amount: copyBigInt(amount), Payout: payout, Penalty: penalty, Timestamp: now})
	return nil
}

// Transfer moves stake between participants. Blocked while a draw is
// outstanding so the drawn weight snapshot cannot be invalidated.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) error {
	epoch, err := e.epoch()
	if err != nil {
		return err
	}
	if epoch.AwardingInProgress {
		return ErrAwardInProgress
	}
	if err := e.ledger.Transfer(from, to, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.LotteryTransfer{From: from, To: to, Amount: copyBigInt(amount)})
	return nil
}

// StartAwarding closes the epoch once its end time has passed. With zero
// accrued yield the epoch finalizes immediately and no randomness is spent;
// otherwise the harvested yield is locked in as the prize, redeposited as
// principal at the venue, and a randomness request is opened. Returns the
// draw record, or nil when the epoch was skipped.
func (e *Engine) StartAwarding(ctx context.Context) (*DrawRecord, error) {
	epoch, err := e.epoch()
	if err != nil {
		return nil, err
	}
	if epoch.AwardingInProgress {
		return nil, ErrAwardInProgress
	}
	now := e.nowFn()
	if now < e.epochEndAt(epoch) {
		return nil, ErrEpochNotEnded
	}
	info, err := e.venue.StakeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("lottery engine: venue stake info: %w", err)
	}
	supply, err := e.ledger.TotalSupply()
	if err != nil {
		return nil, err
	}
	prize := Prize(info.Total(), supply)
	if prize.Sign() == 0 {
		e.finalizeEpoch(epoch, now)
		if err := e.state.PutLotteryEpoch(epoch); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.EpochFinalized{EpochStartedAt: epoch.EpochStartedAt, EpochEndAt: e.epochEndAt(epoch)})
		return nil, nil
	}

	harvested := copyBigInt(info.Unclaimed)
	if harvested.Sign() > 0 {
		if err := e.venue.ClaimSelf(ctx); err != nil {
			return nil, fmt.Errorf("lottery engine: venue claim: %w", err)
		}
		minDeposit, err := e.venue.MinDeposit(ctx)
		if err != nil {
			return nil, fmt.Errorf("lottery engine: venue min deposit: %w", err)
		}
		redeposit := harvested
		// Harvest below the venue's minimum stake increment is topped up to
		// the minimum so no un-stakeable dust remains outside the venue.
		if minDeposit != nil && harvested.Cmp(minDeposit) < 0 {
			redeposit = copyBigInt(minDeposit)
		}
		if err := e.venue.DepositSelf(ctx, redeposit); err != nil {
			return nil, fmt.Errorf("lottery engine: venue redeposit: %w", err)
		}
	}

	requestID, err := e.coordinator.RequestRandomWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("lottery engine: randomness request: %w", err)
	}
	record := &DrawRecord{
		RequestID:       requestID,
		Prize:           prize,
		HeightRequested: e.heightFn(),
	}
	if err := e.state.PutLotteryDraw(record); err != nil {
		return nil, err
	}
	epoch.AwardingInProgress = true
	epoch.CurrentRequestID = requestID
	if err := e.state.PutLotteryEpoch(epoch); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.AwardStarted{RequestID: requestID, Prize: copyBigInt(prize), HeightRequested: record.HeightRequested})
	return record.Clone(), nil
}

// FulfillRandomness is the oracle callback. It draws the winner against the
// stake distribution as of this moment (deposits and withdrawals have been
// blocked since the request), splits the prize into winner amount and fee,
// credits both as new stake, and finalizes the epoch.
func (e *Engine) FulfillRandomness(requestID uint64, randomWords []*big.Int) (*DrawRecord, error) {
	epoch, err := e.epoch()
	if err != nil {
		return nil, err
	}
	if !epoch.AwardingInProgress {
		return nil, ErrNoAwardInProgress
	}
	if epoch.CurrentRequestID != requestID {
		return nil, ErrRequestMismatch
	}
	record, ok, err := e.state.LotteryDraw(requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDrawNotFound
	}
	if record.IsFinalized {
		return nil, ErrDrawFinalized
	}
	if len(randomWords) == 0 || randomWords[0] == nil {
		return nil, ErrNoRandomWords
	}

	total, err := e.ledger.TotalWeight()
	if err != nil {
		return nil, err
	}
	fee := big.NewInt(0)
	winnerAmount := big.NewInt(0)
	if total.Sign() > 0 {
		var seed [32]byte
		word := new(big.Int).Mod(randomWords[0], new(big.Int).Lsh(big.NewInt(1), 256))
		word.FillBytes(seed[:])
		cumulative, err := sortition.Uniform(seed, total)
		if err != nil {
			return nil, err
		}
		winner, err := e.ledger.Draw(cumulative)
		if err != nil {
			return nil, err
		}
		fee = Fee(record.Prize, e.params.FeeBps)
		winnerAmount = new(big.Int).Sub(record.Prize, fee)
		if winnerAmount.Sign() > 0 {
			if err := e.ledger.Mint(winner, winnerAmount); err != nil {
				return nil, err
			}
		}
		if fee.Sign() > 0 {
			if err := e.ledger.Mint(e.params.FeeReceiver, fee); err != nil {
				return nil, err
			}
		}
		record.Winner = winner
		record.HasWinner = true
		epoch.TotalPrizeDraws++
	}
	record.IsFinalized = true
	record.HeightSettled = e.heightFn()
	if err := e.state.PutLotteryDraw(record); err != nil {
		return nil, err
	}
	now := e.nowFn()
	e.finalizeEpoch(epoch, now)
	if err := e.state.PutLotteryEpoch(epoch); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.AwardSettled{
		RequestID:     requestID,
		Winner:        record.Winner,
		Prize:         copyBigInt(record.Prize),
		Fee:           fee,
		WinnerAmount:  winnerAmount,
		HeightSettled: record.HeightSettled,
	})
	e.emitter.Emit(events.EpochFinalized{EpochStartedAt: epoch.EpochStartedAt, EpochEndAt: e.epochEndAt(epoch)})
	return record.Clone(), nil
}

// RecoverFailedDraw abandons a draw whose randomness never arrived. Callable
// by anyone once the configured block-height grace period has elapsed; the
// prize is forfeited for the epoch but the pool is unwedged.
func (e *Engine) RecoverFailedDraw(requestID uint64) (*DrawRecord, error) {
	epoch, err := e.epoch()
	if err != nil {
		return nil, err
	}
	if !epoch.AwardingInProgress {
		return nil, ErrNoAwardInProgress
	}
	record, ok, err := e.state.LotteryDraw(requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDrawNotFound
	}
	if record.IsFinalized {
		return nil, ErrDrawFinalized
	}
	height := e.heightFn()
	if height < record.HeightRequested+e.params.GraceBlocks {
		return nil, ErrGracePeriodActive
	}
	record.IsFinalized = true
	record.HeightSettled = height
	if err := e.state.PutLotteryDraw(record); err != nil {
		return nil, err
	}
	now := e.nowFn()
	e.finalizeEpoch(epoch, now)
	if err := e.state.PutLotteryEpoch(epoch); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.AwardRecovered{RequestID: requestID, HeightRecovered: height})
	e.emitter.Emit(events.EpochFinalized{EpochStartedAt: epoch.EpochStartedAt, EpochEndAt: e.epochEndAt(epoch)})
	return record.Clone(), nil
}

// finalizeEpoch advances the epoch start to the boundary at or before now,
// skipping idle epochs in one step, and clears the awarding gate.
func (e *Engine) finalizeEpoch(epoch *EpochState, now uint64) {
	if now >= epoch.EpochStartedAt+e.params.EpochSeconds {
		elapsed := (now - epoch.EpochStartedAt) / e.params.EpochSeconds
		epoch.EpochStartedAt += elapsed * e.params.EpochSeconds
	}
	epoch.AwardingInProgress = false
	epoch.CurrentRequestID = 0
}

// --- Administrative surface ---

// SetFeeReceiver updates the fee receiver address.
func (e *Engine) SetFeeReceiver(addr [20]byte) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	previous := e.params.FeeReceiver
	e.params.FeeReceiver = addr
	if err := e.persistParams(); err != nil {
		e.params.FeeReceiver = previous
		return err
	}
	e.emitter.Emit(events.FeeReceiverUpdated{Previous: previous, Current: addr})
	return nil
}

// SetFeeBps updates the protocol fee rate, capped at the configured maximum.
func (e *Engine) SetFeeBps(bps uint64) error {
	if bps > e.params.MaxFeeBps {
		return ErrFeeTooHigh
	}
	previous := e.params.FeeBps
	e.params.FeeBps = bps
	if err := e.persistParams(); err != nil {
		e.params.FeeBps = previous
		return err
	}
	e.emitter.Emit(events.FeeUpdated{PreviousBps: previous, CurrentBps: bps})
	return nil
}

// SetMaxStake updates the per-participant stake cap, floored at the
// configured minimum.
func (e *Engine) SetMaxStake(maxStake *big.Int) error {
	if maxStake == nil || maxStake.Cmp(e.params.MinMaxStake) < 0 {
		return ErrMaxStakeTooLow
	}
	previous := e.params.MaxStake
	e.params.MaxStake = new(big.Int).Set(maxStake)
	if err := e.persistParams(); err != nil {
		e.params.MaxStake = previous
		return err
	}
	e.emitter.Emit(events.MaxStakeUpdated{Previous: copyBigInt(previous), Current: copyBigInt(maxStake)})
	return nil
}

func (e *Engine) persistParams() error {
	stored := e.params.Clone()
	return e.state.PutLotteryParams(&stored)
}

// --- Public read surface ---

// Params returns a copy of the active parameters.
func (e *Engine) Params() Params {
	return e.params.Clone()
}

// Now returns the engine's current time.
func (e *Engine) Now() uint64 { return e.nowFn() }

// Height returns the engine's current observed block height.
func (e *Engine) Height() uint64 { return e.heightFn() }

// EpochEndAt returns the end timestamp of the open epoch.
func (e *Engine) EpochEndAt() (uint64, error) {
	epoch, err := e.epoch()
	if err != nil {
		return 0, err
	}
	return e.epochEndAt(epoch), nil
}

// EpochEnded reports whether the open epoch has reached its end time.
func (e *Engine) EpochEnded() (bool, error) {
	end, err := e.EpochEndAt()
	if err != nil {
		return false, err
	}
	return e.nowFn() >= end, nil
}

// Epoch returns a copy of the epoch state.
func (e *Engine) Epoch() (*EpochState, error) {
	epoch, err := e.epoch()
	if err != nil {
		return nil, err
	}
	return epoch.Clone(), nil
}

// CurrentAward returns the projected prize were awarding to start now.
func (e *Engine) CurrentAward(ctx context.Context) (*big.Int, error) {
	info, err := e.venue.StakeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("lottery engine: venue stake info: %w", err)
	}
	supply, err := e.ledger.TotalSupply()
	if err != nil {
		return nil, err
	}
	return Prize(info.Total(), supply), nil
}

// LastDepositAt returns the participant's last deposit timestamp.
func (e *Engine) LastDepositAt(addr [20]byte) (uint64, error) {
	account, err := e.ledger.Account(addr)
	if err != nil {
		return 0, err
	}
	return account.LastDepositAt, nil
}

// Draw returns the draw record for requestID.
func (e *Engine) Draw(requestID uint64) (*DrawRecord, error) {
	record, ok, err := e.state.LotteryDraw(requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDrawNotFound
	}
	return record.Clone(), nil
}

// BalanceOf returns a participant's staked balance.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	return e.ledger.BalanceOf(addr)
}

// TotalSupply returns the total outstanding stake.
func (e *Engine) TotalSupply() (*big.Int, error) {
	return e.ledger.TotalSupply()
}

// Ledger exposes the stake ledger, primarily for invariant checks in tests.
func (e *Engine) Ledger() *Ledger { return e.ledger }

func (e *Engine) epoch() (*EpochState, error) {
	epoch, ok, err := e.state.LotteryEpoch()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNilState
	}
	return epoch, nil
}

func (e *Engine) epochEndAt(epoch *EpochState) uint64 {
	return epoch.EpochStartedAt + e.params.EpochSeconds
}
