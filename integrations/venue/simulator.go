// Package venue provides yield venue backends for the pool: an HTTP client
// for an external staking service and an in-process simulator used in
// development and tests.
package venue

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"prizepool/native/lottery"
)

var (
	ErrInvalidAmount     = errors.New("venue: amount must be positive")
	ErrInsufficientStake = errors.New("venue: insufficient staked balance")
)

const secondsPerYear = 365 * 24 * 3600

// Simulator is an in-memory yield venue. Rewards accrue continuously on the
// deposited principal at a fixed APR expressed in basis points.
type Simulator struct {
	mu          sync.Mutex
	deposited   *big.Int
	unclaimed   *big.Int
	minDeposit  *big.Int
	aprBps      uint64
	lastAccrual uint64
	nowFn       func() uint64
}

var _ lottery.YieldVenue = (*Simulator)(nil)

func NewSimulator(aprBps uint64) *Simulator {
	nowFn := func() uint64 { return uint64(time.Now().Unix()) }
	return &Simulator{
		deposited:   big.NewInt(0),
		unclaimed:   big.NewInt(0),
		minDeposit:  big.NewInt(1),
		aprBps:      aprBps,
		lastAccrual: nowFn(),
		nowFn:       nowFn,
	}
}

// SetNowFunc overrides the clock for tests.
func (s *Simulator) SetNowFunc(now func() uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
	s.lastAccrual = now()
}

// SetMinDeposit overrides the venue's minimum stake increment.
func (s *Simulator) SetMinDeposit(min *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDeposit = new(big.Int).Set(min)
}

// AddRewards credits extra unclaimed rewards directly, for tests.
func (s *Simulator) AddRewards(amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unclaimed.Add(s.unclaimed, amount)
}

func (s *Simulator) DepositSelf(ctx context.Context, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	s.deposited.Add(s.deposited, amount)
	return nil
}

func (s *Simulator) Withdraw(ctx context.Context, amount *big.Int, recipient [20]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if s.deposited.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	s.deposited.Sub(s.deposited, amount)
	return nil
}

func (s *Simulator) ClaimSelf(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	s.unclaimed.SetInt64(0)
	return nil
}

func (s *Simulator) StakeInfo(ctx context.Context) (lottery.VenueStakeInfo, error) {
	if err := ctx.Err(); err != nil {
		return lottery.VenueStakeInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrue()
	return lottery.VenueStakeInfo{
		Deposited: new(big.Int).Set(s.deposited),
		Unclaimed: new(big.Int).Set(s.unclaimed),
	}, nil
}

func (s *Simulator) MinDeposit(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.minDeposit), nil
}

// accrue folds elapsed time into unclaimed rewards. Callers hold the lock.
func (s *Simulator) accrue() {
	now := s.nowFn()
	if now <= s.lastAccrual {
		return
	}
	elapsed := now - s.lastAccrual
	s.lastAccrual = now
	if s.deposited.Sign() <= 0 || s.aprBps == 0 {
		return
	}
	reward := new(big.Int).Mul(s.deposited, new(big.Int).SetUint64(s.aprBps))
	reward.Mul(reward, new(big.Int).SetUint64(elapsed))
	reward.Div(reward, big.NewInt(lottery.BpsDenominator*secondsPerYear))
	s.unclaimed.Add(s.unclaimed, reward)
}
