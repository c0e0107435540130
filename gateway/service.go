// Package gateway exposes the lottery engine over HTTP. A single Service
// wraps the engine behind a mutex so state transitions apply one at a time,
// and records pool metrics as they happen.
package gateway

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"prizepool/native/lottery"
	"prizepool/observability/metrics"
)

// DrawLister walks persisted draw records in request id order.
type DrawLister interface {
	LotteryDraws(fn func(record *lottery.DrawRecord) bool) error
}

// Service serializes access to the lottery engine. The engine itself performs
// no locking; every transition and read goes through here.
type Service struct {
	mu      sync.Mutex
	engine  *lottery.Engine
	draws   DrawLister
	metrics *metrics.LotteryMetrics
}

// NewService wraps engine. A nil metrics registry disables recording; a nil
// draw lister disables history exports.
func NewService(engine *lottery.Engine, draws DrawLister, m *metrics.LotteryMetrics) *Service {
	return &Service{engine: engine, draws: draws, metrics: m}
}

// Engine exposes the wrapped engine for callers that hold no lock themselves,
// such as the in-process randomness simulator which calls back through Fulfill.
func (s *Service) Engine() *lottery.Engine { return s.engine }

func (s *Service) Deposit(ctx context.Context, addr [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Deposit(ctx, addr, amount); err != nil {
		return err
	}
	s.metrics.RecordDeposit()
	s.refreshGauges(ctx)
	return nil
}

func (s *Service) Withdraw(ctx context.Context, addr [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.Withdraw(ctx, addr, amount); err != nil {
		return err
	}
	s.metrics.RecordWithdrawal()
	s.refreshGauges(ctx)
	return nil
}

func (s *Service) Transfer(from, to [20]byte, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Transfer(from, to, amount)
}

// StartAwarding closes the elapsed epoch. The returned record is nil when the
// epoch produced no yield and was finalized without a draw.
func (s *Service) StartAwarding(ctx context.Context) (*lottery.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.engine.StartAwarding(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		s.metrics.RecordEpochSkipped()
	} else {
		s.metrics.RecordDrawStarted()
	}
	s.refreshGauges(ctx)
	return record, nil
}

func (s *Service) FulfillRandomness(requestID uint64, randomWords []*big.Int) (*lottery.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.engine.FulfillRandomness(requestID, randomWords)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDrawSettled()
	s.refreshGauges(context.Background())
	return record, nil
}

func (s *Service) RecoverFailedDraw(requestID uint64) (*lottery.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.engine.RecoverFailedDraw(requestID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDrawRecovered()
	return record, nil
}

func (s *Service) SetFeeReceiver(addr [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SetFeeReceiver(addr)
}

func (s *Service) SetFeeBps(bps uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SetFeeBps(bps)
}

func (s *Service) SetMaxStake(maxStake *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SetMaxStake(maxStake)
}

// PoolStatus is the public snapshot of the pool.
type PoolStatus struct {
	TotalStaked    *big.Int
	ProjectedPrize *big.Int
	EpochStartedAt uint64
	EpochEndAt     uint64
	EpochEnded     bool
	Awarding       bool
	RequestID      uint64
	TotalDraws     uint64
	FeeBps         uint64
	PenaltyBps     uint64
	EpochSeconds   uint64
}

func (s *Service) PoolStatus(ctx context.Context) (*PoolStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	supply, err := s.engine.TotalSupply()
	if err != nil {
		return nil, err
	}
	epoch, err := s.engine.Epoch()
	if err != nil {
		return nil, err
	}
	endAt, err := s.engine.EpochEndAt()
	if err != nil {
		return nil, err
	}
	ended, err := s.engine.EpochEnded()
	if err != nil {
		return nil, err
	}
	prize, err := s.engine.CurrentAward(ctx)
	if err != nil {
		return nil, err
	}
	params := s.engine.Params()
	return &PoolStatus{
		TotalStaked:    supply,
		ProjectedPrize: prize,
		EpochStartedAt: epoch.EpochStartedAt,
		EpochEndAt:     endAt,
		EpochEnded:     ended,
		Awarding:       epoch.AwardingInProgress,
		RequestID:      epoch.CurrentRequestID,
		TotalDraws:     epoch.TotalPrizeDraws,
		FeeBps:         params.FeeBps,
		PenaltyBps:     params.PenaltyBps,
		EpochSeconds:   params.EpochSeconds,
	}, nil
}

// AccountStatus is the public view of one participant.
type AccountStatus struct {
	Balance       *big.Int
	LastDepositAt uint64
	LockedUntil   uint64
}

func (s *Service) AccountStatus(addr [20]byte) (*AccountStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, err := s.engine.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	lastDeposit, err := s.engine.LastDepositAt(addr)
	if err != nil {
		return nil, err
	}
	status := &AccountStatus{Balance: balance, LastDepositAt: lastDeposit}
	if lastDeposit > 0 {
		status.LockedUntil = lastDeposit + s.engine.Params().EpochSeconds
	}
	return status, nil
}

func (s *Service) Draw(requestID uint64) (*lottery.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Draw(requestID)
}

// ErrExportsUnavailable is returned when the service was built without a
// draw lister.
var ErrExportsUnavailable = errors.New("gateway: draw history unavailable")

// DrawHistory returns every persisted draw record in request id order.
func (s *Service) DrawHistory() ([]*lottery.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draws == nil {
		return nil, ErrExportsUnavailable
	}
	var records []*lottery.DrawRecord
	err := s.draws.LotteryDraws(func(record *lottery.DrawRecord) bool {
		records = append(records, record)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if supply, err := s.engine.TotalSupply(); err == nil {
		s.metrics.SetTotalStaked(supply)
	}
	if prize, err := s.engine.CurrentAward(ctx); err == nil {
		s.metrics.SetProjectedPrize(prize)
	}
}
