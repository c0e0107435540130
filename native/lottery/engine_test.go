package lottery

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/core/events"
	"prizepool/core/types"
)

type mockState struct {
	accounts map[[20]byte]*types.Account
	supply   *big.Int
	epoch    *EpochState
	draws    map[uint64]*DrawRecord
	params   *Params
}

func newMockState() *mockState {
	return &mockState{
		accounts: make(map[[20]byte]*types.Account),
		supply:   big.NewInt(0),
		draws:    make(map[uint64]*DrawRecord),
	}
}

func (m *mockState) LotteryAccount(addr [20]byte) (*types.Account, error) {
	account, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

func (m *mockState) PutLotteryAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func (m *mockState) LotteryAccounts(fn func(addr [20]byte, account *types.Account) bool) error {
	for addr, account := range m.accounts {
		if !fn(addr, account.Clone()) {
			return nil
		}
	}
	return nil
}

func (m *mockState) LotterySupply() (*big.Int, error) {
	return new(big.Int).Set(m.supply), nil
}

func (m *mockState) SetLotterySupply(supply *big.Int) error {
	m.supply = new(big.Int).Set(supply)
	return nil
}

func (m *mockState) LotteryEpoch() (*EpochState, bool, error) {
	if m.epoch == nil {
		return nil, false, nil
	}
	return m.epoch.Clone(), true, nil
}

func (m *mockState) PutLotteryEpoch(epoch *EpochState) error {
	m.epoch = epoch.Clone()
	return nil
}

func (m *mockState) LotteryDraw(requestID uint64) (*DrawRecord, bool, error) {
	record, ok := m.draws[requestID]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) PutLotteryDraw(record *DrawRecord) error {
	m.draws[record.RequestID] = record.Clone()
	return nil
}

func (m *mockState) LotteryParams() (*Params, bool, error) {
	if m.params == nil {
		return nil, false, nil
	}
	clone := m.params.Clone()
	return &clone, true, nil
}

func (m *mockState) PutLotteryParams(params *Params) error {
	clone := params.Clone()
	m.params = &clone
	return nil
}

// mockVenue simulates the external staking service: deposits accumulate as
// principal, tests accrue yield by bumping unclaimed directly.
type mockVenue struct {
	deposited  *big.Int
	unclaimed  *big.Int
	minDeposit *big.Int
	payouts    map[[20]byte]*big.Int
}

func newMockVenue() *mockVenue {
	return &mockVenue{
		deposited:  big.NewInt(0),
		unclaimed:  big.NewInt(0),
		minDeposit: big.NewInt(1),
		payouts:    make(map[[20]byte]*big.Int),
	}
}

func (v *mockVenue) DepositSelf(_ context.Context, amount *big.Int) error {
	v.deposited.Add(v.deposited, amount)
	return nil
}

func (v *mockVenue) Withdraw(_ context.Context, amount *big.Int, recipient [20]byte) error {
	if v.deposited.Cmp(amount) < 0 {
		return errors.New("venue: insufficient stake")
	}
	v.deposited.Sub(v.deposited, amount)
	paid, ok := v.payouts[recipient]
	if !ok {
		paid = big.NewInt(0)
		v.payouts[recipient] = paid
	}
	paid.Add(paid, amount)
	return nil
}

func (v *mockVenue) ClaimSelf(_ context.Context) error {
	v.unclaimed = big.NewInt(0)
	return nil
}

func (v *mockVenue) StakeInfo(_ context.Context) (VenueStakeInfo, error) {
	return VenueStakeInfo{
		Deposited: new(big.Int).Set(v.deposited),
		Unclaimed: new(big.Int).Set(v.unclaimed),
	}, nil
}

func (v *mockVenue) MinDeposit(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(v.minDeposit), nil
}

func (v *mockVenue) accrue(amount int64) {
	v.unclaimed.Add(v.unclaimed, big.NewInt(amount))
}

type mockCoordinator struct {
	next     uint64
	requests int
}

func (c *mockCoordinator) RequestRandomWords(_ context.Context) (uint64, error) {
	c.next++
	c.requests++
	return c.next, nil
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) typesSeen() []string {
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

type fixture struct {
	engine      *Engine
	state       *mockState
	venue       *mockVenue
	coordinator *mockCoordinator
	emitter     *recordingEmitter
	now         uint64
	height      uint64
}

func testParams() Params {
	params := DefaultParams()
	params.EpochSeconds = 3600
	params.FeeBps = 1000
	params.PenaltyBps = 500
	params.GraceBlocks = 100
	params.MaxStake = big.NewInt(1_000_000)
	params.FeeReceiver = addr(0xFE)
	return params
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:       newMockState(),
		venue:       newMockVenue(),
		coordinator: &mockCoordinator{},
		emitter:     &recordingEmitter{},
		now:         1_000_000,
		height:      500,
	}
	engine, err := NewEngine(f.state, f.venue, f.coordinator, testParams(), f.now)
	require.NoError(t, err)
	engine.SetNowFunc(func() uint64 { return f.now })
	engine.SetHeightFunc(func() uint64 { return f.height })
	engine.SetEmitter(f.emitter)
	f.engine = engine
	return f
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func (f *fixture) requireInvariant(t *testing.T) {
	t.Helper()
	supply, err := f.engine.TotalSupply()
	require.NoError(t, err)
	weight, err := f.engine.Ledger().TotalWeight()
	require.NoError(t, err)
	require.Zero(t, supply.Cmp(weight), "tree weight %s diverged from supply %s", weight, supply)
}

func TestDepositValidations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.engine.Deposit(ctx, [20]byte{}, big.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(t, f.engine.Deposit(ctx, addr(0x01), nil), ErrInvalidAmount)
	require.ErrorIs(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(1_000_001)), ErrMaxStakeExceeded)

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(600_000)))
	require.ErrorIs(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(500_000)), ErrMaxStakeExceeded)
	f.requireInvariant(t)

	// Past the epoch end deposits are rejected.
	f.now += 3600
	require.ErrorIs(t, f.engine.Deposit(ctx, addr(0x02), big.NewInt(1)), ErrEpochEnded)
}

func TestDepositUpdatesLedgerVenueAndTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	balance, err := f.engine.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Equal(t, int64(10_000), balance.Int64())
	require.Equal(t, int64(10_000), f.venue.deposited.Int64())

	ts, err := f.engine.LastDepositAt(addr(0x01))
	require.NoError(t, err)
	require.Equal(t, f.now, ts)
	f.requireInvariant(t)
}

func TestWithdrawEarlyExitPenaltyStaysPooled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))

	// Still inside the penalty window: 5% retained.
	f.now += 10
	require.NoError(t, f.engine.Withdraw(ctx, addr(0x01), big.NewInt(10_000)))
	require.Equal(t, int64(9_500), f.venue.payouts[addr(0x01)].Int64())
	// The penalty remains staked at the venue.
	require.Equal(t, int64(500), f.venue.deposited.Int64())

	balance, err := f.engine.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
	f.requireInvariant(t)
}

func TestWithdrawAfterWindowPaysFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	f.now += 3599
	require.NoError(t, f.engine.Deposit(ctx, addr(0x02), big.NewInt(5_000)))
	f.now += 3601

	// 0x01's last deposit is two epochs old, no penalty.
	require.NoError(t, f.engine.Withdraw(ctx, addr(0x01), big.NewInt(10_000)))
	require.Equal(t, int64(10_000), f.venue.payouts[addr(0x01)].Int64())
	f.requireInvariant(t)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.ErrorIs(t, f.engine.Withdraw(ctx, addr(0x01), big.NewInt(1)), ErrInsufficientBalance)
}

func TestStartAwardingBeforeEpochEndFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	f.venue.accrue(1_000)

	_, err := f.engine.StartAwarding(ctx)
	require.ErrorIs(t, err, ErrEpochNotEnded)

	// After two epoch durations the same call succeeds.
	f.now += 7200
	record, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, int64(1_000), record.Prize.Int64())
	require.Equal(t, 1, f.coordinator.requests)
}

func TestStartAwardingZeroYieldSkipsDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	startBefore := f.mustEpoch(t).EpochStartedAt

	f.now += 7250
	record, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)
	require.Nil(t, record)
	require.Zero(t, f.coordinator.requests)

	epoch := f.mustEpoch(t)
	require.False(t, epoch.AwardingInProgress)
	require.Zero(t, epoch.TotalPrizeDraws)
	// Boundary advanced by whole epochs to at or before now.
	require.Equal(t, startBefore+7200, epoch.EpochStartedAt)
	require.Greater(t, epoch.EpochStartedAt+3600, f.now)
}

func TestSingleDrawInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	f.venue.accrue(500)
	f.now += 3600

	_, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)

	_, err = f.engine.StartAwarding(ctx)
	require.ErrorIs(t, err, ErrAwardInProgress)

	// Stake mutations are blocked while the draw is open.
	require.ErrorIs(t, f.engine.Deposit(ctx, addr(0x02), big.NewInt(1)), ErrAwardInProgress)
	require.ErrorIs(t, f.engine.Withdraw(ctx, addr(0x01), big.NewInt(1)), ErrAwardInProgress)
	require.ErrorIs(t, f.engine.Transfer(addr(0x01), addr(0x02), big.NewInt(1)), ErrAwardInProgress)
}

func TestFulfillSettlesExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	participants := make([][20]byte, 0, 10)
	for i := byte(1); i <= 10; i++ {
		participants = append(participants, addr(i))
		require.NoError(t, f.engine.Deposit(ctx, addr(i), big.NewInt(10_000)))
	}
	f.venue.accrue(2_000)
	f.now += 3600

	record, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)

	f.height += 10
	settled, err := f.engine.FulfillRandomness(record.RequestID, []*big.Int{big.NewInt(0xDEADBEEF)})
	require.NoError(t, err)
	require.True(t, settled.IsFinalized)
	require.True(t, settled.HasWinner)

	prize := big.NewInt(2_000)
	fee := Fee(prize, 1000)
	winnerAmount := new(big.Int).Sub(prize, fee)

	winners := 0
	for _, p := range participants {
		balance, err := f.engine.BalanceOf(p)
		require.NoError(t, err)
		switch {
		case balance.Cmp(big.NewInt(10_000)) == 0:
		case balance.Cmp(new(big.Int).Add(big.NewInt(10_000), winnerAmount)) == 0:
			winners++
			require.Equal(t, settled.Winner, p)
		default:
			t.Fatalf("unexpected balance %s for participant %x", balance, p[:1])
		}
	}
	require.Equal(t, 1, winners)

	feeBalance, err := f.engine.BalanceOf(addr(0xFE))
	require.NoError(t, err)
	require.Zero(t, feeBalance.Cmp(fee))

	epoch := f.mustEpoch(t)
	require.Equal(t, uint64(1), epoch.TotalPrizeDraws)
	require.False(t, epoch.AwardingInProgress)
	f.requireInvariant(t)
}

func TestFulfillValidations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.FulfillRandomness(1, []*big.Int{big.NewInt(1)})
	require.ErrorIs(t, err, ErrNoAwardInProgress)

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	f.venue.accrue(100)
	f.now += 3600
	record, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)

	_, err = f.engine.FulfillRandomness(record.RequestID+1, []*big.Int{big.NewInt(1)})
	require.ErrorIs(t, err, ErrRequestMismatch)
	_, err = f.engine.FulfillRandomness(record.RequestID, nil)
	require.ErrorIs(t, err, ErrNoRandomWords)

	_, err = f.engine.FulfillRandomness(record.RequestID, []*big.Int{big.NewInt(7)})
	require.NoError(t, err)
	_, err = f.engine.FulfillRandomness(record.RequestID, []*big.Int{big.NewInt(7)})
	require.ErrorIs(t, err, ErrNoAwardInProgress)
}

func TestFulfillIsDeterministic(t *testing.T) {
	run := func() [20]byte {
		f := newFixture(t)
		ctx := context.Background()
		for i := byte(1); i <= 5; i++ {
			require.NoError(t, f.engine.Deposit(ctx, addr(i), big.NewInt(int64(i)*1_000)))
		}
		f.venue.accrue(900)
		f.now += 3600
		record, err := f.engine.StartAwarding(ctx)
		require.NoError(t, err)
		settled, err := f.engine.FulfillRandomness(record.RequestID, []*big.Int{big.NewInt(123456789)})
		require.NoError(t, err)
		return settled.Winner
	}
	first := run()
	second := run()
	require.Equal(t, first, second)
}

func TestRecoverFailedDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(10_000)))
	f.venue.accrue(300)
	f.now += 3600
	record, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)

	_, err = f.engine.RecoverFailedDraw(record.RequestID)
	require.ErrorIs(t, err, ErrGracePeriodActive)

	balancesBefore, err := f.engine.BalanceOf(addr(0x01))
	require.NoError(t, err)

	f.height += 100
	recovered, err := f.engine.RecoverFailedDraw(record.RequestID)
	require.NoError(t, err)
	require.True(t, recovered.IsFinalized)
	require.False(t, recovered.HasWinner)

	// No balances changed and the pool is open again.
	balancesAfter, err := f.engine.BalanceOf(addr(0x01))
	require.NoError(t, err)
	require.Zero(t, balancesBefore.Cmp(balancesAfter))

	epoch := f.mustEpoch(t)
	require.False(t, epoch.AwardingInProgress)
	require.Zero(t, epoch.TotalPrizeDraws)

	_, err = f.engine.RecoverFailedDraw(record.RequestID)
	require.ErrorIs(t, err, ErrNoAwardInProgress)
	f.requireInvariant(t)
}

func TestMonotonicEpochCatchUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(1_000)))
	startBefore := f.mustEpoch(t).EpochStartedAt

	// Five idle epochs elapse before anyone triggers awarding.
	f.now += 5*3600 + 120
	record, err := f.engine.StartAwarding(ctx)
	require.NoError(t, err)
	require.Nil(t, record)

	epoch := f.mustEpoch(t)
	require.GreaterOrEqual(t, epoch.EpochStartedAt, startBefore)
	require.Equal(t, startBefore+5*3600, epoch.EpochStartedAt)
	require.Greater(t, epoch.EpochStartedAt+3600, f.now)
}

func TestAdminSetters(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.engine.SetFeeReceiver([20]byte{}), ErrZeroAddress)
	require.NoError(t, f.engine.SetFeeReceiver(addr(0xAB)))
	require.Equal(t, addr(0xAB), f.engine.Params().FeeReceiver)

	require.ErrorIs(t, f.engine.SetFeeBps(2001), ErrFeeTooHigh)
	require.NoError(t, f.engine.SetFeeBps(2000))
	require.Equal(t, uint64(2000), f.engine.Params().FeeBps)

	require.ErrorIs(t, f.engine.SetMaxStake(big.NewInt(0)), ErrMaxStakeTooLow)
	require.NoError(t, f.engine.SetMaxStake(big.NewInt(5)))
	require.Zero(t, f.engine.Params().MaxStake.Cmp(big.NewInt(5)))

	// Each admin change carries its own dedicated event type.
	seen := f.emitter.typesSeen()
	require.Contains(t, seen, events.TypeFeeReceiverUpdated)
	require.Contains(t, seen, events.TypeFeeUpdated)
	require.Contains(t, seen, events.TypeMaxStakeUpdated)
}

func TestParamsSurviveRestart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetFeeBps(1500))

	restarted, err := NewEngine(f.state, f.venue, f.coordinator, testParams(), f.now)
	require.NoError(t, err)
	require.Equal(t, uint64(1500), restarted.Params().FeeBps)
}

func TestLedgerRebuildOnRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.Deposit(ctx, addr(0x01), big.NewInt(4_000)))
	require.NoError(t, f.engine.Deposit(ctx, addr(0x02), big.NewInt(6_000)))

	restarted, err := NewEngine(f.state, f.venue, f.coordinator, testParams(), f.now)
	require.NoError(t, err)
	weight, err := restarted.Ledger().TotalWeight()
	require.NoError(t, err)
	require.Equal(t, int64(10_000), weight.Int64())
}

func (f *fixture) mustEpoch(t *testing.T) *EpochState {
	t.Helper()
	epoch, err := f.engine.Epoch()
	require.NoError(t, err)
	return epoch
}

type faultyState struct {
	*mockState
	failPuts bool
}

func (s *faultyState) PutLotteryAccount(addr [20]byte, account *types.Account) error {
	if s.failPuts {
		return errors.New("state: write failed")
	}
	return s.mockState.PutLotteryAccount(addr, account)
}

func TestWithdrawBurnFailureLeavesVenueUntouched(t *testing.T) {
	st := &faultyState{mockState: newMockState()}
	venue := newMockVenue()
	now := uint64(1_000_000)
	engine, err := NewEngine(st, venue, &mockCoordinator{}, testParams(), now)
	require.NoError(t, err)
	engine.SetNowFunc(func() uint64 { return now })

	alice := addr(0x01)
	require.NoError(t, engine.Deposit(context.Background(), alice, big.NewInt(10_000)))

	st.failPuts = true
	err = engine.Withdraw(context.Background(), alice, big.NewInt(4_000))
	require.Error(t, err)

	// The failed burn must not have paid anything out of the venue, and the
	// ledger must be exactly as it was before the attempt.
	require.Empty(t, venue.payouts)
	require.Equal(t, int64(10_000), venue.deposited.Int64())
	balance, err := engine.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, int64(10_000), balance.Int64())
	supply, err := engine.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, int64(10_000), supply.Int64())
}
