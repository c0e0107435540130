package lottery

import (
	"fmt"
	"math/big"

	"prizepool/core/types"
	"prizepool/native/sortition"
)

// Ledger is the authoritative record of participant balances and total
// supply. Every balance mutation routes through it and updates the selection
// tree in the same call, so the tree is always an exact projection of the
// ledger: sum of leaf weights == total supply after every operation.
type Ledger struct {
	state engineState
	trees *sortition.Store
}

// NewLedger creates a ledger over state and an empty selection tree, then
// rebuilds the tree from the persisted balances.
func NewLedger(state engineState) (*Ledger, error) {
	if state == nil {
		return nil, errNilState
	}
	trees := sortition.NewStore()
	if err := trees.CreateTree(TreeKey, DefaultBranching); err != nil {
		return nil, err
	}
	l := &Ledger{state: state, trees: trees}
	if err := l.rebuild(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) rebuild() error {
	var iterErr error
	err := l.state.LotteryAccounts(func(addr [20]byte, account *types.Account) bool {
		if account == nil || account.Balance == nil || account.Balance.Sign() == 0 {
			return true
		}
		if err := l.trees.Set(TreeKey, account.Balance, addr); err != nil {
			iterErr = err
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return iterErr
}

// BalanceOf returns the participant's staked balance.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	account, err := l.state.LotteryAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(account.Balance), nil
}

// TotalSupply returns the total outstanding stake.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	supply, err := l.state.LotterySupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

// Mint credits amount of new stake to addr and grows total supply. The
// selection tree is updated in the same step.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := l.state.LotteryAccount(addr)
	if err != nil {
		return err
	}
	if account == nil {
		account = &types.Account{}
	}
	account.EnsureDefaults()
	account.Balance = new(big.Int).Add(account.Balance, amount)

	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	supply.Add(supply, amount)

	return l.apply(addr, account, supply)
}

// Burn removes amount of stake from addr and shrinks total supply.
func (l *Ledger) Burn(addr [20]byte, amount *big.Int) error {
	if addr == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := l.state.LotteryAccount(addr)
	if err != nil {
		return err
	}
	if account == nil {
		account = &types.Account{}
	}
	account.EnsureDefaults()
	if account.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	account.Balance = new(big.Int).Sub(account.Balance, amount)

	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	if supply.Cmp(amount) < 0 {
		return fmt.Errorf("lottery ledger: supply underflow burning %s", amount)
	}
	supply.Sub(supply, amount)

	return l.apply(addr, account, supply)
}

// Transfer moves amount of stake between participants. Self-transfers are a
// protocol error: they would collapse the two tree updates onto a single
// leaf and corrupt its weight.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return ErrZeroAddress
	}
	if from == to {
		return ErrSelfTransfer
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	sender, err := l.state.LotteryAccount(from)
	if err != nil {
		return err
	}
	if sender == nil {
		sender = &types.Account{}
	}
	sender.EnsureDefaults()
	if sender.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	receiver, err := l.state.LotteryAccount(to)
	if err != nil {
		return err
	}
	if receiver == nil {
		receiver = &types.Account{}
	}
	receiver.EnsureDefaults()

	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	receiver.Balance = new(big.Int).Add(receiver.Balance, amount)

	if err := l.state.PutLotteryAccount(from, sender); err != nil {
		return err
	}
	if err := l.state.PutLotteryAccount(to, receiver); err != nil {
		return err
	}
	if err := l.trees.Set(TreeKey, sender.Balance, from); err != nil {
		return err
	}
	return l.trees.Set(TreeKey, receiver.Balance, to)
}

// Draw selects the participant whose cumulative weight range contains value.
func (l *Ledger) Draw(value *big.Int) ([20]byte, error) {
	return l.trees.Draw(TreeKey, value)
}

// TotalWeight returns the selection tree's root sum.
func (l *Ledger) TotalWeight() (*big.Int, error) {
	return l.trees.TotalWeight(TreeKey)
}

// Account returns a copy of the stored account for addr.
func (l *Ledger) Account(addr [20]byte) (*types.Account, error) {
	account, err := l.state.LotteryAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// PutAccount persists a mutated account and syncs its tree weight.
func (l *Ledger) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		account = &types.Account{}
	}
	account.EnsureDefaults()
	if err := l.state.PutLotteryAccount(addr, account); err != nil {
		return err
	}
	return l.trees.Set(TreeKey, account.Balance, addr)
}

func (l *Ledger) apply(addr [20]byte, account *types.Account, supply *big.Int) error {
	if err := l.state.PutLotteryAccount(addr, account); err != nil {
		return err
	}
	if err := l.state.SetLotterySupply(supply); err != nil {
		return err
	}
	return l.trees.Set(TreeKey, account.Balance, addr)
}
