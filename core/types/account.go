package types

import "math/big"

// Account tracks a participant's position in the prize pool. Balance is the
// participant's staked principal denominated in pool tokens; it doubles as the
// participant's weight in the winner selection tree.
type Account struct {
	Nonce         uint64   `json:"nonce"`
	Balance       *big.Int `json:"balance"`
	LastDepositAt uint64   `json:"lastDepositAt,omitempty"`
}

// EnsureDefaults replaces nil big.Int fields with zero values so callers can
// mutate the account without nil checks.
func (a *Account) EnsureDefaults() {
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
}

// Clone produces a deep copy of the account to protect internal references.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{
		Nonce:         a.Nonce,
		Balance:       big.NewInt(0),
		LastDepositAt: a.LastDepositAt,
	}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}
