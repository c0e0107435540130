package lottery

import (
	"math/big"

	"prizepool/core/types"
)

// engineState is the narrow persistence surface the lottery module needs. It
// is satisfied by core/state.Manager in production and by in-memory mocks in
// tests.
type engineState interface {
	LotteryAccount(addr [20]byte) (*types.Account, error)
	PutLotteryAccount(addr [20]byte, account *types.Account) error
	LotteryAccounts(fn func(addr [20]byte, account *types.Account) bool) error
	LotterySupply() (*big.Int, error)
	SetLotterySupply(supply *big.Int) error
	LotteryEpoch() (*EpochState, bool, error)
	PutLotteryEpoch(epoch *EpochState) error
	LotteryDraw(requestID uint64) (*DrawRecord, bool, error)
	PutLotteryDraw(record *DrawRecord) error
	LotteryParams() (*Params, bool, error)
	PutLotteryParams(params *Params) error
}

// EngineState re-exports the persistence surface for implementors outside the
// package.
type EngineState = engineState
