package lottery

import "math/big"

// EpochState is the process-wide lifecycle record for the pool: the start of
// the open epoch, whether a draw is outstanding, and the running settled-draw
// counter. There is exactly one EpochState per pool.
type EpochState struct {
	EpochStartedAt     uint64 `json:"epochStartedAt"`
	AwardingInProgress bool   `json:"awardingInProgress"`
	CurrentRequestID   uint64 `json:"currentRequestId,omitempty"`
	TotalPrizeDraws    uint64 `json:"totalPrizeDraws"`
}

// Clone produces a copy of the epoch state.
func (e *EpochState) Clone() *EpochState {
	if e == nil {
		return &EpochState{}
	}
	clone := *e
	return &clone
}

// DrawRecord captures one randomness-backed prize draw. The prize is fixed at
// request time; the record is mutated exactly once, by fulfillment or by the
// timeout recovery path, and is immutable afterwards.
type DrawRecord struct {
	RequestID       uint64   `json:"requestId"`
	Prize           *big.Int `json:"prize"`
	HeightRequested uint64   `json:"heightRequested"`
	Winner          [20]byte `json:"winner,omitempty"`
	HasWinner       bool     `json:"hasWinner"`
	IsFinalized     bool     `json:"isFinalized"`
	HeightSettled   uint64   `json:"heightSettled,omitempty"`
}

// Clone produces a deep copy of the draw record.
func (d *DrawRecord) Clone() *DrawRecord {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Prize = copyBigInt(d.Prize)
	return &clone
}

// VenueStakeInfo reports the pool's position at the external yield venue.
type VenueStakeInfo struct {
	Deposited *big.Int `json:"deposited"`
	Unclaimed *big.Int `json:"unclaimed"`
}

// Total returns deposited plus unclaimed, the venue-side ground truth used to
// compute the current prize.
func (v VenueStakeInfo) Total() *big.Int {
	total := copyBigInt(v.Deposited)
	if v.Unclaimed != nil {
		total.Add(total, v.Unclaimed)
	}
	return total
}
