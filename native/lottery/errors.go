package lottery

import "errors"

var (
	ErrEpochNotEnded       = errors.New("lottery: epoch not ended")
	ErrEpochEnded          = errors.New("lottery: epoch already ended")
	ErrAwardInProgress     = errors.New("lottery: award in progress")
	ErrNoAwardInProgress   = errors.New("lottery: no award in progress")
	ErrDrawNotFound        = errors.New("lottery: draw not found")
	ErrDrawFinalized       = errors.New("lottery: draw already finalized")
	ErrRequestMismatch     = errors.New("lottery: request id does not match open draw")
	ErrGracePeriodActive   = errors.New("lottery: recovery grace period not elapsed")
	ErrNoRandomWords       = errors.New("lottery: fulfillment carried no random words")
	ErrMaxStakeExceeded    = errors.New("lottery: deposit exceeds max stake")
	ErrFeeTooHigh          = errors.New("lottery: fee exceeds configured cap")
	ErrMaxStakeTooLow      = errors.New("lottery: max stake below configured floor")
	ErrSelfTransfer        = errors.New("lottery: transfer to self")
	ErrZeroAddress         = errors.New("lottery: zero address")
	ErrInvalidAmount       = errors.New("lottery: amount must be positive")
	ErrInsufficientBalance = errors.New("lottery: insufficient balance")

	errNilState       = errors.New("lottery engine: state not configured")
	errNilVenue       = errors.New("lottery engine: yield venue not configured")
	errNilCoordinator = errors.New("lottery engine: randomness coordinator not configured")
)
