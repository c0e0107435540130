package webhooks

import (
	"math/big"

	"prizepool/core/events"
	"prizepool/crypto"
)

// Emitter forwards draw lifecycle events from the lottery engine to the
// dispatcher while passing every event on to the wrapped emitter.
type Emitter struct {
	dispatcher *Dispatcher
	next       events.Emitter
}

// NewEmitter wraps next; a nil next discards non-draw events.
func NewEmitter(dispatcher *Dispatcher, next events.Emitter) *Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Emitter{dispatcher: dispatcher, next: next}
}

// Emit implements the events.Emitter interface.
func (e *Emitter) Emit(evt events.Event) {
	switch typed := evt.(type) {
	case events.AwardSettled:
		_ = e.dispatcher.EnqueueSettled(DrawSettledPayload{
			RequestID:     typed.RequestID,
			Winner:        crypto.NewAddress(crypto.PoolPrefix, typed.Winner[:]).String(),
			Prize:         bigString(typed.Prize),
			Fee:           bigString(typed.Fee),
			WinnerAmount:  bigString(typed.WinnerAmount),
			HeightSettled: typed.HeightSettled,
		})
	case events.AwardRecovered:
		_ = e.dispatcher.EnqueueRecovered(DrawRecoveredPayload{
			RequestID:       typed.RequestID,
			HeightRecovered: typed.HeightRecovered,
		})
	}
	e.next.Emit(evt)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
