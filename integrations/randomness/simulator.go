// Package randomness provides coordinator backends for prize draws: an HTTP
// client for an external oracle and an in-process simulator that fulfills
// requests after a configurable block delay.
package randomness

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"prizepool/native/lottery"
)

// Fulfiller receives random words for an open request. The gateway service's
// FulfillRandomness satisfies it.
type Fulfiller interface {
	FulfillRandomness(requestID uint64, randomWords []*big.Int) (*lottery.DrawRecord, error)
}

// Simulator hands out request ids immediately and delivers words once the
// configured number of blocks has elapsed. The caller drives it by reporting
// heights through Tick.
type Simulator struct {
	mu          sync.Mutex
	nextID      uint64
	delayBlocks uint64
	numWords    uint32
	heightFn    func() uint64
	pending     map[uint64]uint64 // request id -> height requested
	source      func() (*big.Int, error)
}

var _ lottery.Coordinator = (*Simulator)(nil)

func NewSimulator(delayBlocks uint64, numWords uint32, heightFn func() uint64) *Simulator {
	if numWords == 0 {
		numWords = 1
	}
	return &Simulator{
		nextID:      1,
		delayBlocks: delayBlocks,
		numWords:    numWords,
		heightFn:    heightFn,
		pending:     make(map[uint64]uint64),
		source:      randomWord,
	}
}

// SetSource overrides the word source for deterministic tests.
func (s *Simulator) SetSource(source func() (*big.Int, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
}

func (s *Simulator) RequestRandomWords(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.pending[id] = s.heightFn()
	return id, nil
}

// Tick fulfills every request whose delay has elapsed at the given height.
// Fulfillment errors for one request do not block the others; the last error
// is returned.
func (s *Simulator) Tick(height uint64, fulfiller Fulfiller) error {
	s.mu.Lock()
	due := make([]uint64, 0, len(s.pending))
	for id, requested := range s.pending {
		if height >= requested+s.delayBlocks {
			due = append(due, id)
		}
	}
	for _, id := range due {
		delete(s.pending, id)
	}
	numWords := int(s.numWords)
	source := s.source
	s.mu.Unlock()

	var lastErr error
	for _, id := range due {
		words := make([]*big.Int, 0, numWords)
		for i := 0; i < numWords; i++ {
			word, err := source()
			if err != nil {
				return err
			}
			words = append(words, word)
		}
		if _, err := fulfiller.FulfillRandomness(id, words); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Pending reports the number of unfulfilled requests.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

var maxWord = new(big.Int).Lsh(big.NewInt(1), 256)

func randomWord() (*big.Int, error) {
	word, err := rand.Int(rand.Reader, maxWord)
	if err != nil {
		return nil, errors.New("randomness: read entropy: " + err.Error())
	}
	return word, nil
}
