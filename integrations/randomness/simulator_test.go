package randomness

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/native/lottery"
)

type captureFulfiller struct {
	calls map[uint64][]*big.Int
}

func (c *captureFulfiller) FulfillRandomness(requestID uint64, randomWords []*big.Int) (*lottery.DrawRecord, error) {
	if c.calls == nil {
		c.calls = make(map[uint64][]*big.Int)
	}
	c.calls[requestID] = randomWords
	return &lottery.DrawRecord{RequestID: requestID}, nil
}

func TestSimulatorFulfillsAfterDelay(t *testing.T) {
	height := uint64(100)
	sim := NewSimulator(3, 1, func() uint64 { return height })
	sim.SetSource(func() (*big.Int, error) { return big.NewInt(42), nil })

	id, err := sim.RequestRandomWords(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.Equal(t, 1, sim.Pending())

	sink := &captureFulfiller{}
	require.NoError(t, sim.Tick(102, sink))
	require.Empty(t, sink.calls)
	require.Equal(t, 1, sim.Pending())

	require.NoError(t, sim.Tick(103, sink))
	require.Len(t, sink.calls, 1)
	require.Equal(t, int64(42), sink.calls[id][0].Int64())
	require.Zero(t, sim.Pending())
}

func TestSimulatorAssignsSequentialIDs(t *testing.T) {
	sim := NewSimulator(0, 2, func() uint64 { return 1 })
	first, err := sim.RequestRandomWords(context.Background())
	require.NoError(t, err)
	second, err := sim.RequestRandomWords(context.Background())
	require.NoError(t, err)
	require.Equal(t, first+1, second)
}

func TestSimulatorWordCount(t *testing.T) {
	sim := NewSimulator(0, 3, func() uint64 { return 1 })
	sim.SetSource(func() (*big.Int, error) { return big.NewInt(7), nil })
	id, err := sim.RequestRandomWords(context.Background())
	require.NoError(t, err)

	sink := &captureFulfiller{}
	require.NoError(t, sim.Tick(1, sink))
	require.Len(t, sink.calls[id], 3)
}
