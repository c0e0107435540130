package sortition

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestCreateTreeDuplicateKey(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 4))
	require.ErrorIs(t, s.CreateTree("pool", 4), ErrTreeExists)
	require.ErrorIs(t, s.CreateTree("other", 1), ErrBranchingTooLow)
}

func TestSetUnknownTree(t *testing.T) {
	s := NewStore()
	require.ErrorIs(t, s.Set("missing", big.NewInt(1), addr(0x01)), ErrTreeNotFound)
	_, err := s.Draw("missing", big.NewInt(0))
	require.ErrorIs(t, err, ErrTreeNotFound)
	_, err = s.TotalWeight("missing")
	require.ErrorIs(t, err, ErrTreeNotFound)
}

func TestSetAndTotalWeight(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 4))

	require.NoError(t, s.Set("pool", big.NewInt(100), addr(0x01)))
	require.NoError(t, s.Set("pool", big.NewInt(250), addr(0x02)))
	require.NoError(t, s.Set("pool", big.NewInt(50), addr(0x03)))

	total, err := s.TotalWeight("pool")
	require.NoError(t, err)
	require.Equal(t, int64(400), total.Int64())

	// Absolute semantics: setting again replaces, not adds.
	require.NoError(t, s.Set("pool", big.NewInt(10), addr(0x02)))
	total, err = s.TotalWeight("pool")
	require.NoError(t, err)
	require.Equal(t, int64(160), total.Int64())

	w, err := s.Weight("pool", addr(0x02))
	require.NoError(t, err)
	require.Equal(t, int64(10), w.Int64())
}

func TestSetNegativeWeightRejected(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 2))
	require.ErrorIs(t, s.Set("pool", big.NewInt(-1), addr(0x01)), ErrNegativeWeight)
}

func TestDrawRangesCoverEveryParticipant(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 2))

	weights := map[[20]byte]int64{
		addr(0x01): 10,
		addr(0x02): 20,
		addr(0x03): 30,
		addr(0x04): 40,
	}
	for a, w := range weights {
		require.NoError(t, s.Set("pool", big.NewInt(w), a))
	}

	counts := make(map[[20]byte]int64)
	for v := int64(0); v < 100; v++ {
		winner, err := s.Draw("pool", big.NewInt(v))
		require.NoError(t, err)
		counts[winner]++
	}
	// Every cumulative value maps to exactly one participant and each
	// participant owns a range equal to its weight.
	for a, w := range weights {
		require.Equal(t, w, counts[a], "participant %x", a[:1])
	}
}

func TestDrawBounds(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 4))

	_, err := s.Draw("pool", big.NewInt(0))
	require.ErrorIs(t, err, ErrEmptyTree)

	require.NoError(t, s.Set("pool", big.NewInt(5), addr(0x01)))
	_, err = s.Draw("pool", big.NewInt(5))
	require.ErrorIs(t, err, ErrValueOutOfRange)
	_, err = s.Draw("pool", big.NewInt(-1))
	require.ErrorIs(t, err, ErrValueOutOfRange)

	winner, err := s.Draw("pool", big.NewInt(4))
	require.NoError(t, err)
	require.Equal(t, addr(0x01), winner)
}

func TestZeroWeightNeverDrawn(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 2))

	require.NoError(t, s.Set("pool", big.NewInt(7), addr(0x01)))
	require.NoError(t, s.Set("pool", big.NewInt(9), addr(0x02)))
	require.NoError(t, s.Set("pool", big.NewInt(3), addr(0x03)))
	require.NoError(t, s.Set("pool", big.NewInt(0), addr(0x02)))

	total, err := s.TotalWeight("pool")
	require.NoError(t, err)
	require.Equal(t, int64(10), total.Int64())

	for v := int64(0); v < 10; v++ {
		winner, err := s.Draw("pool", big.NewInt(v))
		require.NoError(t, err)
		require.NotEqual(t, addr(0x02), winner)
	}
}

func TestFreedLeafSlotsAreReused(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("pool", 2))

	for i := byte(1); i <= 8; i++ {
		require.NoError(t, s.Set("pool", big.NewInt(int64(i)), addr(i)))
	}
	tr := s.trees["pool"]
	sizeBefore := len(tr.nodes)

	// Churn: remove and re-add participants repeatedly. The node slice must
	// not grow because freed slots are reused.
	for round := 0; round < 10; round++ {
		for i := byte(1); i <= 4; i++ {
			require.NoError(t, s.Set("pool", big.NewInt(0), addr(i)))
		}
		for i := byte(1); i <= 4; i++ {
			require.NoError(t, s.Set("pool", big.NewInt(int64(i)), addr(i)))
		}
	}
	require.Equal(t, sizeBefore, len(tr.nodes))
}

func TestRandomisedSumInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, branching := range []uint64{2, 3, 4, 7} {
		s := NewStore()
		require.NoError(t, s.CreateTree("pool", branching))

		shadow := make(map[[20]byte]int64)
		for op := 0; op < 2000; op++ {
			a := addr(byte(rng.Intn(32) + 1))
			w := int64(rng.Intn(1000))
			require.NoError(t, s.Set("pool", big.NewInt(w), a))
			if w == 0 {
				delete(shadow, a)
			} else {
				shadow[a] = w
			}

			var want int64
			for _, sw := range shadow {
				want += sw
			}
			total, err := s.TotalWeight("pool")
			require.NoError(t, err)
			require.Equal(t, want, total.Int64(), "branching %d op %d", branching, op)

			if want > 0 {
				v := big.NewInt(rng.Int63n(want))
				winner, err := s.Draw("pool", v)
				require.NoError(t, err)
				require.NotZero(t, shadow[winner])
			}
		}
	}
}

func TestIndependentKeys(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.CreateTree("a", 2))
	require.NoError(t, s.CreateTree("b", 4))

	require.NoError(t, s.Set("a", big.NewInt(11), addr(0x01)))
	require.NoError(t, s.Set("b", big.NewInt(22), addr(0x01)))

	ta, err := s.TotalWeight("a")
	require.NoError(t, err)
	tb, err := s.TotalWeight("b")
	require.NoError(t, err)
	require.Equal(t, int64(11), ta.Int64())
	require.Equal(t, int64(22), tb.Int64())
}
