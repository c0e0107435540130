package sortition

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"
)

var (
	ErrZeroUpperBound     = errors.New("sortition: zero upper bound")
	ErrUpperBoundTooLarge = errors.New("sortition: upper bound exceeds 256 bits")
)

// Uniform maps a 256-bit seed onto [0, upperBound) without modulo bias. The
// rejection threshold is 2^256 mod upperBound: seeds below it fall in the
// truncated final cycle of the modulus, so they are re-derived by hashing the
// original seed with an incrementing counter until an unbiased value is found.
// The function is pure; the same seed and bound always produce the same value.
func Uniform(seed [32]byte, upperBound *big.Int) (*big.Int, error) {
	if upperBound == nil || upperBound.Sign() <= 0 {
		return nil, ErrZeroUpperBound
	}
	bound, overflow := uint256.FromBig(upperBound)
	if overflow {
		return nil, ErrUpperBoundTooLarge
	}
	// 2^256 mod bound, computed via wrap-around negation.
	min := new(uint256.Int).Neg(bound)
	min.Mod(min, bound)

	random := new(uint256.Int).SetBytes(seed[:])
	for counter := uint64(0); random.Lt(min); counter++ {
		derived := rederive(seed, counter)
		random.SetBytes(derived[:])
	}
	random.Mod(random, bound)
	return random.ToBig(), nil
}

func rederive(seed [32]byte, counter uint64) [32]byte {
	var buf [40]byte
	copy(buf[:32], seed[:])
	binary.BigEndian.PutUint64(buf[32:], counter)
	return blake3.Sum256(buf[:])
}
