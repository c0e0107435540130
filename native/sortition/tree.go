// Package sortition implements stake-weighted winner selection. A Store keeps
// independent k-ary sum trees addressed by namespace key; each leaf holds a
// participant's weight and every internal node stores the sum of its subtree,
// so weight updates and cumulative draws both cost O(log n).
package sortition

import (
	"errors"
	"math/big"
)

var (
	ErrTreeExists       = errors.New("sortition: tree already exists")
	ErrTreeNotFound     = errors.New("sortition: tree not found")
	ErrBranchingTooLow  = errors.New("sortition: branching factor must be at least 2")
	ErrNegativeWeight   = errors.New("sortition: negative weight")
	ErrEmptyTree        = errors.New("sortition: tree has no weight")
	ErrValueOutOfRange  = errors.New("sortition: cumulative value out of range")
	errCorruptTreeState = errors.New("sortition: node sums out of sync")
)

// tree is a flattened k-ary sum tree. Children of node i live at indices
// i*k+1..i*k+k and the parent of i at (i-1)/k. Leaves freed by zero-weight
// updates are pushed on a stack and reused before the node slice grows, which
// bounds the tree to the peak participant count.
type tree struct {
	branching uint64
	nodes     []*big.Int
	leafOf    map[[20]byte]uint64
	ownerOf   map[uint64][20]byte
	stack     []uint64
}

// Store holds independent selection trees addressed by namespace key.
type Store struct {
	trees map[string]*tree
}

// NewStore returns an empty tree store.
func NewStore() *Store {
	return &Store{trees: make(map[string]*tree)}
}

// CreateTree initialises an empty tree under key with the given branching
// factor. The branching factor is fixed for the life of the tree.
func (s *Store) CreateTree(key string, branching uint64) error {
	if branching < 2 {
		return ErrBranchingTooLow
	}
	if _, ok := s.trees[key]; ok {
		return ErrTreeExists
	}
	s.trees[key] = &tree{
		branching: branching,
		nodes:     []*big.Int{big.NewInt(0)},
		leafOf:    make(map[[20]byte]uint64),
		ownerOf:   make(map[uint64][20]byte),
	}
	return nil
}

// Set assigns participant an absolute weight, inserting the leaf if it is new
// and removing the association when the weight drops to zero. Ancestor sums
// are adjusted on the path from the touched leaf to the root.
func (s *Store) Set(key string, weight *big.Int, participant [20]byte) error {
	t, ok := s.trees[key]
	if !ok {
		return ErrTreeNotFound
	}
	if weight == nil {
		weight = big.NewInt(0)
	}
	if weight.Sign() < 0 {
		return ErrNegativeWeight
	}
	leaf, exists := t.leafOf[participant]
	switch {
	case !exists && weight.Sign() == 0:
		return nil
	case !exists:
		t.insert(weight, participant)
	case weight.Sign() == 0:
		delta := new(big.Int).Neg(t.nodes[leaf])
		t.nodes[leaf] = big.NewInt(0)
		t.stack = append(t.stack, leaf)
		delete(t.ownerOf, leaf)
		delete(t.leafOf, participant)
		t.updateParents(leaf, delta)
	default:
		delta := new(big.Int).Sub(weight, t.nodes[leaf])
		if delta.Sign() == 0 {
			return nil
		}
		t.nodes[leaf] = new(big.Int).Set(weight)
		t.updateParents(leaf, delta)
	}
	return nil
}

// Draw descends from the root to the leaf whose cumulative weight range
// contains value and returns that leaf's participant. The caller must supply
// 0 <= value < TotalWeight(key).
func (s *Store) Draw(key string, value *big.Int) ([20]byte, error) {
	var zero [20]byte
	t, ok := s.trees[key]
	if !ok {
		return zero, ErrTreeNotFound
	}
	total := t.nodes[0]
	if total.Sign() == 0 {
		return zero, ErrEmptyTree
	}
	if value == nil || value.Sign() < 0 || value.Cmp(total) >= 0 {
		return zero, ErrValueOutOfRange
	}

	idx := uint64(0)
	remaining := new(big.Int).Set(value)
	for {
		first := idx*t.branching + 1
		if first >= uint64(len(t.nodes)) {
			break
		}
		descended := false
		last := first + t.branching
		if last > uint64(len(t.nodes)) {
			last = uint64(len(t.nodes))
		}
		for child := first; child < last; child++ {
			if t.nodes[child].Cmp(remaining) <= 0 {
				remaining.Sub(remaining, t.nodes[child])
				continue
			}
			idx = child
			descended = true
			break
		}
		if !descended {
			return zero, errCorruptTreeState
		}
	}
	owner, ok := t.ownerOf[idx]
	if !ok {
		return zero, errCorruptTreeState
	}
	return owner, nil
}

// TotalWeight returns the root sum of the tree under key.
func (s *Store) TotalWeight(key string) (*big.Int, error) {
	t, ok := s.trees[key]
	if !ok {
		return nil, ErrTreeNotFound
	}
	return new(big.Int).Set(t.nodes[0]), nil
}

// Weight returns the current leaf weight for participant, zero if absent.
func (s *Store) Weight(key string, participant [20]byte) (*big.Int, error) {
	t, ok := s.trees[key]
	if !ok {
		return nil, ErrTreeNotFound
	}
	leaf, exists := t.leafOf[participant]
	if !exists {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(t.nodes[leaf]), nil
}

func (t *tree) insert(weight *big.Int, participant [20]byte) {
	var idx uint64
	if len(t.stack) == 0 {
		idx = uint64(len(t.nodes))
		t.nodes = append(t.nodes, new(big.Int).Set(weight))
		// Appending the first child of a node that is itself a leaf: the
		// occupant moves down one level so its slot can become internal.
		if idx != 1 && (idx-1)%t.branching == 0 {
			parent := (idx - 1) / t.branching
			if occupant, isLeaf := t.ownerOf[parent]; isLeaf {
				moved := idx + 1
				t.nodes = append(t.nodes, new(big.Int).Set(t.nodes[parent]))
				delete(t.ownerOf, parent)
				t.ownerOf[moved] = occupant
				t.leafOf[occupant] = moved
			}
		}
	} else {
		idx = t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.nodes[idx] = new(big.Int).Set(weight)
	}
	t.ownerOf[idx] = participant
	t.leafOf[participant] = idx
	t.updateParents(idx, weight)
}

func (t *tree) updateParents(idx uint64, delta *big.Int) {
	for idx != 0 {
		idx = (idx - 1) / t.branching
		t.nodes[idx] = new(big.Int).Add(t.nodes[idx], delta)
	}
}
