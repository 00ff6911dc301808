// Package expreplay implements experience replay buffers for
// off-policy learning
package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"

	ts "github.com/samuelfneumann/goddpg/timestep"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t ts.Transition) error

	// Sample samples a batch of experience from the buffer, returning
	// the batch of (S, A, R, ℽ, S') tuples as flat, row-major
	// []float64 columns
	Sample() (state, action, reward, discount, nextState []float64,
		err error)

	// Pointer returns the unbounded write counter. The next write
	// slot is Pointer() modulo MaxCapacity().
	Pointer() int

	// Full returns whether every slot of the buffer has been written
	// at least once
	Full() bool

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// ring implements a concrete ExperienceReplayer as a fixed-capacity
// ring buffer. Writes go to slot (pointer mod maxCapacity), and once
// the buffer has been filled, each new write overwrites the oldest
// slot. Sampling draws slots uniformly at random with replacement
// over the entire capacity and is denied until the buffer is full, so
// that a sample can never contain a slot that was never written.
type ring struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64

	// pointer counts writes and is never wrapped; the next write slot
	// is pointer mod maxCapacity
	pointer int

	maxCapacity int
	featureSize int
	actionSize  int
	batchSize   int

	rng *rand.Rand
}

// New creates and returns a new ExperienceReplayer with maxCapacity
// transition slots. The featureSize and actionSize parameters define
// the lengths of the state and action vectors, and batchSize the
// number of transitions returned by Sample().
func New(maxCapacity, batchSize, featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batchSize must be >= 1")
	}
	if batchSize > maxCapacity {
		return nil, fmt.Errorf("new: cannot have batch size (%v) > max "+
			"buffer capacity (%v)", batchSize, maxCapacity)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("new: feature size (%v) and action size "+
			"(%v) must be >= 1", featureSize, actionSize)
	}

	source := rand.NewSource(seed)

	return &ring{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),

		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
		batchSize:   batchSize,

		rng: rand.New(source),
	}, nil
}

// Add adds a transition to the buffer, overwriting the oldest slot
// once the buffer is full
func (r *ring) Add(t ts.Transition) error {
	if t.State.Len() != r.featureSize || t.NextState.Len() != r.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)"+
			"\n\thave(%v)", r.featureSize, t.State.Len())
	}
	if t.Action.Len() != r.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)"+
			"\n\thave(%v)", r.actionSize, t.Action.Len())
	}

	index := r.pointer % r.maxCapacity

	stateInd := index * r.featureSize
	for i := 0; i < r.featureSize; i++ {
		r.stateCache[stateInd+i] = t.State.AtVec(i)
		r.nextStateCache[stateInd+i] = t.NextState.AtVec(i)
	}

	actionInd := index * r.actionSize
	for i := 0; i < r.actionSize; i++ {
		r.actionCache[actionInd+i] = t.Action.AtVec(i)
	}

	r.rewardCache[index] = t.Reward
	r.discountCache[index] = t.Discount

	r.pointer++
	return nil
}

// Sample samples and returns a batch of transitions from the buffer.
// Slots are drawn uniformly at random with replacement over the whole
// capacity, so sampling is denied with ErrInsufficientSamples until
// every slot has been written at least once.
func (r *ring) Sample() ([]float64, []float64, []float64, []float64,
	[]float64, error) {
	if r.pointer == 0 {
		err := &ExpReplayError{Op: "sample", Err: errEmptyBuffer}
		return nil, nil, nil, nil, nil, err
	}
	if !r.Full() {
		err := &ExpReplayError{Op: "sample", Err: errInsufficientSamples}
		return nil, nil, nil, nil, nil, err
	}

	indices := make([]int, r.batchSize)
	for i := range indices {
		indices[i] = r.rng.Intn(r.maxCapacity)
	}

	stateBatch := make([]float64, r.batchSize*r.featureSize)
	nextStateBatch := make([]float64, r.batchSize*r.featureSize)
	for i, index := range indices {
		batchStartInd := i * r.featureSize
		expStartInd := index * r.featureSize
		copy(stateBatch[batchStartInd:batchStartInd+r.featureSize],
			r.stateCache[expStartInd:expStartInd+r.featureSize],
		)
		copy(nextStateBatch[batchStartInd:batchStartInd+r.featureSize],
			r.nextStateCache[expStartInd:expStartInd+r.featureSize],
		)
	}

	actionBatch := make([]float64, r.batchSize*r.actionSize)
	for i, index := range indices {
		batchStartInd := i * r.actionSize
		expStartInd := index * r.actionSize
		copy(actionBatch[batchStartInd:batchStartInd+r.actionSize],
			r.actionCache[expStartInd:expStartInd+r.actionSize],
		)
	}

	rewardBatch := make([]float64, r.batchSize)
	discountBatch := make([]float64, r.batchSize)
	for i, index := range indices {
		rewardBatch[i] = r.rewardCache[index]
		discountBatch[i] = r.discountCache[index]
	}

	return stateBatch, actionBatch, rewardBatch, discountBatch,
		nextStateBatch, nil
}

// Pointer returns the unbounded write counter
func (r *ring) Pointer() int {
	return r.pointer
}

// Full returns whether every slot has been written at least once
func (r *ring) Full() bool {
	return r.pointer >= r.maxCapacity
}

// Capacity returns the current number of samples in the buffer
func (r *ring) Capacity() int {
	if r.Full() {
		return r.maxCapacity
	}
	return r.pointer
}

// MaxCapacity returns the maximum number of samples allowed in the
// buffer
func (r *ring) MaxCapacity() int {
	return r.maxCapacity
}

// BatchSize returns the number of samples returned by Sample()
func (r *ring) BatchSize() int {
	return r.batchSize
}

// String returns the string representation of the ring
func (r *ring) String() string {
	baseStr := "Pointer: %v \nStates: %v \nActions: %v \nRewards: %v " +
		"\nDiscounts: %v \nNext States: %v"
	return fmt.Sprintf(baseStr, r.pointer, r.stateCache, r.actionCache,
		r.rewardCache, r.discountCache, r.nextStateCache)
}
