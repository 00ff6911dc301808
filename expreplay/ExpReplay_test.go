package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/goddpg/timestep"
)

// transitionOf returns a transition whose every element equals v, for
// a buffer of 2-dimensional states and 1-dimensional actions
func transitionOf(v float64) ts.Transition {
	return ts.Transition{
		State:     mat.NewVecDense(2, []float64{v, v}),
		Action:    mat.NewVecDense(1, []float64{v}),
		Reward:    v,
		Discount:  v,
		NextState: mat.NewVecDense(2, []float64{v, v}),
	}
}

func TestAddTracksPointerAndCapacity(t *testing.T) {
	capacity := 5
	buffer, err := New(capacity, 2, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < capacity; i++ {
		if buffer.Full() {
			t.Errorf("buffer reported full after %v of %v adds", i,
				capacity)
		}
		if buffer.Pointer() != i {
			t.Errorf("got pointer %v, want %v", buffer.Pointer(), i)
		}
		if buffer.Capacity() != i {
			t.Errorf("got capacity %v, want %v", buffer.Capacity(), i)
		}
		if err := buffer.Add(transitionOf(float64(i))); err != nil {
			t.Fatal(err)
		}
	}

	if !buffer.Full() {
		t.Error("buffer not full after capacity many adds")
	}
	if buffer.Capacity() != capacity {
		t.Errorf("got capacity %v, want %v", buffer.Capacity(), capacity)
	}

	// The write counter keeps counting past the capacity, wrapping
	// only the write slot
	if err := buffer.Add(transitionOf(100)); err != nil {
		t.Fatal(err)
	}
	if buffer.Pointer() != capacity+1 {
		t.Errorf("got pointer %v, want %v", buffer.Pointer(), capacity+1)
	}
	if buffer.Capacity() != capacity {
		t.Errorf("got capacity %v, want %v after overwrite",
			buffer.Capacity(), capacity)
	}
}

func TestSampleDeniedUntilFull(t *testing.T) {
	capacity := 4
	buffer, err := New(capacity, 2, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	_, _, _, _, _, err = buffer.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("got %v, want empty buffer error", err)
	}

	for i := 0; i < capacity-1; i++ {
		if err := buffer.Add(transitionOf(float64(i))); err != nil {
			t.Fatal(err)
		}
		_, _, _, _, _, err := buffer.Sample()
		if !IsInsufficientSamples(err) {
			t.Errorf("got %v after %v adds, want insufficient samples "+
				"error", err, i+1)
		}
	}

	if err := buffer.Add(transitionOf(float64(capacity - 1))); err != nil {
		t.Fatal(err)
	}
	if _, _, _, _, _, err := buffer.Sample(); err != nil {
		t.Errorf("sampling a full buffer failed: %v", err)
	}
}

func TestSampleShapesAndContents(t *testing.T) {
	capacity, batchSize := 6, 3
	buffer, err := New(capacity, batchSize, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < capacity; i++ {
		if err := buffer.Add(transitionOf(float64(i))); err != nil {
			t.Fatal(err)
		}
	}

	state, action, reward, discount, nextState, err := buffer.Sample()
	if err != nil {
		t.Fatal(err)
	}

	if len(state) != batchSize*2 || len(nextState) != batchSize*2 {
		t.Errorf("got state batch lengths (%v, %v), want %v", len(state),
			len(nextState), batchSize*2)
	}
	if len(action) != batchSize {
		t.Errorf("got action batch length %v, want %v", len(action),
			batchSize)
	}
	if len(reward) != batchSize || len(discount) != batchSize {
		t.Errorf("got reward and discount batch lengths (%v, %v), "+
			"want %v", len(reward), len(discount), batchSize)
	}

	// Every sampled row must be one of the stored transitions, intact
	// across all of its columns
	for i := 0; i < batchSize; i++ {
		v := reward[i]
		if v < 0 || v >= float64(capacity) {
			t.Errorf("sampled reward %v was never stored", v)
		}
		row := []float64{state[2*i], state[2*i+1], action[i], discount[i],
			nextState[2*i], nextState[2*i+1]}
		for _, got := range row {
			if got != v {
				t.Errorf("sampled transition columns disagree: got %v, "+
					"want %v", got, v)
			}
		}
	}
}

func TestAddOverwritesOldestSlot(t *testing.T) {
	capacity := 3
	buffer, err := New(capacity, 1, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < capacity; i++ {
		if err := buffer.Add(transitionOf(float64(i))); err != nil {
			t.Fatal(err)
		}
	}

	// The next write lands on slot 0
	if err := buffer.Add(transitionOf(100)); err != nil {
		t.Fatal(err)
	}
	r := buffer.(*ring)
	if r.rewardCache[0] != 100 {
		t.Errorf("got %v in the oldest slot, want 100", r.rewardCache[0])
	}
	if r.rewardCache[1] != 1 || r.rewardCache[2] != 2 {
		t.Error("overwriting the oldest slot clobbered younger slots")
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New(2, 5, 2, 1, 1); err == nil {
		t.Error("expected error when batch size exceeds capacity")
	}
	if _, err := New(0, 1, 2, 1, 1); err == nil {
		t.Error("expected error for a zero-capacity buffer")
	}
	if _, err := New(2, 0, 2, 1, 1); err == nil {
		t.Error("expected error for a zero batch size")
	}
}
