package tracker

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/goddpg/timestep"
)

// episode tracks a synthetic episode of the argument rewards, whose
// final timestep is marked as the last in the episode
func episode(tr Tracker, rewards []float64) {
	obs := mat.NewVecDense(1, []float64{0.0})
	tr.Track(ts.New(ts.First, 0, 1.0, obs, 0))
	for i, reward := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		tr.Track(ts.New(stepType, reward, 1.0, obs, i+1))
	}
}

func TestReturnAccumulatesPerEpisode(t *testing.T) {
	tr := NewReturn("unused")

	episode(tr, []float64{1.0, 2.0, 3.0})
	episode(tr, []float64{-1.5, 0.5})

	returns := tr.(*Return).Returns()
	want := []float64{6.0, -1.0}
	if len(returns) != len(want) {
		t.Fatalf("got %v episodic returns, want %v", len(returns),
			len(want))
	}
	for i := range want {
		if returns[i] != want[i] {
			t.Errorf("episode %v: got return %v, want %v", i, returns[i],
				want[i])
		}
	}
}

func TestReturnIgnoresUnfinishedEpisode(t *testing.T) {
	tr := NewReturn("unused")

	episode(tr, []float64{1.0, 1.0})

	// A second episode that never reaches its last timestep
	obs := mat.NewVecDense(1, []float64{0.0})
	tr.Track(ts.New(ts.First, 0, 1.0, obs, 0))
	tr.Track(ts.New(ts.Mid, 5.0, 1.0, obs, 1))

	returns := tr.(*Return).Returns()
	if len(returns) != 1 {
		t.Fatalf("got %v episodic returns, want 1", len(returns))
	}
	if returns[0] != 2.0 {
		t.Errorf("got return %v, want 2.0", returns[0])
	}
}

func TestReturnPanicsOnNonSequentialTimesteps(t *testing.T) {
	tr := NewReturn("unused")
	obs := mat.NewVecDense(1, []float64{0.0})
	tr.Track(ts.New(ts.First, 0, 1.0, obs, 0))

	defer func() {
		if recover() == nil {
			t.Error("expected a panic for non-sequential timesteps")
		}
	}()
	tr.Track(ts.New(ts.Mid, 1.0, 1.0, obs, 5))
}

func TestReturnSaveRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")
	tr := NewReturn(filename)

	episode(tr, []float64{1.0, 2.0})
	episode(tr, []float64{3.0})
	tr.Save()

	data := LoadData(filename)
	want := []float64{3.0, 3.0}
	if len(data) != len(want) {
		t.Fatalf("got %v loaded returns, want %v", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("episode %v: got return %v, want %v", i, data[i],
				want[i])
		}
	}
}
