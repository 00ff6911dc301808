package initwfn

import (
	"encoding/json"
	"testing"

	"gorgonia.org/tensor"
)

func TestInitWFnJSONRoundTrip(t *testing.T) {
	constructors := []func() (*InitWFn, error){
		func() (*InitWFn, error) { return NewGlorotU(1.0) },
		func() (*InitWFn, error) { return NewGlorotN(1.0) },
		func() (*InitWFn, error) { return NewGaussian(0.0, 0.1) },
		func() (*InitWFn, error) { return NewZeroes() },
		func() (*InitWFn, error) { return NewOnes() },
		func() (*InitWFn, error) { return NewConstant(0.5) },
	}

	for _, construct := range constructors {
		original, err := construct()
		if err != nil {
			t.Fatal(err)
		}

		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("%v initializer: %v", original.Type, err)
		}

		var decoded InitWFn
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%v initializer: %v", original.Type, err)
		}

		if decoded.Type != original.Type {
			t.Errorf("got type %v, want %v", decoded.Type, original.Type)
		}
		if decoded.Config != original.Config {
			t.Errorf("got config %+v, want %+v", decoded.Config,
				original.Config)
		}

		// The decoded initializer must produce weights of the
		// requested shape
		weights := decoded.InitWFn()(tensor.Float64, 2, 3).([]float64)
		if len(weights) != 6 {
			t.Errorf("%v initializer: got %v weights, want 6",
				original.Type, len(weights))
		}
	}
}

func TestConstantInitializersProduceTheirValues(t *testing.T) {
	tests := []struct {
		construct func() (*InitWFn, error)
		want      float64
	}{
		{func() (*InitWFn, error) { return NewZeroes() }, 0.0},
		{func() (*InitWFn, error) { return NewOnes() }, 1.0},
		{func() (*InitWFn, error) { return NewConstant(-2.5) }, -2.5},
	}

	for _, test := range tests {
		init, err := test.construct()
		if err != nil {
			t.Fatal(err)
		}

		weights := init.InitWFn()(tensor.Float64, 3, 2).([]float64)
		for _, w := range weights {
			if w != test.want {
				t.Errorf("%v initializer: got weight %v, want %v",
					init.Type, w, test.want)
			}
		}
	}
}
