package experiment

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/goddpg/utils/floatutils"
)

// GaussianNoise perturbs actions with Gaussian exploration noise whose
// standard deviation decays multiplicatively as learning progresses.
// The perturbed action is centred on the chosen action, so the policy
// remains the mean of the exploration distribution.
type GaussianNoise struct {
	scale float64
	decay float64
	dist  distuv.Normal
}

// NewGaussianNoise returns exploration noise with the given initial
// standard deviation and per-anneal decay factor
func NewGaussianNoise(scale, decay float64, seed uint64) *GaussianNoise {
	source := rand.NewSource(seed)

	return &GaussianNoise{
		scale: scale,
		decay: decay,
		dist: distuv.Normal{
			Mu:    0.0,
			Sigma: 1.0,
			Src:   source,
		},
	}
}

// Perturb returns a copy of action with Gaussian noise of standard
// deviation Scale() added elementwise, clipped to the actuator bounds
func (n *GaussianNoise) Perturb(action *mat.VecDense, lower,
	upper mat.Vector) *mat.VecDense {
	noisy := mat.NewVecDense(action.Len(), nil)
	for i := 0; i < action.Len(); i++ {
		value := action.AtVec(i) + n.scale*n.dist.Rand()
		bounds := r1.Interval{Min: lower.AtVec(i), Max: upper.AtVec(i)}
		noisy.SetVec(i, floatutils.ClipInterval(value, bounds))
	}
	return noisy
}

// Anneal decays the noise's standard deviation by its decay factor
func (n *GaussianNoise) Anneal() {
	n.scale *= n.decay
}

// Scale returns the current standard deviation of the noise
func (n *GaussianNoise) Scale() float64 {
	return n.scale
}
