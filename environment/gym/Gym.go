// Package gym provides access to OpenAI Gym environments through the
// Go bindings for Gym found at https://github.com/samuelfneumann/GoGym.
//
// Only environments with continuous Box observation and action spaces
// are supported, since the agents in this module work with continuous
// states and actions. Environments use their default tasks and episode
// cutoffs.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	env "github.com/samuelfneumann/goddpg/environment"
	ts "github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
)

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	currentStep ts.TimeStep
	discount    float64
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite. The discount parameter sets the
// discount recorded on every TimeStep the environment returns.
func New(name string, discount float64, seed uint64) (env.Environment,
	ts.TimeStep, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not create "+
			"environment: %v", err)
	}

	goGymEnv.Seed(int(seed))
	obs, err := goGymEnv.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not reset "+
			"environment: %v", err)
	}

	gymEnv := &GymEnv{
		Environment: goGymEnv,
		discount:    discount,
	}

	t := ts.New(ts.First, 0, discount, obs, 0)
	gymEnv.currentStep = t

	return gymEnv, t, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	obs, reward, done, err := g.Environment.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}

	t := ts.New(ts.Mid, reward, g.discount, obs, g.CurrentTimeStep().Number+1)
	if done {
		t.StepType = ts.Last
	}
	g.currentStep = t

	return t, done, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}

	t := ts.New(ts.First, 0, g.discount, obs, 0)
	g.currentStep = t

	return t, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation specification of the
// environment
func (g *GymEnv) ObservationSpec() env.Spec {
	space := g.ObservationSpace()

	box, ok := space.(*gogym.BoxSpace)
	if !ok {
		panic("observationSpec: package gym supports only GoGym's BoxSpace " +
			"observation spaces")
	}

	low := box.Low()[0]
	high := box.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, env.Observation, low, high, env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	space := g.ActionSpace()

	box, ok := space.(*gogym.BoxSpace)
	if !ok {
		panic("actionSpec: package gym supports only GoGym's BoxSpace " +
			"action spaces")
	}

	low := box.Low()[0]
	high := box.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, env.Action, low, high, env.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{g.discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}
