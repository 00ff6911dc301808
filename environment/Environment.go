// Package environment outlines the interface that environments must
// satisfy to be used with agents in this module. No simulation physics
// lives here. Environments are external collaborators, accessed for
// example through the gym sub-package.
package environment

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/goddpg/timestep"
)

// Environment implements a (possibly external) simulated environment
// with continuous states. An Environment starts ready to use and is
// reset between episodes with Reset().
type Environment interface {
	// Reset resets the environment to some starting state, returning
	// the first TimeStep of the new episode
	Reset() (ts.TimeStep, error)

	// Step takes one environmental step given some action, returning
	// the next TimeStep and whether the episode has ended
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)

	// CurrentTimeStep returns the last TimeStep of the environment
	CurrentTimeStep() ts.TimeStep

	ObservationSpec() Spec
	ActionSpec() Spec
	DiscountSpec() Spec

	// Close performs resource cleanup after the environment is no
	// longer needed
	Close() error
}
