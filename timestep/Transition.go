package timestep

import "gonum.org/v1/gonum/mat"

// Transition packages together an environmental transition
// (S, A, R, ℽ, S') for learning algorithms to work with. The reward
// and discount are those returned by the environment on the step to
// NextState.
type Transition struct {
	State     mat.Vector
	Action    mat.Vector
	Reward    float64
	Discount  float64
	NextState mat.Vector
}

// NewTransition packages an action taken at one TimeStep and the
// TimeStep that the action led to into a Transition
func NewTransition(step TimeStep, action mat.Vector,
	nextStep TimeStep) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		Discount:  nextStep.Discount,
		NextState: nextStep.Observation,
	}
}
