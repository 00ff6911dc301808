package ddpg

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/agent"
	env "github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/solver"
)

// Config implements a configuration for a DDPG agent. The
// hyperparameters are fixed at agent construction and never mutated.
type Config struct {
	// Hidden layers of the actor network. The actor always ends in a
	// final tanh layer scaled by the environment's action bounds, so
	// these describe the layers before it.
	ActorLayers      []int
	ActorBiases      []bool
	ActorActivations []*network.Activation

	// Units in the critic's joint state-action hidden layer
	CriticHidden int

	ActorSolver  *solver.Solver // Adapts the actor's weights
	CriticSolver *solver.Solver // Adapts the critic's weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	Tau float64 // Polyak averaging constant for target networks

	// Experience replay parameters. Learning begins only once the
	// buffer has been fully written.
	ReplayCapacity int
	ReplayBatch    int
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ReplayBatch
}

// actorActivations returns the activations of the actor's hidden
// layers, defaulting to rectified-linear when unspecified
func (c Config) actorActivations() []*network.Activation {
	if c.ActorActivations != nil {
		return c.ActorActivations
	}
	activations := make([]*network.Activation, len(c.ActorLayers))
	for i := range activations {
		activations[i] = network.ReLU()
	}
	return activations
}

// Validate checks a Config to ensure it is a valid configuration of a
// DDPG agent.
func (c Config) Validate() error {
	if len(c.ActorLayers) != len(c.ActorBiases) {
		return fmt.Errorf("config: invalid number of actor biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.ActorLayers),
			len(c.ActorBiases))
	}

	if c.ActorActivations != nil &&
		len(c.ActorLayers) != len(c.ActorActivations) {
		return fmt.Errorf("config: invalid number of actor activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.ActorLayers),
			len(c.ActorActivations))
	}

	if c.CriticHidden < 1 {
		return fmt.Errorf("config: critic hidden layer must have at "+
			"least 1 unit \n\thave(%v)", c.CriticHidden)
	}

	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("config: tau must be in (0, 1] \n\thave(%v)",
			c.Tau)
	}

	if c.ReplayCapacity < 1 {
		return fmt.Errorf("config: replay capacity must be >= 1 "+
			"\n\thave(%v)", c.ReplayCapacity)
	}

	if c.ReplayBatch < 1 || c.ReplayBatch > c.ReplayCapacity {
		return fmt.Errorf("config: replay batch size must be in [1, "+
			"capacity] \n\thave(%v)", c.ReplayBatch)
	}

	if c.ActorSolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("config: actor and critic solvers must be " +
			"specified")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("config: weight initializer must be specified")
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DDPG)
	return ok
}

// CreateAgent creates a new DDPG agent based on the configuration
func (c Config) CreateAgent(e env.Environment,
	seed uint64) (agent.Agent, error) {
	return New(e, c, int64(seed))
}
