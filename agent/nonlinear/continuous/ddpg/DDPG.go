// Package ddpg implements the Deep Deterministic Policy Gradient
// algorithm for environments with continuous, bounded actions.
//
// DDPG learns a deterministic policy (the actor) alongside an
// action-value function (the critic). Both networks are shadowed by
// slowly-tracking target copies which are moved toward the live
// networks by Polyak averaging after every learning step. The critic
// is trained by regression toward the one-step bootstrapped target
//
//	r + ℽ·Q_target(s', π_target(s'))
//
// while the actor is trained to maximize the live critic's value of
// its own actions. Transitions are collected in a fixed-capacity
// replay buffer, and learning begins only once the buffer has been
// fully written at least once.
//
// The agent's SelectAction is deterministic: exploration noise is the
// caller's responsibility.
package ddpg

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/expreplay"
	"github.com/samuelfneumann/goddpg/network"
	ts "github.com/samuelfneumann/goddpg/timestep"
)

// DDPG implements the Deep Deterministic Policy Gradient algorithm
type DDPG struct {
	// Deterministic policy for action selection, kept equal to the
	// train actor after every learning step
	behaviourActor *network.ActorMLP
	behaviourVM    G.VM

	// Live actor together with a copy of the live critic on one
	// graph, composing Q(s, π(s)). Gradients of the actor loss flow
	// to the actor's parameters only; the critic copy is re-synced
	// from the live critic after each of the critic's own updates.
	trainActor   *network.ActorMLP
	policyCritic *network.CriticMLP
	policyVM     G.VM
	actorSolver  G.Solver

	// Live critic with its MSE regression loss
	trainCritic   *network.CriticMLP
	criticTargets *G.Node // Input node fed r + ℽ·Q_target(s', a')
	criticVM      G.VM
	criticSolver  G.Solver

	// Target actor and critic sharing one graph, composing
	// Q_target(s', π_target(s')) in a single VM run
	targetActor  *network.ActorMLP
	targetCritic *network.CriticMLP
	targetVM     G.VM

	tau float64 // Polyak averaging constant

	replay expreplay.ExperienceReplayer

	prevStep ts.TimeStep

	batchSize  int
	actionDims int
	eval       bool
}

// New creates and returns a new DDPG agent on the given environment
func New(env environment.Environment, config Config,
	seed int64) (*DDPG, error) {
	// Ensure environment has continuous actions
	if env.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("ddpg: cannot use non-continuous actions")
	}

	// Ensure the configuration is valid
	if err := config.Validate(); err != nil {
		return nil, err
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()
	batchSize := config.BatchSize()
	init := config.InitWFn.InitWFn()

	// The tanh-and-scale policy parameterization requires a symmetric
	// actuator bound
	actionBound := make([]float64, actionDims)
	for i := 0; i < actionDims; i++ {
		upper := env.ActionSpec().UpperBound.AtVec(i)
		lower := env.ActionSpec().LowerBound.AtVec(i)
		if upper != -lower {
			return nil, fmt.Errorf("ddpg: action bounds must be "+
				"symmetric \n\thave([%v, %v])", lower, upper)
		}
		actionBound[i] = upper
	}

	// Live actor, sharing its graph with a copy of the critic so that
	// the actor loss -mean(Q(s, π(s))) can be computed in one VM run
	gPolicy := G.NewGraph()
	trainActor, err := network.NewActorMLP(
		features,
		batchSize,
		actionDims,
		gPolicy,
		config.ActorLayers,
		config.ActorBiases,
		init,
		config.actorActivations(),
		actionBound,
		"actor",
	)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create actor: %v", err)
	}

	// Live critic with its regression loss
	gCritic := G.NewGraph()
	trainCritic, err := network.NewCriticMLP(
		features,
		actionDims,
		batchSize,
		config.CriticHidden,
		gCritic,
		init,
		"critic",
	)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create critic: %v", err)
	}

	criticTargets := G.NewMatrix(
		gCritic,
		tensor.Float64,
		G.WithShape(batchSize, 1),
		G.WithName("updateTarget"),
	)
	criticLoss := G.Must(G.Sub(trainCritic.Prediction(), criticTargets))
	criticLoss = G.Must(G.Square(criticLoss))
	criticLoss = G.Must(G.Mean(criticLoss))

	if _, err := G.Grad(criticLoss,
		trainCritic.Learnables()...); err != nil {
		return nil, fmt.Errorf("ddpg: could not compute critic "+
			"gradient: %v", err)
	}
	criticVM := G.NewTapeMachine(gCritic,
		G.BindDualValues(trainCritic.Learnables()...))

	// Critic copy wired to the actor's output. The actor loss is
	// -mean(Q(s, π(s))); only the actor's parameters receive
	// gradients, so the critic is held fixed during the actor's step.
	policyCritic, err := trainCritic.CloneWithInputsTo(trainActor.Input(),
		trainActor.Prediction())
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not wire critic to actor: %v",
			err)
	}

	actorLoss := G.Must(G.Mean(policyCritic.Prediction()))
	actorLoss = G.Must(G.Neg(actorLoss))

	if _, err := G.Grad(actorLoss, trainActor.Learnables()...); err != nil {
		return nil, fmt.Errorf("ddpg: could not compute actor "+
			"gradient: %v", err)
	}
	policyVM := G.NewTapeMachine(gPolicy,
		G.BindDualValues(trainActor.Learnables()...))

	// Action-selection copy of the actor with batch size 1
	behaviourActor, err := trainActor.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create behaviour "+
			"actor: %v", err)
	}
	behaviourVM := G.NewTapeMachine(behaviourActor.Graph())

	// Target networks, initialized equal to the live networks
	gTarget := G.NewGraph()
	targetActor, err := trainActor.CloneWithBatchTo(batchSize, gTarget)
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create target actor: %v",
			err)
	}
	targetCritic, err := trainCritic.CloneWithInputsTo(targetActor.Input(),
		targetActor.Prediction())
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create target critic: %v",
			err)
	}
	targetVM := G.NewTapeMachine(gTarget)

	// Replay buffer for transitions
	replay, err := expreplay.New(config.ReplayCapacity, batchSize,
		features, actionDims, uint64(seed))
	if err != nil {
		return nil, fmt.Errorf("ddpg: could not create experience "+
			"replay buffer: %v", err)
	}

	return &DDPG{
		behaviourActor: behaviourActor,
		behaviourVM:    behaviourVM,

		trainActor:   trainActor,
		policyCritic: policyCritic,
		policyVM:     policyVM,
		actorSolver:  config.ActorSolver.Solver,

		trainCritic:   trainCritic,
		criticTargets: criticTargets,
		criticVM:      criticVM,
		criticSolver:  config.CriticSolver.Solver,

		targetActor:  targetActor,
		targetCritic: targetCritic,
		targetVM:     targetVM,

		tau:    config.Tau,
		replay: replay,

		batchSize:  batchSize,
		actionDims: actionDims,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DDPG) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n",
			t.Number)
	}
	d.prevStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep, adding the transition that led to it to the replay buffer
func (d *DDPG) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if !nextStep.First() {
		transition := ts.NewTransition(d.prevStep, action, nextStep)
		if err := d.replay.Add(transition); err != nil {
			return fmt.Errorf("observe: could not add to replay "+
				"buffer: %v", err)
		}
	}

	d.prevStep = nextStep
	return nil
}

// Step updates the weights of the agent's actor and critic networks
// and moves the target networks toward the updated live networks. The
// call is a no-op until the replay buffer has been fully written at
// least once.
func (d *DDPG) Step() error {
	state, action, reward, discount, nextState, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) ||
		expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("step: could not sample replay buffer: %v", err)
	}

	// Compute Q_target(s', π_target(s')) for the batch of next states
	if err := d.targetActor.SetInput(nextState); err != nil {
		return fmt.Errorf("step: could not set target actor input: %v",
			err)
	}
	if err := d.targetVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run target networks: %v", err)
	}
	nextValues := d.targetCritic.Output().Data().([]float64)
	nextQ := mat.NewVecDense(d.batchSize, nil)
	for i := 0; i < d.batchSize; i++ {
		nextQ.SetVec(i, nextValues[i])
	}
	d.targetVM.Reset()

	// Bootstrapped update target r + ℽ·Q_target(s', a')
	r := mat.NewVecDense(d.batchSize, reward)
	discounts := mat.NewVecDense(d.batchSize, discount)
	updateTarget := mat.NewVecDense(d.batchSize, nil)
	updateTarget.MulElemVec(discounts, nextQ)
	updateTarget.AddVec(r, updateTarget)

	// One gradient step on the actor loss, critic held fixed
	if err := d.trainActor.SetInput(state); err != nil {
		return fmt.Errorf("step: could not set actor input: %v", err)
	}
	if err := d.policyVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run actor graph: %v", err)
	}
	if err := d.actorSolver.Step(d.trainActor.Model()); err != nil {
		return fmt.Errorf("step: could not step actor solver: %v", err)
	}
	d.policyVM.Reset()

	// One gradient step on the critic regression loss. The target is
	// computed from the target networks, so the actor's update above
	// does not feed into it.
	if err := d.trainCritic.SetState(state); err != nil {
		return fmt.Errorf("step: could not set critic state input: %v",
			err)
	}
	if err := d.trainCritic.SetAction(action); err != nil {
		return fmt.Errorf("step: could not set critic action input: %v",
			err)
	}
	targetTensor := tensor.New(
		tensor.WithShape(d.batchSize, 1),
		tensor.WithBacking(updateTarget.RawVector().Data),
	)
	if err := G.Let(d.criticTargets, targetTensor); err != nil {
		return fmt.Errorf("step: could not set critic update target: %v",
			err)
	}
	if err := d.criticVM.RunAll(); err != nil {
		return fmt.Errorf("step: could not run critic graph: %v", err)
	}
	if err := d.criticSolver.Step(d.trainCritic.Model()); err != nil {
		return fmt.Errorf("step: could not step critic solver: %v", err)
	}
	d.criticVM.Reset()

	// The actor loss must see the critic's newly learned weights on
	// the next step
	if err := network.Set(d.policyCritic, d.trainCritic); err != nil {
		return fmt.Errorf("step: could not sync critic copy: %v", err)
	}
	if err := network.Set(d.behaviourActor, d.trainActor); err != nil {
		return fmt.Errorf("step: could not sync behaviour actor: %v", err)
	}

	// Soft-update the target networks toward the just-updated live
	// networks
	if err := network.Polyak(d.targetActor, d.trainActor,
		d.tau); err != nil {
		return fmt.Errorf("step: could not update target actor: %v", err)
	}
	if err := network.Polyak(d.targetCritic, d.trainCritic,
		d.tau); err != nil {
		return fmt.Errorf("step: could not update target critic: %v", err)
	}

	return nil
}

// SelectAction returns the action the deterministic policy chooses at
// the argument timestep. No exploration noise is added; callers that
// need exploration perturb the returned action themselves.
func (d *DDPG) SelectAction(t ts.TimeStep) *mat.VecDense {
	obs := make([]float64, t.Observation.Len())
	for i := range obs {
		obs[i] = t.Observation.AtVec(i)
	}

	if err := d.behaviourActor.SetInput(obs); err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}
	if err := d.behaviourVM.RunAll(); err != nil {
		panic(fmt.Sprintf("selectaction: could not run policy: %v", err))
	}

	actionData := d.behaviourActor.Output().Data().([]float64)
	action := mat.NewVecDense(d.actionDims, nil)
	for i := 0; i < d.actionDims; i++ {
		action.SetVec(i, actionData[i])
	}

	d.behaviourVM.Reset()
	return action
}

// Learning returns whether the replay buffer's warm-up phase has
// ended. Before then, Step() calls are pure data collection no-ops.
// The transition is one-directional: once learning begins it never
// stops.
func (d *DDPG) Learning() bool {
	return d.replay.Full()
}

// Eval sets the agent into evaluation mode
func (d *DDPG) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DDPG) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DDPG) IsEval() bool {
	return d.eval
}

// EndEpisode performs cleanup at the end of an episode
func (d *DDPG) EndEpisode() {}

// Close performs resource cleanup after the agent is done learning
func (d *DDPG) Close() error {
	vms := []G.VM{d.behaviourVM, d.policyVM, d.criticVM, d.targetVM}
	for _, vm := range vms {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: could not close VM: %v", err)
		}
	}
	return nil
}
