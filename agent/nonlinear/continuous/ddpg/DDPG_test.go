package ddpg

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/solver"
	ts "github.com/samuelfneumann/goddpg/timestep"
)

// mockEnv is a stub continuous-action environment whose observations
// cycle deterministically, used to drive the agent without any
// simulation physics
type mockEnv struct {
	step     ts.TimeStep
	bound    float64
	discount float64
}

func newMockEnv(bound, discount float64) *mockEnv {
	return &mockEnv{bound: bound, discount: discount}
}

func (m *mockEnv) observation(number int) mat.Vector {
	v := float64(number%10) / 10.0
	return mat.NewVecDense(3, []float64{v, -v, v * v})
}

func (m *mockEnv) Reset() (ts.TimeStep, error) {
	m.step = ts.New(ts.First, 0, m.discount, m.observation(0), 0)
	return m.step, nil
}

func (m *mockEnv) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	number := m.step.Number + 1
	reward := -math.Abs(action.AtVec(0))
	m.step = ts.New(ts.Mid, reward, m.discount, m.observation(number),
		number)
	return m.step, false, nil
}

func (m *mockEnv) CurrentTimeStep() ts.TimeStep {
	return m.step
}

func (m *mockEnv) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(3, nil)
	low := mat.NewVecDense(3, []float64{-1, -1, -1})
	high := mat.NewVecDense(3, []float64{1, 1, 1})
	return environment.NewSpec(shape, environment.Observation, low, high,
		environment.Continuous)
}

func (m *mockEnv) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, []float64{-m.bound})
	high := mat.NewVecDense(1, []float64{m.bound})
	return environment.NewSpec(shape, environment.Action, low, high,
		environment.Continuous)
}

func (m *mockEnv) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{m.discount})
	return environment.NewSpec(shape, environment.Discount, bound, bound,
		environment.Continuous)
}

func (m *mockEnv) Close() error { return nil }

// newTestAgent returns a DDPG agent on a mockEnv with a small replay
// buffer so that tests can reach the learning phase quickly
func newTestAgent(t *testing.T, capacity, batchSize int) (*DDPG,
	*mockEnv) {
	env := newMockEnv(2.0, 0.9)

	actorSolver, err := solver.NewDefaultAdam(0.01, batchSize)
	if err != nil {
		t.Fatal(err)
	}
	criticSolver, err := solver.NewDefaultAdam(0.01, batchSize)
	if err != nil {
		t.Fatal(err)
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatal(err)
	}

	config := Config{
		ActorLayers:  []int{10},
		ActorBiases:  []bool{true},
		CriticHidden: 10,

		ActorSolver:  actorSolver,
		CriticSolver: criticSolver,
		InitWFn:      init,

		Tau:            0.05,
		ReplayCapacity: capacity,
		ReplayBatch:    batchSize,
	}
	agent, err := New(env, config, 1)
	if err != nil {
		t.Fatal(err)
	}
	return agent, env
}

// fillReplay runs the agent on the environment until its replay
// buffer's warm-up phase has ended
func fillReplay(t *testing.T, agent *DDPG, env *mockEnv) {
	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if err := agent.ObserveFirst(step); err != nil {
		t.Fatal(err)
	}
	for !agent.Learning() {
		action := agent.SelectAction(step)
		step, _, err = env.Step(action)
		if err != nil {
			t.Fatal(err)
		}
		if err := agent.Observe(action, step); err != nil {
			t.Fatal(err)
		}
	}
}

// weightsOf returns a copy of the current values of the argument
// learnables
func weightsOf(learnables G.Nodes) [][]float64 {
	values := make([][]float64, len(learnables))
	for i, learnable := range learnables {
		values[i] = append([]float64{},
			learnable.Value().Data().([]float64)...)
	}
	return values
}

// changed returns whether any weight differs between the two snapshots
func changed(before, after [][]float64) bool {
	for i := range before {
		for j := range before[i] {
			if before[i][j] != after[i][j] {
				return true
			}
		}
	}
	return false
}

func TestNewRejectsAsymmetricActionBounds(t *testing.T) {
	env := newMockEnv(2.0, 0.9)

	actorSolver, err := solver.NewVanilla(0.01, 4, -1)
	if err != nil {
		t.Fatal(err)
	}
	criticSolver, err := solver.NewVanilla(0.01, 4, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	init, err := initwfn.NewGaussian(0.0, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	config := Config{
		ActorLayers:    []int{10},
		ActorBiases:    []bool{true},
		CriticHidden:   10,
		ActorSolver:    actorSolver,
		CriticSolver:   criticSolver,
		InitWFn:        init,
		Tau:            0.05,
		ReplayCapacity: 16,
		ReplayBatch:    4,
	}

	asymmetric := &asymmetricEnv{env}
	if _, err := New(asymmetric, config, 1); err == nil {
		t.Error("expected an error for asymmetric action bounds")
	}
}

func TestNewWithVanillaSolverAndGaussianInit(t *testing.T) {
	env := newMockEnv(2.0, 0.9)

	actorSolver, err := solver.NewVanilla(0.01, 4, -1)
	if err != nil {
		t.Fatal(err)
	}
	criticSolver, err := solver.NewVanilla(0.01, 4, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	init, err := initwfn.NewGaussian(0.0, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	config := Config{
		ActorLayers:    []int{10},
		ActorBiases:    []bool{true},
		CriticHidden:   10,
		ActorSolver:    actorSolver,
		CriticSolver:   criticSolver,
		InitWFn:        init,
		Tau:            0.05,
		ReplayCapacity: 16,
		ReplayBatch:    4,
	}

	agent, err := New(env, config, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer agent.Close()

	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	action := agent.SelectAction(step)
	if action.Len() != 1 {
		t.Errorf("got %v action dimensions, want 1", action.Len())
	}
}

// asymmetricEnv overrides mockEnv with an action space whose bounds
// are not symmetric about zero
type asymmetricEnv struct {
	*mockEnv
}

func (a *asymmetricEnv) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, []float64{-1.0})
	high := mat.NewVecDense(1, []float64{2.0})
	return environment.NewSpec(shape, environment.Action, low, high,
		environment.Continuous)
}

func TestSelectActionIsDeterministicAndBounded(t *testing.T) {
	agent, env := newTestAgent(t, 16, 4)
	defer agent.Close()

	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}

	first := agent.SelectAction(step)
	second := agent.SelectAction(step)
	if !mat.EqualApprox(first, second, 1e-12) {
		t.Errorf("got different actions (%v, %v) for the same "+
			"observation", mat.Formatted(first), mat.Formatted(second))
	}
	for i := 0; i < first.Len(); i++ {
		if math.Abs(first.AtVec(i)) > env.bound {
			t.Errorf("got action element %v outside bound %v",
				first.AtVec(i), env.bound)
		}
	}
}

func TestStepIsNoOpDuringWarmUp(t *testing.T) {
	agent, env := newTestAgent(t, 16, 4)
	defer agent.Close()

	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if err := agent.ObserveFirst(step); err != nil {
		t.Fatal(err)
	}

	if agent.Learning() {
		t.Error("agent reported learning with an empty replay buffer")
	}

	before := weightsOf(agent.trainActor.Learnables())
	for i := 0; i < 8; i++ {
		action := agent.SelectAction(step)
		step, _, err = env.Step(action)
		if err != nil {
			t.Fatal(err)
		}
		if err := agent.Observe(action, step); err != nil {
			t.Fatal(err)
		}
		if err := agent.Step(); err != nil {
			t.Fatal(err)
		}
	}
	after := weightsOf(agent.trainActor.Learnables())

	if agent.Learning() {
		t.Error("agent reported learning before the buffer was full")
	}
	for i := range before {
		for j := range before[i] {
			if before[i][j] != after[i][j] {
				t.Fatal("actor weights changed during replay warm-up")
			}
		}
	}
}

func TestStepMovesTargetsTowardLiveNetworks(t *testing.T) {
	agent, env := newTestAgent(t, 16, 4)
	defer agent.Close()

	fillReplay(t, agent, env)
	if !agent.Learning() {
		t.Fatal("agent not learning after replay buffer filled")
	}

	actorBefore := weightsOf(agent.trainActor.Learnables())
	targetActorBefore := weightsOf(agent.targetActor.Learnables())
	criticBefore := weightsOf(agent.trainCritic.Learnables())
	targetCriticBefore := weightsOf(agent.targetCritic.Learnables())

	if err := agent.Step(); err != nil {
		t.Fatal(err)
	}

	actorAfter := weightsOf(agent.trainActor.Learnables())
	targetActorAfter := weightsOf(agent.targetActor.Learnables())
	criticAfter := weightsOf(agent.trainCritic.Learnables())
	targetCriticAfter := weightsOf(agent.targetCritic.Learnables())

	if !changed(actorBefore, actorAfter) {
		t.Error("actor weights did not change on a learning step")
	}
	if !changed(criticBefore, criticAfter) {
		t.Error("critic weights did not change on a learning step")
	}

	// Every target weight of both networks must land exactly on the
	// Polyak average between its old value and the new live value
	tau := agent.tau
	for i := range targetActorBefore {
		for j := range targetActorBefore[i] {
			want := (1-tau)*targetActorBefore[i][j] + tau*actorAfter[i][j]
			if math.Abs(targetActorAfter[i][j]-want) > 1e-8 {
				t.Fatalf("target actor learnable %v element %v: got %v, "+
					"want %v", i, j, targetActorAfter[i][j], want)
			}
		}
	}
	for i := range targetCriticBefore {
		for j := range targetCriticBefore[i] {
			want := (1-tau)*targetCriticBefore[i][j] +
				tau*criticAfter[i][j]
			if math.Abs(targetCriticAfter[i][j]-want) > 1e-8 {
				t.Fatalf("target critic learnable %v element %v: got %v, "+
					"want %v", i, j, targetCriticAfter[i][j], want)
			}
		}
	}
}

func TestStepSyncsBehaviourActor(t *testing.T) {
	agent, env := newTestAgent(t, 16, 4)
	defer agent.Close()

	fillReplay(t, agent, env)
	if err := agent.Step(); err != nil {
		t.Fatal(err)
	}

	live := weightsOf(agent.trainActor.Learnables())
	behaviour := weightsOf(agent.behaviourActor.Learnables())
	for i := range live {
		for j := range live[i] {
			if live[i][j] != behaviour[i][j] {
				t.Fatal("behaviour actor out of sync with the live " +
					"actor after a learning step")
			}
		}
	}
}
