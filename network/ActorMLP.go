package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ActorMLP implements a deterministic policy network for continuous
// actions. The network is a multi-layered perceptron mapping a batch
// of states to a batch of actions. The output layer uses a tanh
// activation scaled elementwise by the environment's action bound, so
// that for any input, |output| ≤ actionBound elementwise.
type ActorMLP struct {
	g      *G.ExprGraph
	layers []Layer
	input  *G.Node
	bound  *G.Node // Constant (1 x actions) action scale

	numOutputs int
	numInputs  int
	batchSize  int

	hiddenSizes []int
	biases      []bool
	activations []*Activation
	actionBound []float64

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewActorMLP returns a new ActorMLP on the graph g. The MLP has
// len(hiddenSizes) hidden layers followed by a final layer of actions
// units with a tanh activation, scaled elementwise by actionBound.
// The prefix parameter namespaces the network's nodes so that other
// networks can share the graph g.
func NewActorMLP(features, batch, actions int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, actionBound []float64,
	prefix string) (*ActorMLP, error) {
	// Ensure one activation and one bias flag per hidden layer
	if len(hiddenSizes) != len(activations) {
		msg := "newactormlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newactormlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if len(actionBound) != actions {
		msg := "newactormlp: invalid action bound length\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, actions, len(actionBound))
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(prefix+"State"),
		G.WithInit(G.Zeroes()),
	)

	// The final layer predicts the action and squashes it with tanh
	// before scaling
	sizes := append(append([]int{}, hiddenSizes...), actions)
	withBiases := append(append([]bool{}, biases...), true)
	withActivations := append(append([]*Activation{}, activations...),
		TanH())

	layers := addfcLayers(g, sizes, withBiases, withActivations, init,
		features, prefix)

	actor := &ActorMLP{
		g:           g,
		layers:      layers,
		input:       input,
		bound:       boundNode(g, actionBound, prefix),
		numOutputs:  actions,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: sizes,
		biases:      withBiases,
		activations: withActivations,
		actionBound: actionBound,
	}
	if err := actor.fwd(input); err != nil {
		return nil, fmt.Errorf("newactormlp: could not compute forward "+
			"pass: %v", err)
	}

	return actor, nil
}

// boundNode returns a constant node holding the action bound, shaped
// for broadcasting over the batch dimension
func boundNode(g *G.ExprGraph, actionBound []float64,
	prefix string) *G.Node {
	backing := make([]float64, len(actionBound))
	copy(backing, actionBound)
	boundTensor := tensor.New(
		tensor.WithShape(1, len(actionBound)),
		tensor.WithBacking(backing),
	)
	return G.NewConstant(boundTensor, G.WithName(prefix+"ActionBound"),
		G.In(g))
}

// fwd performs the forward pass of the ActorMLP on the input node
func (a *ActorMLP) fwd(input *G.Node) error {
	pred := input
	var err error
	for i, l := range a.layers {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	// Scale the squashed output elementwise by the action bound
	pred, err = G.BroadcastHadamardProd(pred, a.bound, nil, []byte{0})
	if err != nil {
		return fmt.Errorf("fwd: could not scale output by action "+
			"bound: %v", err)
	}

	a.prediction = pred
	G.Read(a.prediction, &a.predVal)
	return nil
}

// CloneWithBatchTo clones the ActorMLP, with its current weight
// values, to the graph g with a new input batch size. The cloned
// network shares no state with the original.
func (a *ActorMLP) CloneWithBatchTo(batchSize int,
	g *G.ExprGraph) (*ActorMLP, error) {
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batchSize, a.numInputs),
		G.WithName(a.input.Name()),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]Layer, len(a.layers))
	for i := range a.layers {
		layers[i] = a.layers[i].CloneTo(g)
	}

	prefix := "" // Node names travel with the cloned weights
	clone := &ActorMLP{
		g:           g,
		layers:      layers,
		input:       input,
		bound:       boundNode(g, a.actionBound, prefix+a.input.Name()),
		numOutputs:  a.numOutputs,
		numInputs:   a.numInputs,
		batchSize:   batchSize,
		hiddenSizes: a.hiddenSizes,
		biases:      a.biases,
		activations: a.activations,
		actionBound: a.actionBound,
	}
	if err := clone.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatchto: could not clone: %v", err)
	}

	return clone, nil
}

// CloneWithBatch clones the ActorMLP to a fresh graph with a new input
// batch size
func (a *ActorMLP) CloneWithBatch(batchSize int) (*ActorMLP, error) {
	return a.CloneWithBatchTo(batchSize, G.NewGraph())
}

// SetInput sets the value of the input node before running the forward
// pass. The input should hold BatchSize() observation vectors in
// row-major order.
func (a *ActorMLP) SetInput(input []float64) error {
	if len(input) != a.numInputs*a.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", a.numInputs*a.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(a.batchSize, a.numInputs),
	)
	return G.Let(a.input, inputTensor)
}

// Input returns the state input node of the ActorMLP, so that other
// networks sharing the graph can be wired to the same states
func (a *ActorMLP) Input() *G.Node {
	return a.input
}

// Graph returns the computational graph of the ActorMLP
func (a *ActorMLP) Graph() *G.ExprGraph {
	return a.g
}

// BatchSize returns the batch size of inputs to the network
func (a *ActorMLP) BatchSize() int {
	return a.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input
func (a *ActorMLP) Features() int {
	return a.numInputs
}

// Outputs returns the action dimensionality of the network
func (a *ActorMLP) Outputs() int {
	return a.numOutputs
}

// Learnables returns the learnable nodes of the ActorMLP
func (a *ActorMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if a.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(a.layers))
		for i := range a.layers {
			learnables = append(learnables, a.layers[i].Weights())
			if bias := a.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		a.learnables = G.Nodes(learnables)
	}
	return a.learnables
}

// Model returns the learnable nodes with their gradients
func (a *ActorMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if a.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(a.layers))
		for _, node := range a.Learnables() {
			model = append(model, node)
		}
		a.model = model
	}
	return a.model
}

// Output returns the output of the ActorMLP after its graph has run
func (a *ActorMLP) Output() G.Value {
	return a.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the ActorMLP
func (a *ActorMLP) Prediction() *G.Node {
	return a.prediction
}
