package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// CriticMLP implements an action-value network Q(s, a) for continuous
// actions. States and actions enter through parallel linear
// projections that are summed with a bias and rectified:
//
//	h = relu(s·Wₛ + a·Wₐ + b)
//
// followed by a final linear layer producing one scalar value estimate
// per batch row.
type CriticMLP struct {
	g           *G.ExprGraph
	stateInput  *G.Node
	actionInput *G.Node

	stateWeights  *G.Node // features x hidden
	actionWeights *G.Node // actions x hidden
	hiddenBias    *G.Node // 1 x hidden
	outWeights    *G.Node // hidden x 1
	outBias       *G.Node // 1 x 1

	numHidden  int
	numInputs  int
	numActions int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewCriticMLP returns a new CriticMLP on the graph g with its own
// state and action input nodes of batch rows each. The prefix
// parameter namespaces the network's nodes so that other networks can
// share the graph g.
func NewCriticMLP(features, actions, batch, hidden int, g *G.ExprGraph,
	init G.InitWFn, prefix string) (*CriticMLP, error) {
	stateInput := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(prefix+"State"),
		G.WithInit(G.Zeroes()),
	)
	actionInput := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, actions),
		G.WithName(prefix+"Action"),
		G.WithInit(G.Zeroes()),
	)

	return NewCriticMLPFromInputs(stateInput, actionInput, hidden, init,
		prefix)
}

// NewCriticMLPFromInputs returns a new CriticMLP whose state and
// action inputs are existing nodes of the same graph. Wiring the
// action input to another network's prediction node composes the two
// networks, e.g. Q(s, π(s)).
func NewCriticMLPFromInputs(state, action *G.Node, hidden int,
	init G.InitWFn, prefix string) (*CriticMLP, error) {
	if state.Graph() != action.Graph() {
		return nil, fmt.Errorf("newcriticmlpfrominputs: state and action " +
			"inputs must share a graph")
	}
	if !state.IsMatrix() || !action.IsMatrix() {
		return nil, fmt.Errorf("newcriticmlpfrominputs: state and action " +
			"inputs must be matrices")
	}
	if state.Shape()[0] != action.Shape()[0] {
		return nil, fmt.Errorf("newcriticmlpfrominputs: state and action "+
			"inputs must share a batch size \n\twant(%v) \n\thave(%v)",
			state.Shape()[0], action.Shape()[0])
	}
	if hidden < 1 {
		return nil, fmt.Errorf("newcriticmlpfrominputs: hidden layer must "+
			"have at least 1 unit \n\thave(%v)", hidden)
	}

	g := state.Graph()
	batch := state.Shape()[0]
	features := state.Shape()[1]
	actions := action.Shape()[1]

	critic := &CriticMLP{
		g:           g,
		stateInput:  state,
		actionInput: action,

		stateWeights: G.NewMatrix(g, tensor.Float64,
			G.WithShape(features, hidden), G.WithInit(init),
			G.WithName(prefix+"StateW")),
		actionWeights: G.NewMatrix(g, tensor.Float64,
			G.WithShape(actions, hidden), G.WithInit(init),
			G.WithName(prefix+"ActionW")),
		hiddenBias: G.NewMatrix(g, tensor.Float64,
			G.WithShape(1, hidden), G.WithInit(init),
			G.WithName(prefix+"HiddenB")),
		outWeights: G.NewMatrix(g, tensor.Float64,
			G.WithShape(hidden, 1), G.WithInit(init),
			G.WithName(prefix+"OutW")),
		outBias: G.NewMatrix(g, tensor.Float64,
			G.WithShape(1, 1), G.WithInit(init),
			G.WithName(prefix+"OutB")),

		numHidden:  hidden,
		numInputs:  features,
		numActions: actions,
		batchSize:  batch,
	}
	if err := critic.fwd(); err != nil {
		return nil, fmt.Errorf("newcriticmlpfrominputs: could not compute "+
			"forward pass: %v", err)
	}

	return critic, nil
}

// fwd performs the forward pass of the CriticMLP on its input nodes
func (c *CriticMLP) fwd() error {
	stateProj, err := G.Mul(c.stateInput, c.stateWeights)
	if err != nil {
		return fmt.Errorf("fwd: could not project states: %v", err)
	}
	actionProj, err := G.Mul(c.actionInput, c.actionWeights)
	if err != nil {
		return fmt.Errorf("fwd: could not project actions: %v", err)
	}

	hidden, err := G.Add(stateProj, actionProj)
	if err != nil {
		return fmt.Errorf("fwd: could not sum projections: %v", err)
	}
	hidden = G.Must(G.BroadcastAdd(hidden, c.hiddenBias, nil, []byte{0}))
	hidden = G.Must(G.Rectify(hidden))

	q := G.Must(G.Mul(hidden, c.outWeights))
	q = G.Must(G.BroadcastAdd(q, c.outBias, nil, []byte{0}))

	c.prediction = q
	G.Read(c.prediction, &c.predVal)
	return nil
}

// CloneWithInputsTo clones the CriticMLP, with its current weight
// values, onto the graph of the state and action nodes, wiring those
// nodes as the clone's inputs
func (c *CriticMLP) CloneWithInputsTo(state,
	action *G.Node) (*CriticMLP, error) {
	if state.Graph() != action.Graph() {
		return nil, fmt.Errorf("clonewithinputsto: state and action " +
			"inputs must share a graph")
	}

	g := state.Graph()
	clone := &CriticMLP{
		g:           g,
		stateInput:  state,
		actionInput: action,

		stateWeights:  c.stateWeights.CloneTo(g),
		actionWeights: c.actionWeights.CloneTo(g),
		hiddenBias:    c.hiddenBias.CloneTo(g),
		outWeights:    c.outWeights.CloneTo(g),
		outBias:       c.outBias.CloneTo(g),

		numHidden:  c.numHidden,
		numInputs:  c.numInputs,
		numActions: c.numActions,
		batchSize:  state.Shape()[0],
	}
	if err := clone.fwd(); err != nil {
		return nil, fmt.Errorf("clonewithinputsto: could not clone: %v", err)
	}

	return clone, nil
}

// CloneWithBatchTo clones the CriticMLP, with its current weight
// values, to the graph g with fresh input nodes of a new batch size
func (c *CriticMLP) CloneWithBatchTo(batchSize int,
	g *G.ExprGraph) (*CriticMLP, error) {
	stateInput := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batchSize, c.numInputs),
		G.WithName(c.stateInput.Name()),
		G.WithInit(G.Zeroes()),
	)
	actionInput := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batchSize, c.numActions),
		G.WithName(c.actionInput.Name()),
		G.WithInit(G.Zeroes()),
	)

	return c.CloneWithInputsTo(stateInput, actionInput)
}

// SetState sets the value of the state input node before running the
// forward pass. The input should hold BatchSize() observation vectors
// in row-major order.
func (c *CriticMLP) SetState(state []float64) error {
	if len(state) != c.numInputs*c.batchSize {
		return fmt.Errorf("setstate: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", c.numInputs*c.batchSize, len(state))
	}
	stateTensor := tensor.New(
		tensor.WithBacking(state),
		tensor.WithShape(c.batchSize, c.numInputs),
	)
	return G.Let(c.stateInput, stateTensor)
}

// SetAction sets the value of the action input node before running the
// forward pass. The input should hold BatchSize() action vectors in
// row-major order.
func (c *CriticMLP) SetAction(action []float64) error {
	if len(action) != c.numActions*c.batchSize {
		return fmt.Errorf("setaction: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", c.numActions*c.batchSize, len(action))
	}
	actionTensor := tensor.New(
		tensor.WithBacking(action),
		tensor.WithShape(c.batchSize, c.numActions),
	)
	return G.Let(c.actionInput, actionTensor)
}

// Graph returns the computational graph of the CriticMLP
func (c *CriticMLP) Graph() *G.ExprGraph {
	return c.g
}

// BatchSize returns the batch size of inputs to the network
func (c *CriticMLP) BatchSize() int {
	return c.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input
func (c *CriticMLP) Features() int {
	return c.numInputs
}

// Actions returns the action dimensionality of the network's action
// input
func (c *CriticMLP) Actions() int {
	return c.numActions
}

// Learnables returns the learnable nodes of the CriticMLP
func (c *CriticMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if c.learnables == nil {
		c.learnables = G.Nodes{c.stateWeights, c.actionWeights,
			c.hiddenBias, c.outWeights, c.outBias}
	}
	return c.learnables
}

// Model returns the learnable nodes with their gradients
func (c *CriticMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if c.model == nil {
		model := make([]G.ValueGrad, 0, len(c.Learnables()))
		for _, node := range c.Learnables() {
			model = append(model, node)
		}
		c.model = model
	}
	return c.model
}

// Output returns the value estimates of the CriticMLP after its graph
// has run, one per batch row
func (c *CriticMLP) Output() G.Value {
	return c.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the CriticMLP
func (c *CriticMLP) Prediction() *G.Node {
	return c.prediction
}
