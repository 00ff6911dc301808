// Package network implements gorgonia-backed neural network function
// approximators and utilities for copying and soft-updating their
// weights
package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is implemented by all neural networks in this package.
// Networks hold their parameters as learnable nodes of a gorgonia
// computational graph. Many networks may share a single graph, in
// which case running the graph's VM runs them all.
type NeuralNet interface {
	// Graph returns the computational graph the network is built on
	Graph() *G.ExprGraph

	// BatchSize returns the number of rows of a single input batch
	BatchSize() int

	// Learnables returns the learnable nodes of the network. The
	// ordering is fixed for a given architecture, so that the
	// learnables of two networks with the same architecture
	// correspond pairwise.
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Output returns the value of the network's prediction after its
	// graph has been run
	Output() G.Value

	// Prediction returns the node of the computational graph that
	// stores the network's prediction
	Prediction() *G.Node
}

// Set sets the weights of dest to be equal to the weights of source.
// The two networks must share an architecture.
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of dest to a Polyak average between its
// existing weights and the weights of source:
//
//	θ_dest ← (1 - tau)*θ_dest + tau*θ_source
//
// for every parameter θ. The two networks must share an architecture.
func Polyak(dest, source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		err = G.Let(nodes[i], newWeights)
		if err != nil {
			return err
		}
	}
	return nil
}
