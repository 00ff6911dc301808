package agent

import (
	env "github.com/samuelfneumann/goddpg/environment"
)

// Config represents a configuration of an agent. Configs are intended
// to be JSON serializable so that experiments can be described in
// configuration files.
type Config interface {
	// CreateAgent creates the agent that the Config describes on a
	// given environment
	CreateAgent(e env.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent is valid for the
	// Config. That is, whether the agent could have been constructed
	// with the Config.
	ValidAgent(Agent) bool

	// Validate returns an error describing why the Config is invalid,
	// or nil if it is valid
	Validate() error
}
