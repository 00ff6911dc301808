package main

import (
	"fmt"
	"log"
	"time"

	"github.com/samuelfneumann/goddpg/agent/nonlinear/continuous/ddpg"
	"github.com/samuelfneumann/goddpg/environment/gym"
	"github.com/samuelfneumann/goddpg/experiment"
	"github.com/samuelfneumann/goddpg/experiment/tracker"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/solver"
)

func main() {
	var seed uint64 = 1

	// Create the environment
	env, _, err := gym.New("Pendulum-v0", 0.9, seed)
	if err != nil {
		log.Fatalf("could not create environment: %v", err)
	}
	defer env.Close()

	// Create the agent
	actorSolver, err := solver.NewDefaultAdam(0.001, 32)
	if err != nil {
		log.Fatalf("could not create actor solver: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(0.002, 32)
	if err != nil {
		log.Fatalf("could not create critic solver: %v", err)
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		log.Fatalf("could not create weight initializer: %v", err)
	}

	config := ddpg.Config{
		ActorLayers:  []int{30},
		ActorBiases:  []bool{true},
		CriticHidden: 30,

		ActorSolver:  actorSolver,
		CriticSolver: criticSolver,
		InitWFn:      init,

		Tau:            0.01,
		ReplayCapacity: 10_000,
		ReplayBatch:    32,
	}
	agent, err := ddpg.New(env, config, int64(seed))
	if err != nil {
		log.Fatalf("could not create agent: %v", err)
	}
	defer agent.Close()

	// Create and run the experiment, tracking the return seen on each
	// episode
	noise := experiment.NewGaussianNoise(3.0, 0.9995, seed)
	returns := tracker.NewReturn("./data.bin")
	exp := experiment.NewOnline(env, agent, 200, 200, noise, 0.1, returns)

	start := time.Now()
	if err := exp.Run(); err != nil {
		log.Fatalf("experiment failed: %v", err)
	}
	exp.Save()

	fmt.Println("Running time:", time.Since(start))
}
