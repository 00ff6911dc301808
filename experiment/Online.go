package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goddpg/agent"
	env "github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/experiment/tracker"
	ts "github.com/samuelfneumann/goddpg/timestep"
)

// Online is an Experiment that runs an agent online for a fixed number
// of episodes of bounded length. On every environment step the agent's
// chosen action is perturbed with exploration noise, clipped to the
// actuator bounds, and submitted to the environment; the resulting
// transition is observed by the agent with its reward scaled by a
// fixed normalization constant, and one learning step is invoked. The
// agent itself decides whether a learning step does anything (e.g.
// replay warm-up), and the exploration noise is annealed once per
// learning step after the agent reports that learning has begun.
//
// Per-episode returns (of unscaled rewards) are reported on standard
// output together with the current exploration scale, and are also
// sent to any registered trackers.
type Online struct {
	environment env.Environment
	agent       agent.Agent

	episodes        int
	maxEpisodeSteps int

	noise       *GaussianNoise
	rewardScale float64

	actionLowerBound mat.Vector
	actionUpperBound mat.Vector

	trackers []tracker.Tracker
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The experiment runs episodes many
// episodes of at most maxEpisodeSteps steps each. The noise parameter
// determines the exploration noise added to actions (nil for none),
// and rewardScale the constant by which rewards are multiplied before
// the agent observes them. The t parameter is a slice of
// tracker.Tracker which determine what data is saved.
func NewOnline(e env.Environment, a agent.Agent, episodes,
	maxEpisodeSteps int, noise *GaussianNoise, rewardScale float64,
	t ...tracker.Tracker) *Online {
	actionSpec := e.ActionSpec()

	return &Online{
		environment:      e,
		agent:            a,
		episodes:         episodes,
		maxEpisodeSteps:  maxEpisodeSteps,
		noise:            noise,
		rewardScale:      rewardScale,
		actionLowerBound: actionSpec.LowerBound,
		actionUpperBound: actionSpec.UpperBound,
		trackers:         t,
	}
}

// Register registers a tracker.Tracker with the Experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment
func (o *Online) RunEpisode(episode int) error {
	step, err := o.environment.Reset()
	if err != nil {
		return fmt.Errorf("runepisode: could not reset environment: %v",
			err)
	}
	if err := o.agent.ObserveFirst(step); err != nil {
		return fmt.Errorf("runepisode: could not observe first "+
			"timestep: %v", err)
	}
	o.track(step)

	episodeReturn := 0.0

	for i := 0; i < o.maxEpisodeSteps; i++ {
		// Select an action, perturb it for exploration, and clip it
		// to the actuator bounds
		action := o.agent.SelectAction(step)
		if o.noise != nil {
			action = o.noise.Perturb(action, o.actionLowerBound,
				o.actionUpperBound)
		}

		step, _, err = o.environment.Step(action)
		if err != nil {
			return fmt.Errorf("runepisode: could not step "+
				"environment: %v", err)
		}
		episodeReturn += step.Reward

		// The episode step limit acts as an episode cutoff
		if i == o.maxEpisodeSteps-1 {
			step.StepType = ts.Last
		}
		o.track(step)

		// The agent observes the scaled reward
		scaledStep := step
		scaledStep.Reward *= o.rewardScale
		if err := o.agent.Observe(action, scaledStep); err != nil {
			return fmt.Errorf("runepisode: could not observe "+
				"timestep: %v", err)
		}

		// Anneal exploration once per learning step, only after the
		// agent's warm-up has ended
		if w, ok := o.agent.(agent.Warmer); ok && w.Learning() &&
			o.noise != nil {
			o.noise.Anneal()
		}
		if err := o.agent.Step(); err != nil {
			return fmt.Errorf("runepisode: could not step agent: %v", err)
		}

		if step.Last() {
			break
		}
	}
	o.agent.EndEpisode()

	scale := 0.0
	if o.noise != nil {
		scale = o.noise.Scale()
	}
	fmt.Printf("Episode: %v | Reward: %v | Explore: %.2f\n", episode,
		int(math.Round(episodeReturn)), scale)

	return nil
}

// Run runs the entire experiment for all episodes
func (o *Online) Run() error {
	for episode := 0; episode < o.episodes; episode++ {
		if err := o.RunEpisode(episode); err != nil {
			return fmt.Errorf("run: episode %v failed: %v", episode, err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() {
	for _, t := range o.trackers {
		t.Save()
	}
}

// track tracks the current timestep by caching its data in each
// tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}
