// Package experiment implements functionality for running an
// experiment
package experiment

import (
	"github.com/samuelfneumann/goddpg/experiment/tracker"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments drive the agent-environment interaction, caching
// experiment data in trackers as they go. The Run() method runs all
// episodes of the experiment, and RunEpisode() runs a single episode.
// After an experiment has been run, Save() takes all tracked data and
// saves it to disk.
//
// In order to save data, Experiments use Trackers. Trackers determine
// which data generated during the experiment is saved. Experiments
// send each TimeStep to Trackers using the Tracker's Track() method.
// New Trackers can be registered with an Experiment through the
// constructor or through an Experiment's Register() function.
type Experiment interface {
	Run() error
	RunEpisode(i int) error

	// Save all tracked data to disk
	Save()

	// Register adds a new tracker.Tracker to the experiment
	Register(t tracker.Tracker)
}
