package experiment

import (
	"fmt"
	"log"

	"github.com/samuelfneumann/qcartpole/agent"
	env "github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/experiment/trackers"
	ts "github.com/samuelfneumann/qcartpole/timestep"
)

// epsiloner is an agent which explores with some exploration rate
type epsiloner interface {
	Epsilon() float64
}

// Online is an Experiment that runs an agent online for a fixed
// number of episodes, updating the agent after every environmental
// step.
type Online struct {
	env.Environment
	agent.Agent
	episodes       int
	currentEpisode int
	trackers       []trackers.Tracker

	logger   *log.Logger
	logEvery int
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The episodes parameter determines
// how many episodes the experiment is run for, and the t parameter
// is a slice of trackers.Tracker which determine what data is saved.
func NewOnline(e env.Environment, a agent.Agent, episodes int,
	t ...trackers.Tracker) *Online {
	return &Online{
		Environment: e,
		Agent:       a,
		episodes:    episodes,
		trackers:    t,
	}
}

// SetLogger sets the logger used to report progress every every
// episodes. A nil logger disables logging.
func (o *Online) SetLogger(logger *log.Logger, every int) {
	o.logger = logger
	o.logEvery = every
}

// Register registers a trackers.Tracker with an Experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment. Any error
// returned by the environment or the agent ends the episode and is
// returned immediately.
func (o *Online) RunEpisode() error {
	step, err := o.Environment.Reset()
	if err != nil {
		return fmt.Errorf("runEpisode: could not reset environment: %w", err)
	}
	if err := o.Agent.ObserveFirst(step); err != nil {
		return fmt.Errorf("runEpisode: %w", err)
	}
	o.track(step)

	episodeReturn := 0.0
	for !step.Last() {
		// Select action, step in environment
		action := o.Agent.SelectAction(step)
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return fmt.Errorf("runEpisode: episode %v: %w", o.currentEpisode,
				err)
		}
		episodeReturn += step.Reward

		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.Agent.Step(); err != nil {
			return fmt.Errorf("runEpisode: %w", err)
		}
	}
	o.Agent.EndEpisode()

	o.report(episodeReturn)
	o.currentEpisode++
	return nil
}

// Run runs the experiment until all episodes have finished
func (o *Online) Run() error {
	for o.currentEpisode < o.episodes {
		if err := o.RunEpisode(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	return nil
}

// Episode returns the number of episodes run so far
func (o *Online) Episode() int {
	return o.currentEpisode
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, tracker := range o.trackers {
		if err := tracker.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each
// tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

func (o *Online) report(episodeReturn float64) {
	if o.logger == nil || o.logEvery < 1 ||
		(o.currentEpisode+1)%o.logEvery != 0 {
		return
	}

	if e, ok := o.Agent.(epsiloner); ok {
		o.logger.Printf("episode %d: return %.1f epsilon %.4f",
			o.currentEpisode, episodeReturn, e.Epsilon())
		return
	}
	o.logger.Printf("episode %d: return %.1f", o.currentEpisode,
		episodeReturn)
}
