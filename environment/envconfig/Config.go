// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/environment/classiccontrol/cartpole"
	ts "github.com/samuelfneumann/qcartpole/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole EnvName = "Cartpole"
)

// TaskName stores the tasks that can be configured with this package.
// The tasks that can be used with each environment are as follows:
//
//	Environment			Task
//	Cartpole			Balance
type TaskName string

// Tasks available for configuration
const (
	Balance TaskName = "Balance"
)

// Config implements a specific configuration of a specific environment
// and specific task. Each call to Create returns a new, independent
// environment instance.
type Config struct {
	Environment   EnvName
	Task          TaskName
	EpisodeCutoff int

	// StartBound bounds (+/-) every feature of the starting state
	StartBound float64
}

// Default returns the configuration of the CartPole-v1 balancing task
func Default() Config {
	return Config{
		Environment:   Cartpole,
		Task:          Balance,
		EpisodeCutoff: cartpole.EpisodeCutoff,
		StartBound:    0.05,
	}
}

// Validate returns an error describing whether or not the configuration
// is valid
func (c Config) Validate() error {
	if c.Environment != Cartpole {
		return fmt.Errorf("validate: no such environment %v", c.Environment)
	}
	if c.Task != Balance {
		return fmt.Errorf("validate: %v environment has no task %v",
			c.Environment, c.Task)
	}
	if c.EpisodeCutoff < 1 {
		return fmt.Errorf("validate: episode cutoff must be positive")
	}
	if c.StartBound < 0 {
		return fmt.Errorf("validate: start bound cannot be negative")
	}
	return nil
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	return CreateCartpole(c.Task, c.EpisodeCutoff, c.StartBound, seed)
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and default task parameters.
func CreateCartpole(taskName TaskName, cutoff int, startBound float64,
	seed uint64) (env.Environment, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -startBound, Max: startBound}
	s := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)

	var task env.Task
	switch taskName {
	case Balance:
		task = cartpole.NewBalance(s, cutoff, cartpole.FailAngle)

	default:
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: Cartpole "+
			"environment has no task %v", taskName)
	}

	c, step, err := cartpole.New(task)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: %w", err)
	}
	return c, step, nil
}
