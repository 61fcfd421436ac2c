// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/qcartpole/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode ends. If End returns true, the
// argument TimeStep has been adjusted so that it is the last in its
// episode, with the appropriate EndType set.
type Ender interface {
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme and the episode termination rules
// for taking actions in some environment
type Task interface {
	Starter
	Ender
	GetReward(state *mat.VecDense, action int, nextState *mat.VecDense) float64
}

// Environment implements a simulated environment with discrete actions.
//
// Reset begins a new episode and returns its first TimeStep. Step
// applies an action, advancing the simulation by one unit of time, and
// returns the next TimeStep along with whether the episode has ended.
// Any error returned by Reset or Step is the environment's own failure
// and is never retried by callers.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action int) (ts.TimeStep, bool, error)
	ObservationSpec() Spec
	ActionSpec() Spec
	Close() error
}
