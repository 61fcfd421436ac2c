package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/qcartpole/environment"
	ts "github.com/samuelfneumann/qcartpole/timestep"
)

const (
	FailAngle         float64 = 12 * 2 * math.Pi / 360
	PositionThreshold float64 = 2.4
	EpisodeCutoff     int     = 500
)

// Balance implements the classic control Cartpole Balance task. In this
// Task, the goal of the agent is to balance the pole on the cart in
// an upright position for as long as possible.
//
// The reward is +1 for every timestep, including the last.
//
// Episodes are terminated when the pole falls further than FailAngle
// from upright or the cart leaves [-PositionThreshold,
// PositionThreshold]. Episodes are truncated after a step limit.
type Balance struct {
	env.Starter
	stepLimiter  *env.StepLimit
	stateLimiter *env.IntervalLimit
	failAngle    float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	stepLimiter := env.NewStepLimit(episodeSteps)

	// Create the Enders
	legal := []r1.Interval{
		{Min: -PositionThreshold, Max: PositionThreshold},
		{Min: -failAngle, Max: failAngle},
	}
	featureIndices := []int{0, 2}
	stateLimiter := env.NewIntervalLimit(legal, featureIndices,
		ts.TerminalStateReached)

	return &Balance{s, stepLimiter, stateLimiter, failAngle}
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true. Otherwise,
// the function does not adjust the TimeStep and returns false.
// Termination takes precedence over truncation.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.stateLimiter.End(t); end {
		return true
	}
	if end := b.stepLimiter.End(t); end {
		return true
	}
	return false
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_ *mat.VecDense, _ int, _ *mat.VecDense) float64 {
	return 1.0
}
