package qlearning

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/timestep"
	"github.com/samuelfneumann/qcartpole/utils/matutils/bucketizer"
)

// QLearner implements the update functionality for the tabular
// Q-Learning algorithm.
type QLearner struct {
	weights      *mat.Dense
	bucketizer   *bucketizer.Bucketizer
	step         timestep.TimeStep
	action       int
	nextStep     timestep.TimeStep
	learningRate float64
	discount     float64
}

// NewQLearner creates a new QLearner struct
//
// weights are the action values of the policy to learn, with one row
// per grid cell of b and one column per action
func NewQLearner(weights *mat.Dense, b *bucketizer.Bucketizer,
	learningRate, discount float64) (*QLearner, error) {
	r, _ := weights.Dims()
	if r != b.Len() {
		return nil, fmt.Errorf("newQLearner: table has %v rows but "+
			"bucketizer has %v cells", r, b.Len())
	}

	return &QLearner{
		weights:      weights,
		bucketizer:   b,
		learningRate: learningRate,
		discount:     discount,
	}, nil
}

// ObserveFirst observes and records the first episodic timestep
func (q *QLearner) ObserveFirst(t timestep.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: should only be called on the "+
			"first timestep (current timestep = %d)", t.Number)
	}
	q.step = timestep.TimeStep{}
	q.nextStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep
func (q *QLearner) Observe(action int, nextStep timestep.TimeStep) error {
	if _, c := q.weights.Dims(); action < 0 || action >= c {
		return fmt.Errorf("observe: illegal action %v", action)
	}
	q.step = q.nextStep
	q.action = action
	q.nextStep = nextStep
	return nil
}

// Step updates the action value of the most recently observed
// state-action pair
//
// The target bootstraps from the maximal action value of the next
// state, unless the next state ended the episode, in which case the
// target is the reward alone. Episodes cut off by a step limit are
// treated the same as episodes reaching a terminal state.
func (q *QLearner) Step() error {
	if q.step.Observation == nil || q.nextStep.Observation == nil {
		return fmt.Errorf("step: no transition observed")
	}

	target := q.nextStep.Reward
	if !q.nextStep.Last() {
		next := q.bucketizer.Encode(q.nextStep.Observation)
		target += q.discount * floats.Max(q.weights.RawRowView(next))
	}

	row := q.weights.RawRowView(q.bucketizer.Encode(q.step.Observation))
	row[q.action] += q.learningRate * (target - row[q.action])
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (q *QLearner) EndEpisode() {}

// Weights gets and returns the weights of the learner
func (q *QLearner) Weights() *mat.Dense {
	return q.weights
}
