// Package qlearning implements the tabular Q-Learning algorithm over a
// discretized observation space.
//
// Observations are mapped onto a grid of buckets and one action value
// is stored per grid cell and action. Actions are selected by an
// ε-greedy behaviour policy with a warmup phase of purely random
// actions and an annealed ε, while evaluation uses the greedy policy.
package qlearning

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/agent"
	"github.com/samuelfneumann/qcartpole/agent/tabular/policy"
	"github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/timestep"
	"github.com/samuelfneumann/qcartpole/utils/matutils/bucketizer"
	"github.com/samuelfneumann/qcartpole/utils/matutils/initializers/weights"
)

// QLearning implements the tabular Q-Learning algorithm
//
// QLearning keeps track of the index of the current training episode,
// which starts at 0 with the first call to ObserveFirst, as well as
// the total reward of each finished training episode.
type QLearning struct {
	*QLearner
	behaviour *policy.EGreedy
	target    *policy.Greedy
	eval      bool

	episode       int
	episodeReturn float64
	returns       []float64
}

// New creates a new QLearning struct. The action value table has one
// row per grid cell of the discretized observation space and one
// column per environmental action, and is initialized with init.
func New(env environment.Environment, config Config,
	init weights.Initializer, seed uint64) (*QLearning, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	actions, err := environment.NumActions(env.ActionSpec())
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	obsSpec := env.ObservationSpec()
	if dims := obsSpec.Shape.Len(); dims != len(config.Bins) {
		return nil, fmt.Errorf("new: observations have %v dimensions but "+
			"%v bin counts were given", dims, len(config.Bins))
	}

	lower, upper, err := bounds(config, obsSpec)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	b, err := bucketizer.New(lower, upper, config.Bins)
	if err != nil {
		return nil, fmt.Errorf("new: could not create bucketizer: %w", err)
	}

	table := mat.NewDense(b.Len(), actions, nil)
	if init != nil {
		init.Initialize(table)
	}

	// Behaviour and target policies share the table and a single
	// random source
	src := rand.NewSource(seed)
	behaviour, err := policy.NewEGreedy(config.Epsilon, config.Schedule(),
		table, b, src)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	target, err := policy.NewGreedy(table, b, src)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	learner, err := NewQLearner(table, b, config.LearningRate,
		config.Discount)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &QLearning{
		QLearner:  learner,
		behaviour: behaviour,
		target:    target,
		episode:   -1,
	}, nil
}

// bounds returns the lower and upper bounds of the discretized
// observation space
func bounds(config Config, obsSpec environment.Spec) (lower,
	upper mat.Vector, err error) {
	if len(config.LowerBounds) != 0 {
		n := len(config.LowerBounds)
		return mat.NewVecDense(n, config.LowerBounds),
			mat.NewVecDense(n, config.UpperBounds), nil
	}

	// Fall back to the observation specification, which must describe a
	// finite box
	for d := 0; d < obsSpec.LowerBound.Len(); d++ {
		width := obsSpec.UpperBound.AtVec(d) - obsSpec.LowerBound.AtVec(d)
		if math.IsInf(width, 0) || math.IsNaN(width) {
			return nil, nil, fmt.Errorf("observation dimension %v is "+
				"unbounded, bounds must be given explicitly", d)
		}
	}
	return obsSpec.LowerBound, obsSpec.UpperBound, nil
}

// ObserveFirst observes and records the first timestep of an episode.
// In training mode, this starts a new training episode.
func (q *QLearning) ObserveFirst(t timestep.TimeStep) error {
	if err := q.QLearner.ObserveFirst(t); err != nil {
		return err
	}
	if !q.eval {
		q.episode++
		q.behaviour.SetEpisode(q.episode)
	}
	q.episodeReturn = 0
	return nil
}

// Observe observes and records any timestep other than the first
func (q *QLearning) Observe(action int, nextStep timestep.TimeStep) error {
	if err := q.QLearner.Observe(action, nextStep); err != nil {
		return err
	}
	q.episodeReturn += nextStep.Reward
	return nil
}

// EndEpisode records the return of a finished training episode
func (q *QLearning) EndEpisode() {
	q.QLearner.EndEpisode()
	if !q.eval {
		q.returns = append(q.returns, q.episodeReturn)
	}
}

// SelectAction selects an action using the behaviour policy in
// training mode and the greedy policy in evaluation mode
func (q *QLearning) SelectAction(t timestep.TimeStep) int {
	if q.eval {
		return q.target.SelectAction(t)
	}
	return q.behaviour.SelectActionAt(t, q.episode)
}

// Eval sets the agent into evaluation mode
func (q *QLearning) Eval() {
	q.eval = true
}

// Train sets the agent into training mode
func (q *QLearning) Train() {
	q.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (q *QLearning) IsEval() bool {
	return q.eval
}

// Greedy returns the greedy policy with respect to the agent's action
// values
func (q *QLearning) Greedy() agent.Policy {
	return q.target
}

// Episode returns the index of the current training episode, or -1
// if training has not started
func (q *QLearning) Episode() int {
	return q.episode
}

// Epsilon returns the current exploration rate of the behaviour policy
func (q *QLearning) Epsilon() float64 {
	return q.behaviour.Epsilon()
}

// EpisodeRewards returns the total reward of each finished training
// episode, in order
func (q *QLearning) EpisodeRewards() []float64 {
	returns := make([]float64, len(q.returns))
	copy(returns, q.returns)
	return returns
}

// Bucketizer returns the discretization of the observation space
func (q *QLearning) Bucketizer() *bucketizer.Bucketizer {
	return q.bucketizer
}
