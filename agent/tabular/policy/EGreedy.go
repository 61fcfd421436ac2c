package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/timestep"
	"github.com/samuelfneumann/qcartpole/utils/matutils/bucketizer"
)

// Schedule describes how exploration changes over the episodes of
// training.
//
// For episodes before WarmupEpisodes, actions are selected uniformly
// at random. For episodes after DecayAfter, epsilon is multiplied by
// DecayRate on every call to select an action.
type Schedule struct {
	WarmupEpisodes int
	DecayAfter     int
	DecayRate      float64
}

// Validate returns an error if the schedule is invalid
func (s Schedule) Validate() error {
	if s.WarmupEpisodes < 0 {
		return fmt.Errorf("warmup episodes cannot be negative")
	}
	if s.DecayAfter < 0 {
		return fmt.Errorf("decay threshold cannot be negative")
	}
	if s.DecayRate <= 0 || s.DecayRate > 1 {
		return fmt.Errorf("decay rate must be in (0, 1], have %v",
			s.DecayRate)
	}
	return nil
}

// EGreedy implements an ε-greedy policy over a table of action values
// with an annealed ε.
//
// Epsilon decay is tied to the number of calls to select an action,
// not to the number of episodes. Once decayed, ε is never reset.
type EGreedy struct {
	*Greedy
	epsilon  float64
	schedule Schedule
	actions  int
	episode  int
}

// NewEGreedy constructs a new EGreedy policy, where e=epsilon is the
// initial probability with which a random action is selected once the
// warmup episodes have passed
func NewEGreedy(e float64, schedule Schedule, weights *mat.Dense,
	b *bucketizer.Bucketizer, src rand.Source) (*EGreedy, error) {
	if e < 0 || e > 1 {
		return nil, fmt.Errorf("newEGreedy: epsilon must be in [0, 1], "+
			"have %v", e)
	}
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("newEGreedy: %w", err)
	}

	greedy, err := NewGreedy(weights, b, src)
	if err != nil {
		return nil, fmt.Errorf("newEGreedy: %w", err)
	}
	_, actions := weights.Dims()

	return &EGreedy{
		Greedy:   greedy,
		epsilon:  e,
		schedule: schedule,
		actions:  actions,
	}, nil
}

// SelectAction selects an action in the episode most recently set
// with SetEpisode
func (e *EGreedy) SelectAction(t timestep.TimeStep) int {
	return e.SelectActionAt(t, e.episode)
}

// SelectActionAt selects an action for t in the argument episode
func (e *EGreedy) SelectActionAt(t timestep.TimeStep, episode int) int {
	if episode < e.schedule.WarmupEpisodes {
		return e.rng.Intn(e.actions)
	}

	// The exploration number is drawn before decaying
	u := e.rng.Float64()
	if episode > e.schedule.DecayAfter {
		e.epsilon *= e.schedule.DecayRate
	}

	if u < e.epsilon {
		return e.rng.Intn(e.actions)
	}
	return e.Greedy.SelectAction(t)
}

// SetEpisode sets the episode used by SelectAction
func (e *EGreedy) SetEpisode(episode int) {
	e.episode = episode
}

// Epsilon returns the current exploration rate
func (e *EGreedy) Epsilon() float64 {
	return e.epsilon
}
