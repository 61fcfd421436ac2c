package qlearning

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/qcartpole/agent"
	"github.com/samuelfneumann/qcartpole/agent/tabular/policy"
	"github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/utils/matutils/initializers/weights"
)

// Config represents a configuration for the QLearning agent
type Config struct {
	LearningRate float64 `json:"learning_rate"`
	Discount     float64 `json:"discount"`
	Epsilon      float64 `json:"epsilon"` // epsilon for behaviour policy
	Episodes     int     `json:"episodes"`

	// Discretization of the observation space. If LowerBounds and
	// UpperBounds are both empty, the bounds of the environment's
	// observation specification are used.
	Bins        []int     `json:"bins"`
	LowerBounds []float64 `json:"lower_bounds,omitempty"`
	UpperBounds []float64 `json:"upper_bounds,omitempty"`

	// Exploration schedule
	WarmupEpisodes int     `json:"warmup_episodes"`
	DecayAfter     int     `json:"decay_after"`
	DecayRate      float64 `json:"decay_rate"`
}

// CreateAgent creates the agent from the Config. Action values are
// always initialized independently from U[0, 1) using this function.
// To initialize from some other distribution, use the agent's
// constructor manually.
//
// The table initialization and the agent's policies draw from separate
// random streams, both derived from seed.
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	initSeed, policySeed := splitSeed(seed)
	init := weights.NewUniform(0, 1, initSeed)

	return New(env, c, init, policySeed)
}

// splitSeed derives the seeds of the table initialization and of the
// policies from a single seed
func splitSeed(seed uint64) (initSeed, policySeed uint64) {
	rng := rand.New(rand.NewSource(seed))
	return rng.Uint64(), rng.Uint64()
}

// Schedule returns the exploration schedule described by the Config
func (c Config) Schedule() policy.Schedule {
	return policy.Schedule{
		WarmupEpisodes: c.WarmupEpisodes,
		DecayAfter:     c.DecayAfter,
		DecayRate:      c.DecayRate,
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("validate: learning rate must be in (0, 1], "+
			"have %v", c.LearningRate)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have %v",
			c.Discount)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1], have %v",
			c.Epsilon)
	}
	if c.Episodes < 1 {
		return fmt.Errorf("validate: episodes must be positive, have %v",
			c.Episodes)
	}

	if len(c.Bins) == 0 {
		return fmt.Errorf("validate: bins must be specified")
	}
	for d, n := range c.Bins {
		if n < 1 {
			return fmt.Errorf("validate: dimension %v must have at least "+
				"one bin, have %v", d, n)
		}
	}
	if len(c.LowerBounds) != len(c.UpperBounds) {
		return fmt.Errorf("validate: %v lower bounds but %v upper bounds",
			len(c.LowerBounds), len(c.UpperBounds))
	}
	if len(c.LowerBounds) != 0 && len(c.LowerBounds) != len(c.Bins) {
		return fmt.Errorf("validate: %v bounds but %v bins",
			len(c.LowerBounds), len(c.Bins))
	}

	if err := c.Schedule().Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
