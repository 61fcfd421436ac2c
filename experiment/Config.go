// Package experiment implements functionality for running an
// experiment: training an agent online and evaluating the learned
// policy on a separate environment
package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/qcartpole/agent/tabular/qlearning"
	"github.com/samuelfneumann/qcartpole/environment/envconfig"
	"github.com/samuelfneumann/qcartpole/experiment/trackers"
)

// Config represents a configuration of an experiment
type Config struct {
	Seed uint64 `json:"seed"`

	// EvalSteps caps the number of steps of the greedy evaluation run
	EvalSteps int `json:"eval_steps"`

	// LogEvery determines how often training progress is logged, 0
	// disables logging
	LogEvery int `json:"log_every"`

	Env   envconfig.Config `json:"env"`
	Agent qlearning.Config `json:"agent"`
}

// DefaultConfig returns the configuration of a tabular Q-learning
// experiment on CartPole
func DefaultConfig() Config {
	return Config{
		Seed:      1,
		EvalSteps: 1000,
		LogEvery:  1000,
		Env:       envconfig.Default(),
		Agent: qlearning.Config{
			LearningRate:   0.1,
			Discount:       0.99,
			Epsilon:        0.2,
			Episodes:       15000,
			Bins:           []int{30, 30, 30, 30},
			LowerBounds:    []float64{-4.8, -100, -0.418, -10},
			UpperBounds:    []float64{4.8, 100, 0.418, 10},
			WarmupEpisodes: 500,
			DecayAfter:     7000,
			DecayRate:      0.999,
		},
	}
}

// Validate returns an error describing whether or not the configuration
// is valid
func (c Config) Validate() error {
	if c.EvalSteps < 0 {
		return fmt.Errorf("validate: evaluation step cap cannot be negative")
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("validate: log frequency cannot be negative")
	}
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// Seeds holds the seeds of the independent random streams of an
// experiment
type Seeds struct {
	Env    uint64 // training environment
	Agent  uint64
	Eval   uint64 // evaluation environment
	Random uint64 // random baseline policy and its environment
}

// Seeds derives the seeds of every random stream of the experiment
// from Seed
func (c Config) Seeds() Seeds {
	rng := rand.New(rand.NewSource(c.Seed))
	return Seeds{
		Env:    rng.Uint64(),
		Agent:  rng.Uint64(),
		Eval:   rng.Uint64(),
		Random: rng.Uint64(),
	}
}

// CreateExp creates the training environment and agent described by
// the Config and returns an Online experiment running them
func (c Config) CreateExp(t ...trackers.Tracker) (*Online,
	*qlearning.QLearning, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("createExp: %w", err)
	}

	seeds := c.Seeds()
	env, _, err := c.Env.Create(seeds.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create "+
			"environment: %w", err)
	}

	a, err := c.Agent.CreateAgent(env, seeds.Agent)
	if err != nil {
		env.Close()
		return nil, nil, fmt.Errorf("createExp: could not create agent: %w",
			err)
	}

	return NewOnline(env, a, c.Agent.Episodes, t...), a.(*qlearning.QLearning),
		nil
}

// LoadConfig loads a JSON configuration from filename
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not decode %v: %w",
			filename, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}
	return c, nil
}

// Save saves the Config as indented JSON to filename
func (c Config) Save(filename string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
