package experiment

import (
	"fmt"

	"github.com/samuelfneumann/qcartpole/agent"
	env "github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/environment/envconfig"
)

// EvaluatePolicy runs a single episode of policy p on environment e,
// for at most maxSteps steps, and returns the reward of each step
// taken. The episode ends early if the environment ends it. No
// learning takes place.
func EvaluatePolicy(e env.Environment, p agent.Policy,
	maxSteps int) ([]float64, error) {
	if maxSteps < 0 {
		return nil, fmt.Errorf("evaluatePolicy: step cap cannot be "+
			"negative, have %v", maxSteps)
	}

	step, err := e.Reset()
	if err != nil {
		return nil, fmt.Errorf("evaluatePolicy: could not reset "+
			"environment: %w", err)
	}

	var rewards []float64
	for i := 0; i < maxSteps && !step.Last(); i++ {
		action := p.SelectAction(step)
		step, _, err = e.Step(action)
		if err != nil {
			return rewards, fmt.Errorf("evaluatePolicy: step %v: %w", i, err)
		}
		rewards = append(rewards, step.Reward)
	}
	return rewards, nil
}

// Evaluate runs policy p on a fresh environment created from config
// for at most maxSteps steps. The per-step rewards are returned
// together with the environment, which the caller is responsible for
// closing. If evaluation fails, the environment is closed and a nil
// environment is returned.
func Evaluate(config envconfig.Config, seed uint64, p agent.Policy,
	maxSteps int) ([]float64, env.Environment, error) {
	e, _, err := config.Create(seed)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}

	rewards, err := EvaluatePolicy(e, p, maxSteps)
	if err != nil {
		e.Close()
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}
	return rewards, e, nil
}
