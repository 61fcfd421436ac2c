package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/qcartpole/timestep"
)

// Random selects actions uniformly at random, ignoring observations
type Random struct {
	actions int
	rng     *rand.Rand
}

// NewRandom returns a new Random policy over actions actions
func NewRandom(actions int, seed uint64) (*Random, error) {
	if actions < 1 {
		return nil, fmt.Errorf("newRandom: at least one action is "+
			"required, have %v", actions)
	}
	return &Random{actions, rand.New(rand.NewSource(seed))}, nil
}

// SelectAction returns a uniformly random action
func (r *Random) SelectAction(timestep.TimeStep) int {
	return r.rng.Intn(r.actions)
}
