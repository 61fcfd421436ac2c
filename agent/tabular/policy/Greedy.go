// Package policy implements policies over tables of action values
// indexed by a discretization of the observation space
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/timestep"
	"github.com/samuelfneumann/qcartpole/utils/floatutils"
	"github.com/samuelfneumann/qcartpole/utils/matutils/bucketizer"
)

// Greedy implements a greedy policy over a table of action values. The
// table has one row per grid cell of the bucketizer and one column per
// action. When multiple actions share the maximal value, one of them
// is selected uniformly at random.
type Greedy struct {
	weights    *mat.Dense
	bucketizer *bucketizer.Bucketizer
	rng        *rand.Rand
}

// NewGreedy creates a new Greedy policy. The weights are shared and
// not copied, so that a learner updating the weights changes the
// actions the policy selects.
func NewGreedy(weights *mat.Dense, b *bucketizer.Bucketizer,
	src rand.Source) (*Greedy, error) {
	if err := validateTable(weights, b); err != nil {
		return nil, fmt.Errorf("newGreedy: %w", err)
	}

	return &Greedy{
		weights:    weights,
		bucketizer: b,
		rng:        rand.New(src),
	}, nil
}

// SelectAction returns the greedy action in the observation of t
func (g *Greedy) SelectAction(t timestep.TimeStep) int {
	return g.selectGreedy(g.ActionValues(t.Observation))
}

// ActionValues returns the row of action values for the grid cell
// containing obs. The returned slice shares memory with the table.
func (g *Greedy) ActionValues(obs mat.Vector) []float64 {
	return g.weights.RawRowView(g.bucketizer.Encode(obs))
}

// selectGreedy returns an action with maximal value, breaking ties
// uniformly at random
func (g *Greedy) selectGreedy(values []float64) int {
	_, maxIndices := floatutils.MaxSlice(values)
	if len(maxIndices) == 1 {
		return maxIndices[0]
	}
	return maxIndices[g.rng.Intn(len(maxIndices))]
}

// Weights returns the table of action values of the policy
func (g *Greedy) Weights() *mat.Dense {
	return g.weights
}

func validateTable(weights *mat.Dense, b *bucketizer.Bucketizer) error {
	if weights == nil {
		return fmt.Errorf("table cannot be nil")
	}
	if b == nil {
		return fmt.Errorf("bucketizer cannot be nil")
	}

	r, _ := weights.Dims()
	if r != b.Len() {
		return fmt.Errorf("table has %v rows but bucketizer has %v cells",
			r, b.Len())
	}
	return nil
}
