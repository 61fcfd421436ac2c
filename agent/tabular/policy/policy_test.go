package policy

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/timestep"
	"github.com/samuelfneumann/qcartpole/utils/matutils/bucketizer"
)

// newTable returns a single-cell bucketizer and a table with the
// argument action values in its only row
func newTable(t *testing.T, values ...float64) (*mat.Dense,
	*bucketizer.Bucketizer) {
	t.Helper()

	b, err := bucketizer.New(mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}), []int{1})
	if err != nil {
		t.Fatalf("bucketizer: %v", err)
	}
	return mat.NewDense(1, len(values), values), b
}

func step() timestep.TimeStep {
	return timestep.New(timestep.Mid, 0, mat.NewVecDense(1,
		[]float64{0.5}), 1)
}

func TestGreedySelectsMax(t *testing.T) {
	table, b := newTable(t, 0.1, 0.9, 0.3)
	g, err := NewGreedy(table, b, rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		if a := g.SelectAction(step()); a != 1 {
			t.Fatalf("greedy: want action 1, have %v", a)
		}
	}

	// The policy must see updates to the shared table
	table.Set(0, 2, 2.0)
	if a := g.SelectAction(step()); a != 2 {
		t.Errorf("greedy after update: want action 2, have %v", a)
	}
}

func TestGreedyTieBreak(t *testing.T) {
	table, b := newTable(t, 0.7, 0.2, 0.7, 0.7)
	g, err := NewGreedy(table, b, rand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}

	const n = 6000
	counts := make([]float64, 4)
	for i := 0; i < n; i++ {
		counts[g.SelectAction(step())]++
	}

	if counts[1] != 0 {
		t.Errorf("non-maximal action selected %v times", counts[1])
	}

	// Each tied action should be chosen about a third of the time
	for _, a := range []int{0, 2, 3} {
		freq := counts[a] / n
		if math.Abs(freq-1.0/3.0) > 0.03 {
			t.Errorf("action %v selected with frequency %v, want ~1/3",
				a, freq)
		}
	}
}

func TestNewGreedyErrors(t *testing.T) {
	_, b := newTable(t, 0, 0)
	if _, err := NewGreedy(mat.NewDense(2, 2, nil), b,
		rand.NewSource(1)); err == nil {
		t.Error("expected error for table with wrong number of rows")
	}
	if _, err := NewGreedy(nil, b, rand.NewSource(1)); err == nil {
		t.Error("expected error for nil table")
	}
}

func TestEGreedyWarmup(t *testing.T) {
	table, b := newTable(t, 1, 0)
	schedule := Schedule{WarmupEpisodes: 10, DecayAfter: 0, DecayRate: 0.5}
	p, err := NewEGreedy(0, schedule, table, b, rand.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}

	// Epsilon is zero, so the non-greedy action can only come from the
	// warmup phase
	counts := make([]int, 2)
	for i := 0; i < 1000; i++ {
		counts[p.SelectActionAt(step(), 9)]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		t.Errorf("warmup should select actions at random, have counts %v",
			counts)
	}
	if p.Epsilon() != 0 {
		t.Errorf("warmup should not decay epsilon, have %v", p.Epsilon())
	}

	for i := 0; i < 100; i++ {
		if a := p.SelectActionAt(step(), 10); a != 0 {
			t.Fatalf("after warmup with ε=0: want greedy action 0, have %v",
				a)
		}
	}
}

func TestEGreedyDecay(t *testing.T) {
	table, b := newTable(t, 1, 0)
	schedule := Schedule{WarmupEpisodes: 2, DecayAfter: 5, DecayRate: 0.9}
	p, err := NewEGreedy(0.8, schedule, table, b, rand.NewSource(7))
	if err != nil {
		t.Fatal(err)
	}

	// No decay during warmup or up to and including the threshold
	for episode := 0; episode <= schedule.DecayAfter; episode++ {
		for i := 0; i < 10; i++ {
			p.SelectActionAt(step(), episode)
		}
	}
	if p.Epsilon() != 0.8 {
		t.Fatalf("epsilon should not decay before the threshold: have %v",
			p.Epsilon())
	}

	// Decay once per call afterwards, cumulatively
	previous := p.Epsilon()
	const calls = 25
	for i := 0; i < calls; i++ {
		p.SelectActionAt(step(), schedule.DecayAfter+1+i%3)
		if p.Epsilon() > previous {
			t.Fatalf("epsilon increased from %v to %v", previous,
				p.Epsilon())
		}
		previous = p.Epsilon()
	}

	want := 0.8 * math.Pow(0.9, calls)
	if !scalar.EqualWithinAbsOrRel(p.Epsilon(), want, 1e-12, 1e-12) {
		t.Errorf("epsilon after %v decays: want %v, have %v", calls, want,
			p.Epsilon())
	}
}

func TestEGreedySetEpisode(t *testing.T) {
	table, b := newTable(t, 1, 0)
	schedule := Schedule{WarmupEpisodes: 0, DecayAfter: 3, DecayRate: 0.5}
	p, err := NewEGreedy(1, schedule, table, b, rand.NewSource(11))
	if err != nil {
		t.Fatal(err)
	}

	p.SetEpisode(3)
	p.SelectAction(step())
	if p.Epsilon() != 1 {
		t.Errorf("epsilon should not decay at the threshold, have %v",
			p.Epsilon())
	}

	p.SetEpisode(4)
	p.SelectAction(step())
	if p.Epsilon() != 0.5 {
		t.Errorf("epsilon should decay past the threshold: want 0.5, "+
			"have %v", p.Epsilon())
	}
}

func TestNewEGreedyErrors(t *testing.T) {
	table, b := newTable(t, 1, 0)
	valid := Schedule{WarmupEpisodes: 1, DecayAfter: 1, DecayRate: 0.9}

	tests := []struct {
		name     string
		epsilon  float64
		schedule Schedule
	}{
		{"negative epsilon", -0.1, valid},
		{"epsilon above one", 1.1, valid},
		{"negative warmup", 0.1, Schedule{-1, 1, 0.9}},
		{"negative threshold", 0.1, Schedule{1, -1, 0.9}},
		{"zero decay rate", 0.1, Schedule{1, 1, 0}},
		{"decay rate above one", 0.1, Schedule{1, 1, 1.5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewEGreedy(test.epsilon, test.schedule, table, b,
				rand.NewSource(1))
			if err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRandom(t *testing.T) {
	if _, err := NewRandom(0, 1); err == nil {
		t.Error("expected error for zero actions")
	}

	r, err := NewRandom(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	counts := make([]int, 3)
	for i := 0; i < 3000; i++ {
		counts[r.SelectAction(step())]++
	}
	for a, c := range counts {
		if c < 800 {
			t.Errorf("action %v selected only %v times", a, c)
		}
	}
}
