package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qcartpole/agent/tabular/qlearning"
	env "github.com/samuelfneumann/qcartpole/environment"
	"github.com/samuelfneumann/qcartpole/experiment/trackers"
	ts "github.com/samuelfneumann/qcartpole/timestep"
)

// smallConfig returns a configuration which trains quickly
func smallConfig() Config {
	c := DefaultConfig()
	c.Agent.Episodes = 20
	c.Agent.Bins = []int{6, 6, 6, 6}
	c.Agent.WarmupEpisodes = 5
	c.Agent.DecayAfter = 10
	c.LogEvery = 5
	return c
}

// constantPolicy always selects the same action
type constantPolicy int

func (c constantPolicy) SelectAction(ts.TimeStep) int {
	return int(c)
}

// failingEnv fails on the step numbered failAt
type failingEnv struct {
	env.Environment
	failAt int
	steps  int
}

var errStep = errors.New("simulated failure")

func (f *failingEnv) Step(a int) (ts.TimeStep, bool, error) {
	f.steps++
	if f.steps == f.failAt {
		return ts.TimeStep{}, true, errStep
	}
	return f.Environment.Step(a)
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	if c.Agent.Episodes != 15000 || c.EvalSteps != 1000 {
		t.Errorf("episodes/eval steps: have %v/%v", c.Agent.Episodes,
			c.EvalSteps)
	}
	if !reflect.DeepEqual(c.Agent.Bins, []int{30, 30, 30, 30}) {
		t.Errorf("bins: have %v", c.Agent.Bins)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	c := smallConfig()

	if err := c.Save(filename); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, loaded) {
		t.Errorf("loaded config differs: want %+v, have %+v", c, loaded)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("loading a missing config should error")
	}
}

func TestConfigValidate(t *testing.T) {
	negativeCap := smallConfig()
	negativeCap.EvalSteps = -1

	negativeLog := smallConfig()
	negativeLog.LogEvery = -1

	badAgent := smallConfig()
	badAgent.Agent.LearningRate = 0

	badEnv := smallConfig()
	badEnv.Env.EpisodeCutoff = 0

	for name, c := range map[string]Config{
		"negative cap": negativeCap,
		"negative log": negativeLog,
		"bad agent":    badAgent,
		"bad env":      badEnv,
	} {
		if err := c.Validate(); err == nil {
			t.Errorf("%v: expected an error", name)
		}
	}
}

func TestOnlineRun(t *testing.T) {
	dir := t.TempDir()
	returns := trackers.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))

	c := smallConfig()
	exp, q, err := c.CreateExp(returns)
	if err != nil {
		t.Fatal(err)
	}
	exp.Register(lengths)

	var out bytes.Buffer
	exp.SetLogger(log.New(&out, "", 0), c.LogEvery)

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}

	if exp.Episode() != c.Agent.Episodes {
		t.Errorf("episodes run: want %v, have %v", c.Agent.Episodes,
			exp.Episode())
	}

	// Rewards are 1 on every step, so returns equal episode lengths
	data := returns.Data()
	if len(data) != c.Agent.Episodes {
		t.Fatalf("tracked returns: want %v, have %v", c.Agent.Episodes,
			len(data))
	}
	if !floats.Equal(data, q.EpisodeRewards()) {
		t.Errorf("tracked returns %v differ from agent log %v", data,
			q.EpisodeRewards())
	}
	for i, l := range lengths.Data() {
		if float64(l) != data[i] {
			t.Errorf("episode %v: length %v but return %v", i, l, data[i])
		}
	}

	if n := strings.Count(out.String(), "\n"); n != c.Agent.Episodes/c.LogEvery {
		t.Errorf("log lines: want %v, have %v", c.Agent.Episodes/c.LogEvery,
			n)
	}
	if !strings.Contains(out.String(), "epsilon") {
		t.Errorf("log should report epsilon, have %q", out.String())
	}

	if err := exp.Save(); err != nil {
		t.Fatal(err)
	}
	loaded, err := trackers.LoadData(filepath.Join(dir, "returns.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(loaded, data) {
		t.Errorf("saved returns: want %v, have %v", data, loaded)
	}
}

func TestOnlineEnvironmentError(t *testing.T) {
	c := smallConfig()
	exp, _, err := c.CreateExp()
	if err != nil {
		t.Fatal(err)
	}
	exp.Environment = &failingEnv{Environment: exp.Environment, failAt: 3}

	err = exp.Run()
	if !errors.Is(err, errStep) {
		t.Fatalf("environment error should propagate, have %v", err)
	}
	if exp.Episode() != 0 {
		t.Errorf("failed episode should not be counted, have %v",
			exp.Episode())
	}
}

func TestEvaluate(t *testing.T) {
	c := smallConfig()

	// Pushing one way always topples the pole well before the cap
	rewards, e, err := Evaluate(c.Env, 3, constantPolicy(1), c.EvalSteps)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if len(rewards) == 0 || len(rewards) >= c.Env.EpisodeCutoff {
		t.Errorf("episode length %v should end by termination",
			len(rewards))
	}
	for i, r := range rewards {
		if r != 1 {
			t.Errorf("step %v: want reward 1, have %v", i, r)
		}
	}

	// The episode has ended, the returned environment must be reset
	if _, _, err := e.Step(0); err == nil {
		t.Error("stepping an ended episode should error")
	}
}

func TestEvaluateCap(t *testing.T) {
	c := smallConfig()

	rewards, e, err := Evaluate(c.Env, 3, constantPolicy(0), 3)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if len(rewards) != 3 {
		t.Errorf("evaluation should stop at the cap: want 3 steps, have %v",
			len(rewards))
	}

	if _, _, err := Evaluate(c.Env, 3, constantPolicy(0), -1); err == nil {
		t.Error("negative step cap should error")
	}
}

func TestEvaluateIllegalAction(t *testing.T) {
	c := smallConfig()
	if _, e, err := Evaluate(c.Env, 3, constantPolicy(5), 10); err == nil {
		t.Error("illegal action should error")
	} else if e != nil {
		t.Error("failed evaluation should not return an environment")
	}
}

func TestEvaluateGreedyAfterTraining(t *testing.T) {
	c := smallConfig()
	exp, q, err := c.CreateExp()
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	exp.Close()

	rewards, e, err := Evaluate(c.Env, c.Seeds().Eval, q.Greedy(), c.EvalSteps)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if len(rewards) == 0 || len(rewards) > c.Env.EpisodeCutoff {
		t.Errorf("evaluation length %v out of range", len(rewards))
	}
	if len(q.EpisodeRewards()) != c.Agent.Episodes {
		t.Error("evaluation should not add to the training reward log")
	}
}

// oneStepEnv has a single action, observations in [0, 1]^4 and
// episodes which terminate after one step with a reward of 1
type oneStepEnv struct {
	last ts.TimeStep
}

func (o *oneStepEnv) obs(v float64) *mat.VecDense {
	return mat.NewVecDense(4, []float64{v, v, v, v})
}

func (o *oneStepEnv) Reset() (ts.TimeStep, error) {
	o.last = ts.New(ts.First, 0, o.obs(0.25), 0)
	return o.last, nil
}

func (o *oneStepEnv) Step(a int) (ts.TimeStep, bool, error) {
	if a != 0 {
		return ts.TimeStep{}, true, fmt.Errorf("illegal action %v", a)
	}
	if o.last.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("episode has ended")
	}
	o.last = ts.New(ts.Last, 1, o.obs(1), o.last.Number+1)
	o.last.SetEnd(ts.TerminalStateReached)
	return o.last, true, nil
}

func (o *oneStepEnv) ObservationSpec() env.Spec {
	return env.NewSpec(mat.NewVecDense(4, nil), env.Observation, o.obs(0),
		o.obs(1), env.Continuous)
}

func (o *oneStepEnv) ActionSpec() env.Spec {
	return env.NewSpec(mat.NewVecDense(1, nil), env.Action,
		mat.NewVecDense(1, []float64{0}), mat.NewVecDense(1, []float64{0}),
		env.Discrete)
}

func (o *oneStepEnv) Close() error { return nil }

func TestSingleEpisodeOnOneStepEnvironment(t *testing.T) {
	config := qlearning.Config{
		LearningRate: 0.1,
		Discount:     0.99,
		Epsilon:      0.2,
		Episodes:     1,
		Bins:         []int{2, 2, 2, 2},
		DecayRate:    1,
	}

	e := &oneStepEnv{}
	a, err := config.CreateAgent(e, 1)
	if err != nil {
		t.Fatal(err)
	}
	q := a.(*qlearning.QLearning)

	// The starting observation lies in the first grid cell
	before := q.Weights().At(0, 0)
	if before < 0 || before >= 1 {
		t.Fatalf("initial value %v outside [0, 1)", before)
	}

	exp := NewOnline(e, q, config.Episodes)
	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}

	after := q.Weights().At(0, 0)
	if math.Abs(1-after) >= math.Abs(1-before) {
		t.Errorf("value should move strictly towards 1: %v -> %v", before,
			after)
	}
	if want := before + 0.1*(1-before); math.Abs(after-want) > 1e-12 {
		t.Errorf("updated value: want %v, have %v", want, after)
	}

	if rewards := q.EpisodeRewards(); len(rewards) != 1 || rewards[0] != 1 {
		t.Errorf("reward log: want [1], have %v", rewards)
	}
}

func TestSeeds(t *testing.T) {
	c := DefaultConfig()
	seeds := c.Seeds()

	all := []uint64{seeds.Env, seeds.Agent, seeds.Eval, seeds.Random}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i] == all[j] {
				t.Errorf("seeds %v and %v coincide: %v", i, j, all[i])
			}
		}
	}

	if c.Seeds() != seeds {
		t.Error("seeds should be derived deterministically")
	}

	c.Seed++
	if c.Seeds() == seeds {
		t.Error("different experiment seeds should give different seeds")
	}
}
