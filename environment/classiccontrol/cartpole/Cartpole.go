// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/qcartpole/environment"
	ts "github.com/samuelfneumann/qcartpole/timestep"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on observed state variables
	PositionBounds        float64 = 2 * PositionThreshold
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = 2 * FailAngle
	AngularVelocityBounds float64 = math.MaxFloat64

	// Discrete Actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 1

	ObservationDims int = 4
)

// Cartpole implements the classic control environment Cartpole with
// discrete actions. In this environment, a pole is attached by an
// un-actuated joint to a cart, which moves along a frictionless track.
// The pole starts upright and the agent must keep it balanced by
// pushing the cart left or right.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity. The speed and angular
// velocity features are unbounded.
//
// Actions are discrete, consisting of the direction to apply
// horizontal force to the cart. Legal actions are in {0, 1}:
//
//	Action		Meaning
//	  0			Push cart left
//	  1			Push cart right
//
// Illegal actions result in an error.
//
// Cartpole implements the environment.Environment interface
type Cartpole struct {
	env.Task
	lastStep              ts.TimeStep
	gravity               float64
	forceMag              float64
	poleMass              float64
	halfPoleLength        float64
	cartMass              float64
	dt                    float64
	positionBounds        r1.Interval
	speedBounds           r1.Interval
	angleBounds           r1.Interval
	angularVelocityBounds r1.Interval
	closed                bool
}

// New constructs a new Cartpole environment with task t, returning the
// environment and its first timestep
func New(t env.Task) (*Cartpole, ts.TimeStep, error) {
	cartpole := &Cartpole{
		Task:           t,
		gravity:        Gravity,
		forceMag:       ForceMag,
		poleMass:       PoleMass,
		halfPoleLength: HalfPoleLength,
		cartMass:       CartMass,
		dt:             Dt,
		positionBounds: r1.Interval{Min: -PositionBounds, Max: PositionBounds},
		speedBounds:    r1.Interval{Min: -SpeedBounds, Max: SpeedBounds},
		angleBounds:    r1.Interval{Min: -AngleBounds, Max: AngleBounds},
		angularVelocityBounds: r1.Interval{Min: -AngularVelocityBounds,
			Max: AngularVelocityBounds},
	}

	firstStep, err := cartpole.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not reset "+
			"environment: %w", err)
	}
	return cartpole, firstStep, nil
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() (ts.TimeStep, error) {
	if c.closed {
		return ts.TimeStep{}, fmt.Errorf("reset: environment is closed")
	}

	state := c.Start()
	if err := c.validateState(state); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: invalid starting "+
			"state: %w", err)
	}

	startStep := ts.New(ts.First, 0, state, 0)
	c.lastStep = startStep

	return startStep, nil
}

// LastTimeStep returns the last TimeStep that occurred in the
// environment
func (c *Cartpole) LastTimeStep() ts.TimeStep {
	return c.lastStep
}

// ActionSpec returns the action specification of the environment
func (c *Cartpole) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	lower := []float64{c.positionBounds.Min, c.speedBounds.Min,
		c.angleBounds.Min, c.angularVelocityBounds.Min}
	lowerBound := mat.NewVecDense(ObservationDims, lower)

	upper := []float64{c.positionBounds.Max, c.speedBounds.Max,
		c.angleBounds.Max, c.angularVelocityBounds.Max}
	upperBound := mat.NewVecDense(ObservationDims, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// Step takes one environmental step given action a and returns the next
// timestep as a timestep.TimeStep and a bool indicating whether or not
// the episode has ended. Stepping an environment whose episode has
// ended is an error; Reset must be called first.
func (c *Cartpole) Step(a int) (ts.TimeStep, bool, error) {
	if c.closed {
		return ts.TimeStep{}, true, fmt.Errorf("step: environment is closed")
	}
	if c.lastStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has ended, " +
			"environment must be reset")
	}

	// Ensure a legal action was selected
	if a < MinDiscreteAction || a > MaxDiscreteAction {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1)", a)
	}

	// Convert action (0, 1) to a direction (-1, 1)
	direction := 2.0*float64(a) - 1.0
	newState := c.nextState(direction)

	reward := c.GetReward(c.lastStep.Observation, a, newState)
	nextStep := ts.New(ts.Mid, reward, newState, c.lastStep.Number+1)

	// Check if the step ends the episode
	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// nextState computes the next state of the environment when force is
// applied to the cart in the given direction, using explicit Euler
// integration
func (c *Cartpole) nextState(direction float64) *mat.VecDense {
	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	force := direction * c.forceMag

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := c.poleMass + c.cartMass
	poleMassLength := c.poleMass * c.halfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (c.gravity*sinTheta - cosTheta*temp) / (c.halfPoleLength *
		(4.0/3.0 - c.poleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	x += c.dt * xDot
	xDot += c.dt * xAcc
	th += c.dt * thDot
	thDot += c.dt * thAcc

	return mat.NewVecDense(ObservationDims, []float64{x, xDot, th, thDot})
}

// Close closes the environment. Closed environments cannot be reset
// or stepped.
func (c *Cartpole) Close() error {
	c.closed = true
	return nil
}

// validateState ensures that a state observation is valid and between
// the observation bounds of the Cartpole environment
func (c *Cartpole) validateState(obs *mat.VecDense) error {
	if obs.Len() != ObservationDims {
		return fmt.Errorf("state has %v dimensions, expected %v", obs.Len(),
			ObservationDims)
	}

	bounds := []r1.Interval{c.positionBounds, c.speedBounds, c.angleBounds,
		c.angularVelocityBounds}
	names := []string{"position", "speed", "angle", "angular velocity"}
	for i, bound := range bounds {
		if v := obs.AtVec(i); v < bound.Min || v > bound.Max {
			return fmt.Errorf("%v %v is not within bounds %v", names[i], v,
				bound)
		}
	}
	return nil
}

func (c *Cartpole) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	position, speed := state.AtVec(0), state.AtVec(1)
	angle, velocity := state.AtVec(2), state.AtVec(3)

	return fmt.Sprintf(msg, position, speed, angle, velocity)
}
