package kinematics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch is returned when trajectories that must be compared step
// by step have different lengths or time steps.
var ErrShapeMismatch = errors.New("trajectory shape mismatch")

// stepTolerance absorbs binary round-off in horizon/dt (3.0/0.1 must give 30).
const stepTolerance = 1e-9

// StepCount returns T = floor(horizon/dt). It returns 0 for non-positive inputs.
func StepCount(horizon, dt float64) int {
	if dt <= 0 || horizon <= 0 || !isFinite(horizon) || !isFinite(dt) {
		return 0
	}
	return int(math.Floor(horizon/dt + stepTolerance))
}

// Trajectory is an ordered, fixed-length sequence of states sampled every DT
// seconds. The zero value is an empty trajectory.
type Trajectory struct {
	dt     float64
	states []State
}

// NewTrajectory wraps states sampled at dt. The trajectory takes ownership of
// the slice; callers must not modify it afterwards.
func NewTrajectory(dt float64, states []State) Trajectory {
	return Trajectory{dt: dt, states: states}
}

// Len returns the number of samples T.
func (t Trajectory) Len() int { return len(t.states) }

// DT returns the sampling interval in seconds.
func (t Trajectory) DT() float64 { return t.dt }

// Horizon returns the time span covered, T*dt.
func (t Trajectory) Horizon() float64 { return float64(len(t.states)) * t.dt }

// At returns the state at step i. It panics if i is out of range.
func (t Trajectory) At(i int) State { return t.states[i] }

// Last returns the final state, or the zero State for an empty trajectory.
func (t Trajectory) Last() State {
	if len(t.states) == 0 {
		return State{}
	}
	return t.states[len(t.states)-1]
}

// States returns a copy of the samples.
func (t Trajectory) States() []State {
	out := make([]State, len(t.states))
	copy(out, t.states)
	return out
}

// Speeds returns the speed profile.
func (t Trajectory) Speeds() []float64 {
	out := make([]float64, len(t.states))
	for i, s := range t.states {
		out[i] = s.V
	}
	return out
}

// Positions returns the X and Y series.
func (t Trajectory) Positions() (xs, ys []float64) {
	xs = make([]float64, len(t.states))
	ys = make([]float64, len(t.states))
	for i, s := range t.states {
		xs[i] = s.X
		ys[i] = s.Y
	}
	return xs, ys
}

// SameShape returns ErrShapeMismatch (wrapped with detail) unless every
// trajectory has the same length as the first.
func SameShape(trajs ...Trajectory) error {
	if len(trajs) < 2 {
		return nil
	}
	want := trajs[0].Len()
	for i, tr := range trajs[1:] {
		if tr.Len() != want {
			return fmt.Errorf("%w: trajectory %d has %d steps, want %d", ErrShapeMismatch, i+1, tr.Len(), want)
		}
	}
	return nil
}

type trajectoryJSON struct {
	DT     float64 `json:"dt"`
	States []State `json:"states"`
}

// MarshalJSON encodes the trajectory as {"dt": .., "states": [..]}.
func (t Trajectory) MarshalJSON() ([]byte, error) {
	states := t.states
	if states == nil {
		states = []State{}
	}
	return json.Marshal(trajectoryJSON{DT: t.dt, States: states})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (t *Trajectory) UnmarshalJSON(data []byte) error {
	var raw trajectoryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.dt = raw.DT
	t.states = raw.States
	return nil
}
