// Package rollout samples stochastic future trajectories for other agents.
//
// At every step an agent draws one acceleration from a discrete distribution,
// integrates speed (clamped at zero) and then position. Lateral position is
// held constant.
package rollout

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/riskplan/internal/kinematics"
)

// probTolerance is how far the probabilities may sum away from one.
const probTolerance = 1e-6

// ErrInvalidDistribution is wrapped by Distribution.Validate failures.
var ErrInvalidDistribution = errors.New("invalid acceleration distribution")

// Outcome is one acceleration choice (m/s²) and its probability.
type Outcome struct {
	Accel float64 `json:"accel"`
	Prob  float64 `json:"prob"`
}

// Distribution is a finite set of acceleration outcomes.
type Distribution []Outcome

// DefaultDistribution is brake hard 20%, hold 60%, accelerate 20%.
func DefaultDistribution() Distribution {
	return Distribution{
		{Accel: -2.0, Prob: 0.2},
		{Accel: 0.0, Prob: 0.6},
		{Accel: 1.0, Prob: 0.2},
	}
}

// Validate checks the distribution is non-empty, finite and sums to one.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: no outcomes", ErrInvalidDistribution)
	}
	sum := 0.0
	for i, o := range d {
		if math.IsNaN(o.Accel) || math.IsInf(o.Accel, 0) {
			return fmt.Errorf("%w: outcome %d acceleration %v", ErrInvalidDistribution, i, o.Accel)
		}
		if math.IsNaN(o.Prob) || o.Prob < 0 {
			return fmt.Errorf("%w: outcome %d probability %v", ErrInvalidDistribution, i, o.Prob)
		}
		sum += o.Prob
	}
	if math.Abs(sum-1) > probTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrInvalidDistribution, sum)
	}
	return nil
}

// Mean returns the expected acceleration.
func (d Distribution) Mean() float64 {
	m := 0.0
	for _, o := range d {
		m += o.Accel * o.Prob
	}
	return m
}

// Sampler draws agent rollouts. A Sampler is not safe for concurrent use;
// give each goroutine its own.
type Sampler struct {
	accels []float64
	cat    distuv.Categorical
	dt     float64
	steps  int
}

// NewSampler builds a sampler drawing from dist with the given random source.
// The distribution must already be valid.
func NewSampler(dist Distribution, dt float64, steps int, src rand.Source) *Sampler {
	accels := make([]float64, len(dist))
	weights := make([]float64, len(dist))
	for i, o := range dist {
		accels[i] = o.Accel
		weights[i] = o.Prob
	}
	return &Sampler{
		accels: accels,
		cat:    distuv.NewCategorical(weights, src),
		dt:     dt,
		steps:  steps,
	}
}

// Accel draws one acceleration.
func (s *Sampler) Accel() float64 {
	return s.accels[int(s.cat.Rand())]
}

// Rollout samples one future path for an agent starting at initial. The
// first sample is one step after initial.
func (s *Sampler) Rollout(initial kinematics.State) kinematics.Trajectory {
	states := make([]kinematics.State, s.steps)
	x, y, v := initial.X, initial.Y, initial.V
	for i := range states {
		v = math.Max(0, v+s.Accel()*s.dt)
		x += v * s.dt
		states[i] = kinematics.State{X: x, Y: y, V: v}
	}
	return kinematics.NewTrajectory(s.dt, states)
}

// RolloutAll samples one path per agent, in agent order.
func (s *Sampler) RolloutAll(agents []kinematics.Agent) []kinematics.Trajectory {
	paths := make([]kinematics.Trajectory, len(agents))
	for i, a := range agents {
		paths[i] = s.Rollout(a.Initial)
	}
	return paths
}

// ConstantSpeed returns the deterministic path of an agent holding its speed,
// used for visualising the nominal scene.
func ConstantSpeed(initial kinematics.State, dt float64, steps int) kinematics.Trajectory {
	states := make([]kinematics.State, steps)
	x := initial.X
	for i := range states {
		x += initial.V * dt
		states[i] = kinematics.State{X: x, Y: initial.Y, V: initial.V}
	}
	return kinematics.NewTrajectory(dt, states)
}
