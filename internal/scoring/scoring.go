// Package scoring turns candidate risk statistics into a scalar cost and
// selects the lowest-cost plan.
//
//	score = Wp*collision_prob + Wd/max(avg_min_distance, eps) + Wc*comfort/scale
//
// Lower is better. Ties resolve to the lowest candidate index.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/risk"
)

// Default policy values.
const (
	DefaultCollisionWeight = 1.0
	DefaultDistanceWeight  = 0.5
	DefaultComfortWeight   = 0.1
	DefaultEpsilon         = 1e-3
	DefaultComfortScale    = 10.0
)

// ErrInvalidPolicy is wrapped by Policy.Validate failures.
var ErrInvalidPolicy = errors.New("invalid scoring policy")

// Weights are the non-negative coefficients of the three cost terms.
type Weights struct {
	Collision float64 `json:"p"`
	Distance  float64 `json:"d"`
	Comfort   float64 `json:"c"`
}

// Policy configures the cost function.
type Policy struct {
	Weights Weights `json:"weights"`
	// Epsilon floors the average minimum distance before inversion.
	Epsilon float64 `json:"distance_epsilon"`
	// ComfortScale divides the comfort cost.
	ComfortScale float64 `json:"comfort_scale"`
}

// DefaultPolicy returns weights (1.0, 0.5, 0.1), eps 1e-3 and scale 10.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			Collision: DefaultCollisionWeight,
			Distance:  DefaultDistanceWeight,
			Comfort:   DefaultComfortWeight,
		},
		Epsilon:      DefaultEpsilon,
		ComfortScale: DefaultComfortScale,
	}
}

// Validate checks weights are finite and non-negative, and eps and scale are
// positive.
func (p Policy) Validate() error {
	for _, w := range []struct {
		name string
		v    float64
	}{
		{"p", p.Weights.Collision},
		{"d", p.Weights.Distance},
		{"c", p.Weights.Comfort},
	} {
		if math.IsNaN(w.v) || math.IsInf(w.v, 0) || w.v < 0 {
			return fmt.Errorf("%w: weight %s = %v", ErrInvalidPolicy, w.name, w.v)
		}
	}
	if !(p.Epsilon > 0) || math.IsInf(p.Epsilon, 0) {
		return fmt.Errorf("%w: distance_epsilon = %v", ErrInvalidPolicy, p.Epsilon)
	}
	if !(p.ComfortScale > 0) || math.IsInf(p.ComfortScale, 0) {
		return fmt.Errorf("%w: comfort_scale = %v", ErrInvalidPolicy, p.ComfortScale)
	}
	return nil
}

// ComfortCost is the total absolute speed change along the trajectory,
// sum |v[t+1] - v[t]|. Trajectories shorter than two samples cost zero.
func ComfortCost(tr kinematics.Trajectory) float64 {
	cost := 0.0
	for t := 1; t < tr.Len(); t++ {
		cost += math.Abs(tr.At(t).V - tr.At(t-1).V)
	}
	return cost
}

// Score returns the cost of one candidate.
func (p Policy) Score(s risk.Stats, tr kinematics.Trajectory) float64 {
	return p.Explain(s, tr).Total
}

// ScoreAll scores candidates pairwise with their statistics.
func (p Policy) ScoreAll(trajs []kinematics.Trajectory, stats []risk.Stats) ([]float64, error) {
	if len(trajs) != len(stats) {
		return nil, fmt.Errorf("%w: %d trajectories, %d statistics", kinematics.ErrShapeMismatch, len(trajs), len(stats))
	}
	scores := make([]float64, len(trajs))
	for i := range trajs {
		scores[i] = p.Score(stats[i], trajs[i])
	}
	return scores, nil
}

// ArgMin returns the index of the smallest score, the first on ties. NaN
// compares above every number. It returns -1 for an empty slice.
func ArgMin(scores []float64) int {
	best := -1
	bestV := math.Inf(1)
	for i, v := range scores {
		if math.IsNaN(v) {
			v = math.Inf(1)
		}
		if best == -1 || v < bestV {
			best, bestV = i, v
		}
	}
	return best
}

// Select scores every candidate and returns the winning index with the scores.
func (p Policy) Select(trajs []kinematics.Trajectory, stats []risk.Stats) (int, []float64, error) {
	scores, err := p.ScoreAll(trajs, stats)
	if err != nil {
		return -1, nil, err
	}
	return ArgMin(scores), scores, nil
}
