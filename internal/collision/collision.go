// Package collision tests an ego trajectory against obstacle trajectories
// using axis-aligned rectangle overlap per time step.
package collision

import (
	"fmt"
	"math"

	"github.com/banshee-data/riskplan/internal/kinematics"
)

// Obstacle is a time-indexed obstacle path with its footprint.
type Obstacle struct {
	Path      kinematics.Trajectory
	Footprint kinematics.Footprint
}

// Result is the outcome of checking one ego trajectory.
type Result struct {
	Collided bool `json:"collided"`
	// Step is the first colliding step, or -1.
	Step int `json:"step"`
	// MinDistance is the smallest centre-to-centre distance measured before
	// the scan stopped at the first overlapping obstacle, or over the whole
	// trajectory when there is no collision. +Inf with no obstacles.
	MinDistance float64 `json:"min_distance"`
}

// Overlap reports whether two axis-aligned footprints centred at (ax, ay) and
// (bx, by) intersect. Touching edges do not overlap.
func Overlap(ax, ay float64, a kinematics.Footprint, bx, by float64, b kinematics.Footprint) bool {
	return math.Abs(ax-bx) < a.HalfLength()+b.HalfLength() &&
		math.Abs(ay-by) < a.HalfWidth()+b.HalfWidth()
}

// Check scans the ego trajectory step by step and, within a step, the
// obstacles in order. Each obstacle's distance updates the running minimum
// before its overlap test, and the scan stops at the first overlapping
// obstacle, so obstacles after it in the same step are not measured.
//
// Every obstacle path must have the same length as ego; otherwise the error
// wraps kinematics.ErrShapeMismatch.
func Check(ego kinematics.Trajectory, egoFP kinematics.Footprint, obstacles []Obstacle) (Result, error) {
	for i, ob := range obstacles {
		if ob.Path.Len() != ego.Len() {
			return Result{}, fmt.Errorf("%w: obstacle %d has %d steps, ego has %d",
				kinematics.ErrShapeMismatch, i, ob.Path.Len(), ego.Len())
		}
	}

	res := Result{Step: -1, MinDistance: math.Inf(1)}
	for t := 0; t < ego.Len(); t++ {
		e := ego.At(t)
		for _, ob := range obstacles {
			o := ob.Path.At(t)
			if d := math.Hypot(e.X-o.X, e.Y-o.Y); d < res.MinDistance {
				res.MinDistance = d
			}
			if Overlap(e.X, e.Y, egoFP, o.X, o.Y, ob.Footprint) {
				res.Collided = true
				res.Step = t
				return res, nil
			}
		}
	}
	return res, nil
}

// CheckAgents is Check for obstacles sharing one footprint.
func CheckAgents(ego kinematics.Trajectory, egoFP kinematics.Footprint, paths []kinematics.Trajectory, agentFP kinematics.Footprint) (Result, error) {
	obstacles := make([]Obstacle, len(paths))
	for i, p := range paths {
		obstacles[i] = Obstacle{Path: p, Footprint: agentFP}
	}
	return Check(ego, egoFP, obstacles)
}
