// Package maneuver generates the candidate ego trajectories compared by the
// planner.
//
// Candidates come from an ordered Registry of named maneuver definitions.
// The default registry holds keep_lane, brake, lane_change_left and
// lane_change_right, in that order; downstream logging relies on the
// index-to-maneuver correspondence, so registration order is preserved.
// Adding a maneuver means registering a Definition; the selection logic
// never names one.
package maneuver

import (
	"math"

	"github.com/banshee-data/riskplan/internal/kinematics"
)

// Built-in maneuver names.
const (
	KeepLane        = "keep_lane"
	Brake           = "brake"
	LaneChangeLeft  = "lane_change_left"
	LaneChangeRight = "lane_change_right"
)

// DefaultBrakeDecel is the longitudinal deceleration of the brake maneuver (m/s²).
const DefaultBrakeDecel = -2.0

// DefaultLaneWidth is the lateral offset of a lane change (m).
const DefaultLaneWidth = 3.5

// Params is the input shared by every maneuver definition.
type Params struct {
	Start     kinematics.State
	DT        float64
	Steps     int
	LaneWidth float64
}

// Candidate is one generated plan with its position in the candidate set.
type Candidate struct {
	Index      int                   `json:"index"`
	Name       string                `json:"name"`
	Trajectory kinematics.Trajectory `json:"trajectory"`
}

// keepLaneStates holds speed and lane; x integrates before each sample.
func keepLaneStates(p Params) []kinematics.State {
	states := make([]kinematics.State, 0, p.Steps)
	x, y, v := p.Start.X, p.Start.Y, p.Start.V
	for i := 0; i < p.Steps; i++ {
		x += v * p.DT
		states = append(states, kinematics.State{X: x, Y: y, V: v})
	}
	return states
}

// brakeStates decelerates at decel, clamping speed at zero.
func brakeStates(p Params, decel float64) []kinematics.State {
	states := make([]kinematics.State, 0, p.Steps)
	x, y, v := p.Start.X, p.Start.Y, p.Start.V
	for i := 0; i < p.Steps; i++ {
		v = math.Max(0, v+decel*p.DT)
		x += v * p.DT
		states = append(states, kinematics.State{X: x, Y: y, V: v})
	}
	return states
}

// laneChangeStates eases y from the start lane to start+deltaY along a
// half-sine, zero lateral velocity at t=0 and arrival at the last step.
func laneChangeStates(p Params, deltaY float64) []kinematics.State {
	states := make([]kinematics.State, 0, p.Steps)
	x, y0, v := p.Start.X, p.Start.Y, p.Start.V
	for t := 0; t < p.Steps; t++ {
		x += v * p.DT
		states = append(states, kinematics.State{X: x, Y: y0 + deltaY*lateralProgress(t, p.Steps), V: v})
	}
	return states
}

// lateralProgress is sin(pi/2 * t/(T-1)); with T <= 1 there is no interval to
// ease over, so the full offset applies.
func lateralProgress(t, steps int) float64 {
	if steps <= 1 {
		return 1
	}
	alpha := float64(t) / float64(steps-1)
	return math.Sin(alpha * math.Pi / 2)
}
