// Package scenario builds driving scenes for the planner: a randomised
// multi-lane highway and a fixed forced-collision case.
package scenario

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/rollout"
)

// Scene is an ego state plus the other agents around it.
type Scene struct {
	Name      string             `json:"name"`
	Ego       kinematics.State   `json:"ego"`
	Agents    []kinematics.Agent `json:"agents"`
	LaneWidth float64            `json:"lane_width"`
	Lanes     int                `json:"lanes"`
}

// LaneCentres returns the lateral position of each lane centre, lane 0 at y=0.
func (s Scene) LaneCentres() []float64 {
	out := make([]float64, s.Lanes)
	for i := range out {
		out[i] = float64(i) * s.LaneWidth
	}
	return out
}

// Highway describes a straight multi-lane road with agents scattered ahead of
// the ego vehicle.
type Highway struct {
	Lanes       int
	LaneWidth   float64
	CarsPerLane int
	// Agents are placed at x ~ U(GapMin, GapMax) and v ~ U(SpeedMin, SpeedMax).
	GapMin, GapMax     float64
	SpeedMin, SpeedMax float64
	EgoSpeed           float64
}

// DefaultHighway is three 3.5 m lanes, two cars per lane 20-80 m ahead at
// 15-25 m/s, ego at 20 m/s.
func DefaultHighway() Highway {
	return Highway{
		Lanes:       3,
		LaneWidth:   3.5,
		CarsPerLane: 2,
		GapMin:      20,
		GapMax:      80,
		SpeedMin:    15,
		SpeedMax:    25,
		EgoSpeed:    20,
	}
}

// Validate checks the highway can be sampled.
func (h Highway) Validate() error {
	switch {
	case h.Lanes < 1:
		return fmt.Errorf("lanes must be at least 1, got %d", h.Lanes)
	case h.LaneWidth <= 0:
		return fmt.Errorf("lane width must be positive, got %v", h.LaneWidth)
	case h.CarsPerLane < 0:
		return fmt.Errorf("cars per lane must be non-negative, got %d", h.CarsPerLane)
	case h.GapMax <= h.GapMin:
		return fmt.Errorf("gap range [%v, %v] is empty", h.GapMin, h.GapMax)
	case h.SpeedMax <= h.SpeedMin || h.SpeedMin < 0:
		return fmt.Errorf("speed range [%v, %v] is invalid", h.SpeedMin, h.SpeedMax)
	}
	return nil
}

// EgoLane is the middle lane index.
func (h Highway) EgoLane() int {
	return h.Lanes / 2
}

// Generate samples a scene from seed. The ego starts at x=0 in the middle
// lane; agents are listed lane by lane.
func (h Highway) Generate(seed uint64) (Scene, error) {
	if err := h.Validate(); err != nil {
		return Scene{}, err
	}
	src := rand.NewPCG(seed, 0)
	gap := distuv.Uniform{Min: h.GapMin, Max: h.GapMax, Src: src}
	speed := distuv.Uniform{Min: h.SpeedMin, Max: h.SpeedMax, Src: src}

	scene := Scene{
		Name:      "highway",
		Ego:       kinematics.State{X: 0, Y: float64(h.EgoLane()) * h.LaneWidth, V: h.EgoSpeed},
		LaneWidth: h.LaneWidth,
		Lanes:     h.Lanes,
	}
	for lane := 0; lane < h.Lanes; lane++ {
		y := float64(lane) * h.LaneWidth
		for k := 0; k < h.CarsPerLane; k++ {
			x := gap.Rand()
			v := speed.Rand()
			scene.Agents = append(scene.Agents, kinematics.NewAgent(
				fmt.Sprintf("lane%d-car%d", lane, k),
				kinematics.State{X: x, Y: y, V: v},
			))
		}
	}
	return scene, nil
}

// ForcedCollision is ego at 20 m/s in the middle lane with a stopped car
// 20 m ahead in the same lane.
func ForcedCollision() Scene {
	h := DefaultHighway()
	y := float64(h.EgoLane()) * h.LaneWidth
	return Scene{
		Name:      "forced",
		Ego:       kinematics.State{X: 0, Y: y, V: 20},
		Agents:    []kinematics.Agent{kinematics.NewAgent("stopped", kinematics.State{X: 20, Y: y, V: 0})},
		LaneWidth: h.LaneWidth,
		Lanes:     h.Lanes,
	}
}

// ConstantSpeedPaths returns each agent's path holding its initial speed.
// The planner never uses these; they show the nominal scene in reports.
func ConstantSpeedPaths(agents []kinematics.Agent, dt float64, steps int) []kinematics.Trajectory {
	out := make([]kinematics.Trajectory, len(agents))
	for i, a := range agents {
		out[i] = rollout.ConstantSpeed(a.Initial, dt, steps)
	}
	return out
}

// ByName returns a built-in scene: "random" (seeded highway) or "forced".
func ByName(name string, seed uint64) (Scene, error) {
	switch name {
	case "random", "highway":
		return DefaultHighway().Generate(seed)
	case "forced":
		return ForcedCollision(), nil
	default:
		return Scene{}, fmt.Errorf("unknown scenario %q (want random or forced)", name)
	}
}
