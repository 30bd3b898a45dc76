package kinematics

import (
	"fmt"
	"math"
)

// Default vehicle dimensions in metres. Ego and agents share the same
// footprint unless configured otherwise.
const (
	DefaultVehicleWidth  = 2.0
	DefaultVehicleLength = 4.5
)

// State is a kinematic sample: longitudinal position X (m), lateral lane
// position Y (m) and scalar speed V (m/s).
type State struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	V float64 `json:"v"`
}

// Validate reports an error if any component is NaN or infinite.
func (s State) Validate() error {
	if !isFinite(s.X) || !isFinite(s.Y) || !isFinite(s.V) {
		return fmt.Errorf("state (%v, %v, %v) must be finite", s.X, s.Y, s.V)
	}
	return nil
}

// Footprint is the rectangular extent of a vehicle used for overlap tests.
// Length runs along X, Width along Y.
type Footprint struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// DefaultFootprint returns the 2.0 m x 4.5 m passenger car footprint.
func DefaultFootprint() Footprint {
	return Footprint{Width: DefaultVehicleWidth, Length: DefaultVehicleLength}
}

// HalfWidth returns half the footprint width.
func (f Footprint) HalfWidth() float64 { return f.Width / 2 }

// HalfLength returns half the footprint length.
func (f Footprint) HalfLength() float64 { return f.Length / 2 }

// IsZero reports whether the footprint was left unset.
func (f Footprint) IsZero() bool { return f.Width == 0 && f.Length == 0 }

// Validate checks both dimensions are positive and finite.
func (f Footprint) Validate() error {
	if !isFinite(f.Width) || f.Width <= 0 {
		return fmt.Errorf("footprint width must be positive, got %v", f.Width)
	}
	if !isFinite(f.Length) || f.Length <= 0 {
		return fmt.Errorf("footprint length must be positive, got %v", f.Length)
	}
	return nil
}

// Agent is another road user described at time zero.
type Agent struct {
	ID        string    `json:"id,omitempty"`
	Initial   State     `json:"initial"`
	Footprint Footprint `json:"footprint"`
}

// NewAgent returns an agent at the given state with the default footprint.
func NewAgent(id string, initial State) Agent {
	return Agent{ID: id, Initial: initial, Footprint: DefaultFootprint()}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
