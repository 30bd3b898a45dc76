package maneuver

import (
	"fmt"
	"sync"

	"github.com/banshee-data/riskplan/internal/kinematics"
)

// Definition describes a registered maneuver.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Build returns the T samples of the maneuver for the given parameters.
	Build func(p Params) []kinematics.State `json:"-"`
}

// Info is a summary of a registered maneuver.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry holds maneuver definitions in registration order.
type Registry struct {
	mu    sync.RWMutex
	defs  []*Definition
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a definition. A definition with an existing name replaces the
// old one in place, keeping its position.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[def.Name]; ok {
		r.defs[i] = def
		return
	}
	r.index[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.defs[i], true
}

// Len returns the number of registered maneuvers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Names returns maneuver names in candidate order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.defs))
	for i, def := range r.defs {
		names[i] = def.Name
	}
	return names
}

// List returns summary information in candidate order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, len(r.defs))
	for i, def := range r.defs {
		infos[i] = Info{Name: def.Name, Description: def.Description}
	}
	return infos
}

// Subset returns a new registry holding only the named maneuvers, in the
// order given. An unknown name is an error.
func (r *Registry) Subset(names []string) (*Registry, error) {
	out := NewRegistry()
	for _, name := range names {
		def, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown maneuver %q", name)
		}
		out.Register(def)
	}
	return out, nil
}

// Generate builds every registered maneuver from p, in registration order.
// All candidates share p.DT and p.Steps.
func (r *Registry) Generate(p Params) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidates := make([]Candidate, len(r.defs))
	for i, def := range r.defs {
		candidates[i] = Candidate{
			Index:      i,
			Name:       def.Name,
			Trajectory: kinematics.NewTrajectory(p.DT, def.Build(p)),
		}
	}
	return candidates
}

// NewStandardRegistry returns the four built-in maneuvers, with the brake
// maneuver decelerating at brakeDecel (m/s², negative).
func NewStandardRegistry(brakeDecel float64) *Registry {
	reg := NewRegistry()

	reg.Register(&Definition{
		Name:        KeepLane,
		Description: "Hold current speed and lane.",
		Build:       keepLaneStates,
	})

	reg.Register(&Definition{
		Name:        Brake,
		Description: fmt.Sprintf("Decelerate at %.1f m/s² in lane, never reversing.", brakeDecel),
		Build: func(p Params) []kinematics.State {
			return brakeStates(p, brakeDecel)
		},
	})

	reg.Register(&Definition{
		Name:        LaneChangeLeft,
		Description: "Half-sine lateral move one lane width to +y at constant speed.",
		Build: func(p Params) []kinematics.State {
			return laneChangeStates(p, p.LaneWidth)
		},
	})

	reg.Register(&Definition{
		Name:        LaneChangeRight,
		Description: "Half-sine lateral move one lane width to -y at constant speed.",
		Build: func(p Params) []kinematics.State {
			return laneChangeStates(p, -p.LaneWidth)
		},
	})

	return reg
}

// DefaultRegistry returns the built-in maneuvers with DefaultBrakeDecel.
func DefaultRegistry() *Registry {
	return NewStandardRegistry(DefaultBrakeDecel)
}

// GenerateDefault produces the keep, brake, left, right candidate set for an
// initial state, time step, horizon and lane width.
func GenerateDefault(start kinematics.State, dt, horizon, laneWidth float64) []Candidate {
	return DefaultRegistry().Generate(Params{
		Start:     start,
		DT:        dt,
		Steps:     kinematics.StepCount(horizon, dt),
		LaneWidth: laneWidth,
	})
}
