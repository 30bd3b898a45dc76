package planner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/riskplan/internal/config"
	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/maneuver"
	"github.com/banshee-data/riskplan/internal/rollout"
	"github.com/banshee-data/riskplan/internal/scoring"
)

// ErrInvalidConfig is returned before any simulation work when settings or
// inputs cannot produce a meaningful evaluation.
var ErrInvalidConfig = errors.New("invalid planner configuration")

// Settings is the full parameter set of one planner.
type Settings struct {
	DT         float64 // s
	Horizon    float64 // s
	Samples    int     // Monte Carlo trials per candidate
	LaneWidth  float64 // m
	BrakeDecel float64 // m/s², negative
	Workers    int     // 0 = GOMAXPROCS
	Seed       uint64
	// TimeBudget bounds one Evaluate call when positive.
	TimeBudget time.Duration

	Policy         scoring.Policy
	Accel          rollout.Distribution
	EgoFootprint   kinematics.Footprint
	AgentFootprint kinematics.Footprint
	// Maneuvers selects and orders candidates. Empty means all built-ins.
	Maneuvers []string
}

// DefaultSettings mirrors config/planner.defaults.json.
func DefaultSettings() Settings {
	return Settings{
		DT:             config.DefaultDT,
		Horizon:        config.DefaultHorizon,
		Samples:        config.DefaultSamples,
		LaneWidth:      config.DefaultLaneWidth,
		BrakeDecel:     maneuver.DefaultBrakeDecel,
		Policy:         scoring.DefaultPolicy(),
		Accel:          rollout.DefaultDistribution(),
		EgoFootprint:   kinematics.DefaultFootprint(),
		AgentFootprint: kinematics.DefaultFootprint(),
	}
}

// SettingsFromConfig resolves a PlannerConfig, filling omitted fields with
// defaults. The seed is left at zero when the config has none.
func SettingsFromConfig(cfg *config.PlannerConfig) Settings {
	p, d, c := cfg.GetWeights()
	ego := cfg.GetEgoFootprint()
	agent := cfg.GetAgentFootprint()

	outcomes := cfg.GetAccelDistribution()
	dist := make(rollout.Distribution, len(outcomes))
	for i, o := range outcomes {
		dist[i] = rollout.Outcome{Accel: o.Accel, Prob: o.Prob}
	}

	seed, _ := cfg.GetSeed()
	return Settings{
		DT:         cfg.GetDT(),
		Horizon:    cfg.GetHorizon(),
		Samples:    cfg.GetSamples(),
		LaneWidth:  cfg.GetLaneWidth(),
		BrakeDecel: cfg.GetBrakeDecel(),
		Workers:    cfg.GetWorkers(),
		Seed:       seed,
		TimeBudget: cfg.GetTimeBudget(),
		Policy: scoring.Policy{
			Weights:      scoring.Weights{Collision: p, Distance: d, Comfort: c},
			Epsilon:      cfg.GetDistanceEpsilon(),
			ComfortScale: cfg.GetComfortScale(),
		},
		Accel:          dist,
		EgoFootprint:   kinematics.Footprint{Width: ego.Width, Length: ego.Length},
		AgentFootprint: kinematics.Footprint{Width: agent.Width, Length: agent.Length},
		Maneuvers:      cfg.GetManeuvers(),
	}
}

// Steps returns T = floor(Horizon/DT).
func (s Settings) Steps() int {
	return kinematics.StepCount(s.Horizon, s.DT)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate reports the first problem, wrapped in ErrInvalidConfig.
func (s Settings) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case !positive(s.DT):
		return invalid("dt must be positive, got %v", s.DT)
	case !positive(s.Horizon):
		return invalid("horizon must be positive, got %v", s.Horizon)
	case s.Steps() < 1:
		return invalid("horizon %v shorter than one step of %v", s.Horizon, s.DT)
	case s.Samples < 1 || s.Samples > config.MaxSamples:
		return invalid("samples must be between 1 and %d, got %d", config.MaxSamples, s.Samples)
	case !positive(s.LaneWidth):
		return invalid("lane width must be positive, got %v", s.LaneWidth)
	case math.IsNaN(s.BrakeDecel) || math.IsInf(s.BrakeDecel, 0) || s.BrakeDecel > 0:
		return invalid("brake deceleration must be zero or negative, got %v", s.BrakeDecel)
	case s.Workers < 0:
		return invalid("workers must be non-negative, got %d", s.Workers)
	case s.TimeBudget < 0:
		return invalid("time budget must be non-negative, got %s", s.TimeBudget)
	}
	if err := s.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := s.Accel.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := s.EgoFootprint.Validate(); err != nil {
		return invalid("ego %v", err)
	}
	if err := s.AgentFootprint.Validate(); err != nil {
		return invalid("agent %v", err)
	}
	return nil
}
