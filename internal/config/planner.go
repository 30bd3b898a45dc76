package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical planner defaults file.
const DefaultConfigPath = "config/planner.defaults.json"

// Built-in defaults used when a field is omitted.
const (
	DefaultDT              = 0.1
	DefaultHorizon         = 3.0
	DefaultSamples         = 100
	DefaultLaneWidth       = 3.5
	DefaultBrakeDecel      = -2.0
	DefaultDistanceEpsilon = 1e-3
	DefaultComfortScale    = 10.0
	DefaultVehicleWidth    = 2.0
	DefaultVehicleLength   = 4.5

	// MaxSamples bounds the Monte Carlo trials per candidate.
	MaxSamples = 1_000_000
)

// WeightsConfig holds the scoring weights. Keys match the short names used
// in run summaries.
type WeightsConfig struct {
	Collision *float64 `json:"p,omitempty"`
	Distance  *float64 `json:"d,omitempty"`
	Comfort   *float64 `json:"c,omitempty"`
}

// AccelOutcome is one entry of the agent acceleration distribution.
type AccelOutcome struct {
	Accel float64 `json:"accel"`
	Prob  float64 `json:"prob"`
}

// FootprintConfig is a vehicle rectangle in metres.
type FootprintConfig struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// PlannerConfig is the root planner configuration. Every field is optional;
// the Get* accessors supply defaults, so partial files are safe.
type PlannerConfig struct {
	// Simulation
	DT      *float64 `json:"dt,omitempty"`
	Horizon *float64 `json:"horizon,omitempty"`
	Samples *int     `json:"n_samples,omitempty"`
	Workers *int     `json:"workers,omitempty"`
	Seed    *uint64  `json:"seed,omitempty"`
	// TimeBudget bounds one evaluation, as a duration string like "250ms".
	// Empty means unbounded.
	TimeBudget *string `json:"time_budget,omitempty"`

	// Candidate generation
	LaneWidth  *float64 `json:"lane_width,omitempty"`
	BrakeDecel *float64 `json:"brake_decel,omitempty"`
	Maneuvers  []string `json:"maneuvers,omitempty"`

	// Agent model
	AccelDistribution []AccelOutcome   `json:"accel_distribution,omitempty"`
	EgoFootprint      *FootprintConfig `json:"ego_footprint,omitempty"`
	AgentFootprint    *FootprintConfig `json:"agent_footprint,omitempty"`

	// Scoring
	Weights         *WeightsConfig `json:"weights,omitempty"`
	DistanceEpsilon *float64       `json:"distance_epsilon,omitempty"`
	ComfortScale    *float64       `json:"comfort_scale,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyPlannerConfig returns a PlannerConfig with all fields unset.
func EmptyPlannerConfig() *PlannerConfig {
	return &PlannerConfig{}
}

// DefaultPlannerConfig returns a config with every field set to its default.
func DefaultPlannerConfig() *PlannerConfig {
	return &PlannerConfig{
		DT:                ptrFloat64(DefaultDT),
		Horizon:           ptrFloat64(DefaultHorizon),
		Samples:           ptrInt(DefaultSamples),
		Workers:           ptrInt(0),
		TimeBudget:        ptrString(""),
		LaneWidth:         ptrFloat64(DefaultLaneWidth),
		BrakeDecel:        ptrFloat64(DefaultBrakeDecel),
		Maneuvers:         DefaultManeuvers(),
		AccelDistribution: DefaultAccelDistribution(),
		EgoFootprint:      &FootprintConfig{Width: DefaultVehicleWidth, Length: DefaultVehicleLength},
		AgentFootprint:    &FootprintConfig{Width: DefaultVehicleWidth, Length: DefaultVehicleLength},
		Weights: &WeightsConfig{
			Collision: ptrFloat64(1.0),
			Distance:  ptrFloat64(0.5),
			Comfort:   ptrFloat64(0.1),
		},
		DistanceEpsilon: ptrFloat64(DefaultDistanceEpsilon),
		ComfortScale:    ptrFloat64(DefaultComfortScale),
	}
}

// DefaultManeuvers is the standard candidate set in candidate order.
func DefaultManeuvers() []string {
	return []string{"keep_lane", "brake", "lane_change_left", "lane_change_right"}
}

// DefaultAccelDistribution is brake 20%, hold 60%, accelerate 20%.
func DefaultAccelDistribution() []AccelOutcome {
	return []AccelOutcome{
		{Accel: -2.0, Prob: 0.2},
		{Accel: 0.0, Prob: 0.6},
		{Accel: 1.0, Prob: 0.2},
	}
}

// LoadPlannerConfig loads a PlannerConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPlannerConfig(path string) (*PlannerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParsePlannerConfig(data)
}

// ParsePlannerConfig decodes and validates a JSON config document.
func ParsePlannerConfig(data []byte) (*PlannerConfig, error) {
	cfg := EmptyPlannerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *PlannerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPlannerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks the values that are set. It does not check the whole
// planner setup (for example whether maneuver names are known); the planner
// does that when it is built.
func (c *PlannerConfig) Validate() error {
	if c.DT != nil && (!finite(*c.DT) || *c.DT <= 0) {
		return fmt.Errorf("dt must be positive, got %v", *c.DT)
	}
	if c.Horizon != nil && (!finite(*c.Horizon) || *c.Horizon <= 0) {
		return fmt.Errorf("horizon must be positive, got %v", *c.Horizon)
	}
	if c.Samples != nil && (*c.Samples < 1 || *c.Samples > MaxSamples) {
		return fmt.Errorf("n_samples must be between 1 and %d, got %d", MaxSamples, *c.Samples)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.TimeBudget != nil && *c.TimeBudget != "" {
		d, err := time.ParseDuration(*c.TimeBudget)
		if err != nil {
			return fmt.Errorf("invalid time_budget '%s': %w", *c.TimeBudget, err)
		}
		if d < 0 {
			return fmt.Errorf("time_budget must be non-negative, got %s", d)
		}
	}
	if c.LaneWidth != nil && (!finite(*c.LaneWidth) || *c.LaneWidth <= 0) {
		return fmt.Errorf("lane_width must be positive, got %v", *c.LaneWidth)
	}
	if c.BrakeDecel != nil && (!finite(*c.BrakeDecel) || *c.BrakeDecel > 0) {
		return fmt.Errorf("brake_decel must be zero or negative, got %v", *c.BrakeDecel)
	}
	if c.Weights != nil {
		for name, w := range map[string]*float64{"p": c.Weights.Collision, "d": c.Weights.Distance, "c": c.Weights.Comfort} {
			if w != nil && (!finite(*w) || *w < 0) {
				return fmt.Errorf("weight %s must be non-negative, got %v", name, *w)
			}
		}
	}
	if c.DistanceEpsilon != nil && (!finite(*c.DistanceEpsilon) || *c.DistanceEpsilon <= 0) {
		return fmt.Errorf("distance_epsilon must be positive, got %v", *c.DistanceEpsilon)
	}
	if c.ComfortScale != nil && (!finite(*c.ComfortScale) || *c.ComfortScale <= 0) {
		return fmt.Errorf("comfort_scale must be positive, got %v", *c.ComfortScale)
	}
	if len(c.AccelDistribution) > 0 {
		if err := validateAccelDistribution(c.AccelDistribution); err != nil {
			return err
		}
	}
	for _, fp := range []struct {
		name string
		v    *FootprintConfig
	}{{"ego_footprint", c.EgoFootprint}, {"agent_footprint", c.AgentFootprint}} {
		if fp.v != nil && (!finite(fp.v.Width) || !finite(fp.v.Length) || fp.v.Width <= 0 || fp.v.Length <= 0) {
			return fmt.Errorf("%s must have positive width and length, got %vx%v", fp.name, fp.v.Width, fp.v.Length)
		}
	}
	return nil
}

// validateAccelDistribution keeps configured tables to the brake / hold /
// accelerate shape: at least one negative, one zero and one positive
// outcome, with holding speed strictly the most likely. Probabilities are
// checked again by the rollout sampler.
func validateAccelDistribution(outcomes []AccelOutcome) error {
	var hold float64
	var neg, zero, pos bool
	for i, o := range outcomes {
		if !finite(o.Accel) || !finite(o.Prob) || o.Prob < 0 {
			return fmt.Errorf("accel_distribution[%d] is invalid: accel %v prob %v", i, o.Accel, o.Prob)
		}
		switch {
		case o.Accel < 0:
			neg = true
		case o.Accel > 0:
			pos = true
		default:
			zero = true
			hold += o.Prob
		}
	}
	if !neg || !zero || !pos {
		return fmt.Errorf("accel_distribution needs braking, holding and accelerating outcomes")
	}
	for i, o := range outcomes {
		if o.Accel != 0 && o.Prob >= hold {
			return fmt.Errorf("accel_distribution[%d] prob %v is not below the zero-acceleration prob %v", i, o.Prob, hold)
		}
	}
	return nil
}

// GetDT returns the time step in seconds.
func (c *PlannerConfig) GetDT() float64 {
	if c.DT == nil {
		return DefaultDT
	}
	return *c.DT
}

// GetHorizon returns the planning horizon in seconds.
func (c *PlannerConfig) GetHorizon() float64 {
	if c.Horizon == nil {
		return DefaultHorizon
	}
	return *c.Horizon
}

// GetSamples returns the Monte Carlo trial count per candidate.
func (c *PlannerConfig) GetSamples() int {
	if c.Samples == nil {
		return DefaultSamples
	}
	return *c.Samples
}

// GetWorkers returns the worker count; 0 means one per CPU.
func (c *PlannerConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSeed returns the configured seed and whether one was set.
func (c *PlannerConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetTimeBudget parses TimeBudget. Zero means unbounded.
func (c *PlannerConfig) GetTimeBudget() time.Duration {
	if c.TimeBudget == nil || *c.TimeBudget == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.TimeBudget)
	if err != nil {
		return 0
	}
	return d
}

// GetLaneWidth returns the lane width in metres.
func (c *PlannerConfig) GetLaneWidth() float64 {
	if c.LaneWidth == nil {
		return DefaultLaneWidth
	}
	return *c.LaneWidth
}

// GetBrakeDecel returns the brake maneuver deceleration.
func (c *PlannerConfig) GetBrakeDecel() float64 {
	if c.BrakeDecel == nil {
		return DefaultBrakeDecel
	}
	return *c.BrakeDecel
}

// GetManeuvers returns the candidate maneuver names.
func (c *PlannerConfig) GetManeuvers() []string {
	if len(c.Maneuvers) == 0 {
		return DefaultManeuvers()
	}
	return append([]string(nil), c.Maneuvers...)
}

// GetAccelDistribution returns the agent acceleration distribution.
func (c *PlannerConfig) GetAccelDistribution() []AccelOutcome {
	if len(c.AccelDistribution) == 0 {
		return DefaultAccelDistribution()
	}
	return append([]AccelOutcome(nil), c.AccelDistribution...)
}

// GetEgoFootprint returns the ego rectangle.
func (c *PlannerConfig) GetEgoFootprint() FootprintConfig {
	if c.EgoFootprint == nil {
		return FootprintConfig{Width: DefaultVehicleWidth, Length: DefaultVehicleLength}
	}
	return *c.EgoFootprint
}

// GetAgentFootprint returns the rectangle used for agents without their own.
func (c *PlannerConfig) GetAgentFootprint() FootprintConfig {
	if c.AgentFootprint == nil {
		return FootprintConfig{Width: DefaultVehicleWidth, Length: DefaultVehicleLength}
	}
	return *c.AgentFootprint
}

// GetWeights returns the (p, d, c) scoring weights.
func (c *PlannerConfig) GetWeights() (p, d, cw float64) {
	p, d, cw = 1.0, 0.5, 0.1
	if c.Weights == nil {
		return p, d, cw
	}
	if c.Weights.Collision != nil {
		p = *c.Weights.Collision
	}
	if c.Weights.Distance != nil {
		d = *c.Weights.Distance
	}
	if c.Weights.Comfort != nil {
		cw = *c.Weights.Comfort
	}
	return p, d, cw
}

// GetDistanceEpsilon returns the floor applied to average minimum distance.
func (c *PlannerConfig) GetDistanceEpsilon() float64 {
	if c.DistanceEpsilon == nil {
		return DefaultDistanceEpsilon
	}
	return *c.DistanceEpsilon
}

// GetComfortScale returns the comfort normaliser.
func (c *PlannerConfig) GetComfortScale() float64 {
	if c.ComfortScale == nil {
		return DefaultComfortScale
	}
	return *c.ComfortScale
}
