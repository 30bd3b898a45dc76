// Package planner is the entry point of the risk-aware trajectory
// evaluation pipeline.
//
// One Evaluate call generates the candidate ego trajectories, estimates each
// candidate's collision risk against stochastic rollouts of the other agents,
// scores the candidates and picks the one with the lowest score. Inputs are
// validated up front; a failing evaluation returns an error and no partial
// result.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/maneuver"
	"github.com/banshee-data/riskplan/internal/monitoring"
	"github.com/banshee-data/riskplan/internal/risk"
	"github.com/banshee-data/riskplan/internal/scoring"
	"github.com/banshee-data/riskplan/internal/timeutil"
)

var logf = monitoring.Prefixed("planner")

// Result is the outcome of one evaluation. Slices are indexed by candidate.
type Result struct {
	BestIndex  int                  `json:"best_index"`
	BestName   string               `json:"best_name"`
	Candidates []maneuver.Candidate `json:"candidates"`
	Risks      []risk.Stats         `json:"risks"`
	Scores     []float64            `json:"scores"`
	Breakdowns []scoring.Breakdown  `json:"breakdowns"`
	Pareto     []int                `json:"pareto"`
	Ranking    []int                `json:"ranking"`

	Seed    uint64        `json:"seed,string"`
	Samples int           `json:"samples"`
	DT      float64       `json:"dt"`
	Horizon float64       `json:"horizon"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Best returns the chosen candidate.
func (r *Result) Best() maneuver.Candidate {
	return r.Candidates[r.BestIndex]
}

// Trajectories returns the candidate trajectories in candidate order.
func (r *Result) Trajectories() []kinematics.Trajectory {
	out := make([]kinematics.Trajectory, len(r.Candidates))
	for i, c := range r.Candidates {
		out[i] = c.Trajectory
	}
	return out
}

// Objectives returns the raw trade-off quantities per candidate.
func (r *Result) Objectives() []scoring.Objectives {
	out := make([]scoring.Objectives, len(r.Candidates))
	for i := range r.Candidates {
		out[i] = scoring.Objectives{
			CollisionProb:  r.Risks[i].CollisionProb,
			AvgMinDistance: r.Risks[i].AvgMinDistance,
			ComfortCost:    r.Breakdowns[i].ComfortCost,
		}
	}
	return out
}

// Planner evaluates scenes with fixed settings. It is safe for concurrent
// use; each Evaluate call owns its random streams.
type Planner struct {
	settings Settings
	registry *maneuver.Registry
	clock    timeutil.Clock
}

// Option customises a Planner.
type Option func(*Planner)

// WithRegistry replaces the built-in maneuvers. Settings.Maneuvers, when
// set, still selects from it.
func WithRegistry(reg *maneuver.Registry) Option {
	return func(p *Planner) { p.registry = reg }
}

// WithClock sets the clock used to time evaluations.
func WithClock(c timeutil.Clock) Option {
	return func(p *Planner) { p.clock = c }
}

// New validates settings and builds a planner.
func New(s Settings, opts ...Option) (*Planner, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Planner{
		settings: s,
		registry: maneuver.NewStandardRegistry(s.BrakeDecel),
		clock:    timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(s.Maneuvers) > 0 {
		sub, err := p.registry.Subset(s.Maneuvers)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		p.registry = sub
	}
	if p.registry.Len() == 0 {
		return nil, fmt.Errorf("%w: no candidate maneuvers", ErrInvalidConfig)
	}
	return p, nil
}

// Settings returns the planner's settings.
func (p *Planner) Settings() Settings { return p.settings }

// Maneuvers returns the candidate names in candidate order.
func (p *Planner) Maneuvers() []string { return p.registry.Names() }

// prepareAgents validates agents and fills unset footprints. The caller's
// slice is not modified.
func (p *Planner) prepareAgents(agents []kinematics.Agent) ([]kinematics.Agent, error) {
	out := make([]kinematics.Agent, len(agents))
	for i, a := range agents {
		if err := a.Initial.Validate(); err != nil {
			return nil, fmt.Errorf("%w: agent %d: %v", ErrInvalidConfig, i, err)
		}
		if a.Footprint.IsZero() {
			a.Footprint = p.settings.AgentFootprint
		} else if err := a.Footprint.Validate(); err != nil {
			return nil, fmt.Errorf("%w: agent %d: %v", ErrInvalidConfig, i, err)
		}
		out[i] = a
	}
	return out, nil
}

// Evaluate runs the full pipeline for one scene.
func (p *Planner) Evaluate(ctx context.Context, ego kinematics.State, agents []kinematics.Agent) (*Result, error) {
	if err := ego.Validate(); err != nil {
		return nil, fmt.Errorf("%w: ego: %v", ErrInvalidConfig, err)
	}
	agents, err := p.prepareAgents(agents)
	if err != nil {
		return nil, err
	}
	if p.settings.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settings.TimeBudget)
		defer cancel()
	}

	start := p.clock.Now()
	s := p.settings
	steps := s.Steps()

	candidates := p.registry.Generate(maneuver.Params{
		Start:     ego,
		DT:        s.DT,
		Steps:     steps,
		LaneWidth: s.LaneWidth,
	})
	trajs := make([]kinematics.Trajectory, len(candidates))
	for i, c := range candidates {
		trajs[i] = c.Trajectory
	}
	if err := kinematics.SameShape(trajs...); err != nil {
		return nil, err
	}

	est := &risk.Estimator{
		Dist:         s.Accel,
		DT:           s.DT,
		Steps:        steps,
		Trials:       s.Samples,
		Workers:      s.Workers,
		Seed:         s.Seed,
		EgoFootprint: s.EgoFootprint,
	}
	risks, err := est.EstimateAll(ctx, trajs, agents)
	if err != nil {
		return nil, fmt.Errorf("estimate risk: %w", err)
	}

	best, scores, err := s.Policy.Select(trajs, risks)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	breakdowns := make([]scoring.Breakdown, len(trajs))
	for i := range trajs {
		breakdowns[i] = s.Policy.Explain(risks[i], trajs[i])
	}

	res := &Result{
		BestIndex:  best,
		BestName:   candidates[best].Name,
		Candidates: candidates,
		Risks:      risks,
		Scores:     scores,
		Breakdowns: breakdowns,
		Ranking:    scoring.Rank(scores),
		Seed:       s.Seed,
		Samples:    s.Samples,
		DT:         s.DT,
		Horizon:    s.Horizon,
	}
	res.Pareto = scoring.ParetoFrontier(res.Objectives())
	res.Elapsed = p.clock.Since(start)

	logf("evaluated %d candidates x %d trials against %d agents in %s; chose %s (score %.4f)",
		len(candidates), s.Samples, len(agents), res.Elapsed, res.BestName, scores[best])
	return res, nil
}

// Evaluate is a one-shot convenience: build a planner from settings and
// evaluate a single scene.
func Evaluate(ctx context.Context, s Settings, ego kinematics.State, agents []kinematics.Agent) (*Result, error) {
	p, err := New(s)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(ctx, ego, agents)
}
