// Package risk estimates collision risk of an ego trajectory by Monte Carlo
// simulation of the other agents.
//
// Each trial draws one stochastic rollout per agent, checks the ego path
// against them and records whether it collided and the closest approach.
// Trials are grouped into fixed-size blocks shared out across worker
// goroutines. Each block folds into a local partial aggregate and the
// partials are merged in block order. Every trial seeds its own PCG stream
// from (seed, stream, trial), so the result depends only on the inputs and
// the seed, never on worker count or scheduling.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/riskplan/internal/collision"
	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/rollout"
)

// ErrDegenerateStatistics is returned when there are no trials to aggregate.
var ErrDegenerateStatistics = errors.New("risk statistics need at least one trial")

// streamStride spreads candidate streams apart in PCG sequence space.
const streamStride = 0x9E3779B97F4A7C15

// Stats aggregates the trials of one candidate.
type Stats struct {
	CollisionProb     float64 `json:"collision_prob"`
	AvgMinDistance    float64 `json:"avg_min_distance"`
	WorstMinDistance  float64 `json:"worst_min_distance"`
	MinDistanceStdDev float64 `json:"min_distance_stddev"`
	Collisions        int     `json:"collisions"`
	Trials            int     `json:"trials"`
	// MeanCollisionStep is the mean first-collision step over colliding
	// trials, or -1.
	MeanCollisionStep float64 `json:"mean_collision_step"`
}

// Estimator runs Monte Carlo trials. The zero Workers value uses GOMAXPROCS.
type Estimator struct {
	Dist         rollout.Distribution
	DT           float64
	Steps        int
	Trials       int
	Workers      int
	Seed         uint64
	EgoFootprint kinematics.Footprint
}

// Validate checks the estimator can run.
func (e *Estimator) Validate() error {
	if e.Trials < 1 {
		return fmt.Errorf("%w: trials = %d", ErrDegenerateStatistics, e.Trials)
	}
	if e.DT <= 0 || math.IsNaN(e.DT) || math.IsInf(e.DT, 0) {
		return fmt.Errorf("dt must be positive, got %v", e.DT)
	}
	if e.Steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", e.Steps)
	}
	if err := e.Dist.Validate(); err != nil {
		return err
	}
	return e.EgoFootprint.Validate()
}

func (e *Estimator) workers(blocks int) int {
	w := e.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return min(w, blocks)
}

// blockSize is the number of consecutive trials folded into one partial.
// Block boundaries depend only on the trial count, so the reduction order
// is the same for any worker count.
const blockSize = 256

// partial is a running aggregate over a block of trials. Distances use
// Welford's update.
type partial struct {
	n          int
	collisions int
	stepSum    float64
	infinite   int
	finite     int
	mean, m2   float64
	worst      float64
}

func newPartial() partial {
	return partial{worst: math.Inf(1)}
}

// add folds one trial result into p.
func (p *partial) add(r collision.Result) {
	p.n++
	if r.Collided {
		p.collisions++
		p.stepSum += float64(r.Step)
	}
	p.worst = min(p.worst, r.MinDistance)
	if math.IsInf(r.MinDistance, 1) {
		p.infinite++
		return
	}
	p.finite++
	d := r.MinDistance - p.mean
	p.mean += d / float64(p.finite)
	p.m2 += d * (r.MinDistance - p.mean)
}

// merge folds q into p using the pairwise update of Chan et al.
func (p *partial) merge(q partial) {
	p.n += q.n
	p.collisions += q.collisions
	p.stepSum += q.stepSum
	p.infinite += q.infinite
	p.worst = min(p.worst, q.worst)
	if q.finite == 0 {
		return
	}
	if p.finite == 0 {
		p.finite, p.mean, p.m2 = q.finite, q.mean, q.m2
		return
	}
	n := p.finite + q.finite
	d := q.mean - p.mean
	p.mean += d * float64(q.finite) / float64(n)
	p.m2 += q.m2 + d*d*float64(p.finite)*float64(q.finite)/float64(n)
	p.finite = n
}

// stats finalises the aggregate.
func (p partial) stats() (Stats, error) {
	if p.n == 0 {
		return Stats{}, ErrDegenerateStatistics
	}
	s := Stats{
		Collisions:        p.collisions,
		Trials:            p.n,
		CollisionProb:     float64(p.collisions) / float64(p.n),
		WorstMinDistance:  p.worst,
		MeanCollisionStep: -1,
	}
	if p.collisions > 0 {
		s.MeanCollisionStep = p.stepSum / float64(p.collisions)
	}
	// With no agents every distance is +Inf and the spread is meaningless.
	if p.infinite > 0 {
		s.AvgMinDistance = math.Inf(1)
		return s, nil
	}
	s.AvgMinDistance = p.mean
	if p.finite > 1 {
		s.MinDistanceStdDev = math.Sqrt(p.m2 / float64(p.finite-1))
	}
	return s, nil
}

// Estimate runs e.Trials trials of ego against agents. stream distinguishes
// candidates that share a seed; pass the candidate index.
func (e *Estimator) Estimate(ctx context.Context, stream uint64, ego kinematics.Trajectory, agents []kinematics.Agent) (Stats, error) {
	if err := e.Validate(); err != nil {
		return Stats{}, err
	}
	if ego.Len() != e.Steps {
		return Stats{}, fmt.Errorf("%w: ego has %d steps, estimator expects %d",
			kinematics.ErrShapeMismatch, ego.Len(), e.Steps)
	}

	blocks := (e.Trials + blockSize - 1) / blockSize
	partials := make([]partial, blocks)
	workers := e.workers(blocks)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return e.runWorker(gctx, stream, ego, agents, partials, w, workers)
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	total := newPartial()
	for _, p := range partials {
		total.merge(p)
	}
	return total.stats()
}

// runWorker handles blocks w, w+stride, ... Each worker owns its sampler and
// writes only its own partials.
func (e *Estimator) runWorker(ctx context.Context, stream uint64, ego kinematics.Trajectory, agents []kinematics.Agent, partials []partial, w, stride int) error {
	pcg := rand.NewPCG(0, 0)
	sampler := rollout.NewSampler(e.Dist, e.DT, e.Steps, pcg)
	obstacles := make([]collision.Obstacle, len(agents))
	for i, a := range agents {
		obstacles[i].Footprint = a.Footprint
	}

	for b := w; b < len(partials); b += stride {
		p := newPartial()
		first := b * blockSize
		last := min(first+blockSize, e.Trials)
		for trial := first; trial < last; trial++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			pcg.Seed(e.Seed, stream*streamStride+uint64(trial))
			for i, a := range agents {
				obstacles[i].Path = sampler.Rollout(a.Initial)
			}
			res, err := collision.Check(ego, e.EgoFootprint, obstacles)
			if err != nil {
				return err
			}
			p.add(res)
		}
		partials[b] = p
	}
	return nil
}

// EstimateAll runs Estimate for each candidate trajectory, using the
// candidate index as its stream. Candidates never share trials.
func (e *Estimator) EstimateAll(ctx context.Context, candidates []kinematics.Trajectory, agents []kinematics.Agent) ([]Stats, error) {
	out := make([]Stats, len(candidates))
	for i, c := range candidates {
		s, err := e.Estimate(ctx, uint64(i), c, agents)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
