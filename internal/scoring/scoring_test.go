package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/risk"
)

func speedProfile(vs ...float64) kinematics.Trajectory {
	states := make([]kinematics.State, len(vs))
	for i, v := range vs {
		states[i] = kinematics.State{V: v}
	}
	return kinematics.NewTrajectory(0.1, states)
}

func TestComfortCost(t *testing.T) {
	tests := []struct {
		name string
		tr   kinematics.Trajectory
		want float64
	}{
		{"constant", speedProfile(20, 20, 20), 0},
		{"braking", speedProfile(20, 19.8, 19.6), 0.4},
		{"up and down", speedProfile(10, 12, 9), 5},
		{"single sample", speedProfile(5), 0},
		{"empty", kinematics.Trajectory{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComfortCost(tt.tr); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComfortCost = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreFormula(t *testing.T) {
	p := DefaultPolicy()
	s := risk.Stats{CollisionProb: 0.25, AvgMinDistance: 5}
	tr := speedProfile(20, 19, 18)

	// 1.0*0.25 + 0.5/5 + 0.1*2/10
	want := 0.25 + 0.1 + 0.02
	if got := p.Score(s, tr); math.Abs(got-want) > 1e-12 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScoreDistanceFloor(t *testing.T) {
	p := DefaultPolicy()
	got := p.Score(risk.Stats{AvgMinDistance: 0}, speedProfile(1))
	if math.Abs(got-500) > 1e-9 {
		t.Errorf("Score with zero distance = %v, want 0.5/1e-3 = 500", got)
	}
}

func TestScoreInfiniteDistanceContributesNothing(t *testing.T) {
	p := DefaultPolicy()
	got := p.Score(risk.Stats{AvgMinDistance: math.Inf(1)}, speedProfile(1, 1))
	if got != 0 {
		t.Errorf("Score = %v, want 0", got)
	}
}

func TestZeroWeightsSelectFirst(t *testing.T) {
	p := Policy{Epsilon: DefaultEpsilon, ComfortScale: DefaultComfortScale}
	trajs := []kinematics.Trajectory{speedProfile(20, 10), speedProfile(20, 20), speedProfile(5, 0)}
	stats := []risk.Stats{
		{CollisionProb: 1, AvgMinDistance: 0.5},
		{CollisionProb: 0, AvgMinDistance: 50},
		{CollisionProb: 0.5, AvgMinDistance: 2},
	}

	best, scores, err := p.Select(trajs, stats)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i, s := range scores {
		if s != 0 {
			t.Errorf("scores[%d] = %v, want 0", i, s)
		}
	}
	if best != 0 {
		t.Errorf("best = %d, want 0", best)
	}
}

func TestSelectPrefersSafeCandidate(t *testing.T) {
	p := DefaultPolicy()
	trajs := []kinematics.Trajectory{speedProfile(20, 20), speedProfile(20, 19.8)}
	stats := []risk.Stats{
		{CollisionProb: 1, AvgMinDistance: 3},
		{CollisionProb: 0, AvgMinDistance: 12},
	}
	best, scores, err := p.Select(trajs, stats)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if best != 1 {
		t.Errorf("best = %d (scores %v), want 1", best, scores)
	}
	for i, s := range scores {
		if s < scores[best] {
			t.Errorf("scores[%d] = %v below chosen %v", i, s, scores[best])
		}
	}
}

func TestScoreAllShapeMismatch(t *testing.T) {
	_, err := DefaultPolicy().ScoreAll([]kinematics.Trajectory{speedProfile(1)}, nil)
	if !errors.Is(err, kinematics.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestArgMin(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		scores []float64
		want   int
	}{
		{"empty", nil, -1},
		{"single", []float64{3}, 0},
		{"tie takes first", []float64{2, 1, 1, 3}, 1},
		{"all equal", []float64{0, 0, 0, 0}, 0},
		{"NaN loses", []float64{nan, 5, nan}, 1},
		{"all NaN", []float64{nan, nan}, 0},
		{"infinities", []float64{math.Inf(1), 7}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArgMin(tt.scores); got != tt.want {
				t.Errorf("ArgMin(%v) = %d, want %d", tt.scores, got, tt.want)
			}
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{"default", func(*Policy) {}, false},
		{"zero weights", func(p *Policy) { p.Weights = Weights{} }, false},
		{"negative weight", func(p *Policy) { p.Weights.Distance = -1 }, true},
		{"NaN weight", func(p *Policy) { p.Weights.Collision = math.NaN() }, true},
		{"infinite weight", func(p *Policy) { p.Weights.Comfort = math.Inf(1) }, true},
		{"zero epsilon", func(p *Policy) { p.Epsilon = 0 }, true},
		{"zero scale", func(p *Policy) { p.ComfortScale = 0 }, true},
		{"NaN scale", func(p *Policy) { p.ComfortScale = math.NaN() }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("error %v does not wrap ErrInvalidPolicy", err)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	b := DefaultPolicy().Explain(risk.Stats{CollisionProb: 0.8, AvgMinDistance: 10}, speedProfile(20, 18))
	want := Breakdown{
		Collision:       0.8,
		Distance:        0.05,
		Comfort:         0.02,
		Total:           0.87,
		ComfortCost:     2,
		TopContributors: []string{TermCollision, TermDistance, TermComfort},
	}
	if diff := cmp.Diff(want, b, cmpFloat()); diff != "" {
		t.Errorf("Explain mismatch (-want +got):\n%s", diff)
	}
}

func TestExplainSkipsZeroTerms(t *testing.T) {
	b := DefaultPolicy().Explain(risk.Stats{AvgMinDistance: math.Inf(1)}, speedProfile(20, 20))
	if len(b.TopContributors) != 0 {
		t.Errorf("TopContributors = %v, want none", b.TopContributors)
	}
}

func TestBreakdownDelta(t *testing.T) {
	a := Breakdown{Collision: 1, Distance: 0.5, Comfort: 0.1, Total: 1.6}
	b := Breakdown{Collision: 0.25, Distance: 0.5, Comfort: 0.2, Total: 0.95}
	d := a.Delta(b)
	if diff := cmp.Diff(Breakdown{Collision: 0.75, Comfort: -0.1, Total: 0.65}, d, cmpFloat()); diff != "" {
		t.Errorf("Delta mismatch (-want +got):\n%s", diff)
	}
}

func TestParetoFrontier(t *testing.T) {
	objs := []Objectives{
		{CollisionProb: 1.0, AvgMinDistance: 4, ComfortCost: 0},  // keep: least comfort cost
		{CollisionProb: 0.2, AvgMinDistance: 8, ComfortCost: 6},  // brake
		{CollisionProb: 0.0, AvgMinDistance: 9, ComfortCost: 0},  // dominates keep and brake
		{CollisionProb: 0.0, AvgMinDistance: 9, ComfortCost: 0},  // duplicate of 2
		{CollisionProb: 0.5, AvgMinDistance: 20, ComfortCost: 3}, // farthest
	}
	got := ParetoFrontier(objs)
	if diff := cmp.Diff([]int{2, 3, 4}, got); diff != "" {
		t.Errorf("ParetoFrontier mismatch (-want +got):\n%s", diff)
	}
}

func TestRank(t *testing.T) {
	got := Rank([]float64{0.5, math.NaN(), 0.1, 0.5, 0.2})
	if diff := cmp.Diff([]int{2, 4, 0, 3, 1}, got); diff != "" {
		t.Errorf("Rank mismatch (-want +got):\n%s", diff)
	}
}

func cmpFloat() cmp.Option {
	return cmp.Comparer(func(a, b float64) bool {
		return math.Abs(a-b) < 1e-9
	})
}
