package scoring

import (
	"math"
	"sort"

	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/risk"
)

// Term names, as reported by Breakdown.TopContributors.
const (
	TermCollision = "collision"
	TermDistance  = "distance"
	TermComfort   = "comfort"
)

// Breakdown holds the weighted contribution of each cost term.
type Breakdown struct {
	Collision float64 `json:"collision"`
	Distance  float64 `json:"distance"`
	Comfort   float64 `json:"comfort"`
	Total     float64 `json:"total"`
	// ComfortCost is the raw, unweighted comfort cost.
	ComfortCost     float64  `json:"comfort_cost"`
	TopContributors []string `json:"top_contributors"`
}

// Explain computes the per-term contributions of a candidate's score.
func (p Policy) Explain(s risk.Stats, tr kinematics.Trajectory) Breakdown {
	comfort := ComfortCost(tr)
	b := Breakdown{
		Collision:   p.Weights.Collision * s.CollisionProb,
		Distance:    p.Weights.Distance / math.Max(s.AvgMinDistance, p.Epsilon),
		Comfort:     p.Weights.Comfort * comfort / p.ComfortScale,
		ComfortCost: comfort,
	}
	b.Total = b.Collision + b.Distance + b.Comfort
	b.TopContributors = topContributors(b, 3)
	return b
}

// topContributors returns up to n term names by descending contribution,
// skipping terms that contribute nothing.
func topContributors(b Breakdown, n int) []string {
	type entry struct {
		name string
		v    float64
	}
	entries := []entry{
		{TermCollision, b.Collision},
		{TermDistance, b.Distance},
		{TermComfort, b.Comfort},
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].v > entries[j].v
	})
	result := make([]string, 0, n)
	for _, e := range entries {
		if len(result) == n || !(e.v > 0) {
			break
		}
		result = append(result, e.name)
	}
	return result
}

// Delta returns the element-wise difference (b - other) of the weighted terms.
func (b Breakdown) Delta(other Breakdown) Breakdown {
	return Breakdown{
		Collision:   b.Collision - other.Collision,
		Distance:    b.Distance - other.Distance,
		Comfort:     b.Comfort - other.Comfort,
		Total:       b.Total - other.Total,
		ComfortCost: b.ComfortCost - other.ComfortCost,
	}
}
