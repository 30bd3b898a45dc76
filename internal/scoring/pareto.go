package scoring

import (
	"math"
	"sort"
)

// Objectives are the raw per-candidate quantities traded off by the score.
type Objectives struct {
	CollisionProb  float64 `json:"collision_prob"`
	AvgMinDistance float64 `json:"avg_min_distance"`
	ComfortCost    float64 `json:"comfort_cost"`
}

// dominates reports whether a is at least as good as b in every objective
// and strictly better in one. Probability and comfort are minimised,
// distance maximised.
func dominates(a, b Objectives) bool {
	if a.CollisionProb > b.CollisionProb || a.AvgMinDistance < b.AvgMinDistance || a.ComfortCost > b.ComfortCost {
		return false
	}
	return a.CollisionProb < b.CollisionProb || a.AvgMinDistance > b.AvgMinDistance || a.ComfortCost < b.ComfortCost
}

// ParetoFrontier returns the indices of non-dominated candidates in
// ascending order. Identical candidates are all kept.
func ParetoFrontier(objs []Objectives) []int {
	var front []int
	for i := range objs {
		dominated := false
		for j := range objs {
			if i != j && dominates(objs[j], objs[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, i)
		}
	}
	return front
}

// Rank returns candidate indices ordered by ascending score. Equal scores
// keep index order and NaN sorts last.
func Rank(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	key := func(i int) float64 {
		if math.IsNaN(scores[i]) {
			return math.Inf(1)
		}
		return scores[i]
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key(idx[a]) < key(idx[b])
	})
	return idx
}
