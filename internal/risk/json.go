package risk

import (
	"encoding/json"
	"math"
)

// statsJSON mirrors Stats with nullable distances: JSON has no infinity,
// and a scene without agents has infinite clearance.
type statsJSON struct {
	CollisionProb     float64  `json:"collision_prob"`
	AvgMinDistance    *float64 `json:"avg_min_distance"`
	WorstMinDistance  *float64 `json:"worst_min_distance"`
	MinDistanceStdDev float64  `json:"min_distance_stddev"`
	Collisions        int      `json:"collisions"`
	Trials            int      `json:"trials"`
	MeanCollisionStep float64  `json:"mean_collision_step"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilAsInf(p *float64) float64 {
	if p == nil {
		return math.Inf(1)
	}
	return *p
}

// MarshalJSON encodes infinite distances as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		CollisionProb:     s.CollisionProb,
		AvgMinDistance:    finiteOrNil(s.AvgMinDistance),
		WorstMinDistance:  finiteOrNil(s.WorstMinDistance),
		MinDistanceStdDev: s.MinDistanceStdDev,
		Collisions:        s.Collisions,
		Trials:            s.Trials,
		MeanCollisionStep: s.MeanCollisionStep,
	})
}

// UnmarshalJSON decodes null distances as +Inf.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw statsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Stats{
		CollisionProb:     raw.CollisionProb,
		AvgMinDistance:    nilAsInf(raw.AvgMinDistance),
		WorstMinDistance:  nilAsInf(raw.WorstMinDistance),
		MinDistanceStdDev: raw.MinDistanceStdDev,
		Collisions:        raw.Collisions,
		Trials:            raw.Trials,
		MeanCollisionStep: raw.MeanCollisionStep,
	}
	return nil
}
