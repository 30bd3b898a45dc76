package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// SummaryHeader is the column order of the CSV summary export. One row is
// written per candidate.
var SummaryHeader = []string{
	"run_id", "timestamp", "seed", "ego_x0", "ego_y0", "ego_v0", "n_other",
	"horizon_s", "dt_s", "traj_id", "traj_type", "collision_prob",
	"avg_min_distance", "worst_min_distance", "score", "chosen", "notes",
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ExportCSV writes the summary rows of the given runs, or of every run when
// runIDs is empty, oldest first.
func (s *Store) ExportCSV(w io.Writer, runIDs ...string) error {
	var runs []*Run
	if len(runIDs) == 0 {
		all, err := s.List(0)
		if err != nil {
			return err
		}
		for i := len(all) - 1; i >= 0; i-- {
			runs = append(runs, all[i])
		}
	} else {
		for _, id := range runIDs {
			r, err := s.Get(id)
			if err != nil {
				return err
			}
			runs = append(runs, r)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, r := range runs {
		cands, err := s.Candidates(r.RunID)
		if err != nil {
			return err
		}
		ts := r.CreatedTime().Format(time.RFC3339Nano)
		for _, c := range cands {
			chosen := "0"
			if c.Chosen {
				chosen = "1"
			}
			rec := []string{
				r.RunID, ts, strconv.FormatUint(r.Seed, 10),
				formatFloat(r.EgoX0), formatFloat(r.EgoY0), formatFloat(r.EgoV0),
				strconv.Itoa(r.NumOther), formatFloat(r.HorizonS), formatFloat(r.DTS),
				strconv.Itoa(c.TrajID), c.TrajType, formatFloat(c.CollisionProb),
				formatFloat(c.AvgMinDistance), formatFloat(c.WorstMinDistance),
				formatFloat(c.Score), chosen, r.Notes,
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write run %s: %w", r.RunID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
