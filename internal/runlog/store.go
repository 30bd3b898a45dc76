// Package runlog persists planner evaluations to sqlite.
//
// Each evaluation is one plan_runs row (scene summary, chosen plan and a
// JSON detail blob holding the full scene and result) plus one
// plan_candidates row per candidate. The schema is managed by embedded
// golang-migrate migrations applied on Open.
package runlog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/scenario"
	"github.com/banshee-data/riskplan/internal/timeutil"
	"github.com/banshee-data/riskplan/internal/version"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

// Run is the summary of one evaluation.
type Run struct {
	RunID          string          `json:"run_id"`
	CreatedAt      int64           `json:"created_at"` // unix nanoseconds
	Scenario       string          `json:"scenario"`
	Seed           uint64          `json:"seed,string"`
	EgoX0          float64         `json:"ego_x0"`
	EgoY0          float64         `json:"ego_y0"`
	EgoV0          float64         `json:"ego_v0"`
	NumOther       int             `json:"n_other"`
	HorizonS       float64         `json:"horizon_s"`
	DTS            float64         `json:"dt_s"`
	Samples        int             `json:"n_samples"`
	BestIndex      int             `json:"best_index"`
	BestName       string          `json:"best_name"`
	ElapsedNanos   int64           `json:"elapsed_ns"`
	PlannerVersion string          `json:"planner_version"`
	Notes          string          `json:"notes"`
	DetailJSON     json.RawMessage `json:"detail_json,omitempty"`
}

// Candidate is the per-candidate statistics row. Distances are +Inf when
// the scene had no agents.
type Candidate struct {
	RunID             string  `json:"run_id"`
	TrajID            int     `json:"traj_id"`
	TrajType          string  `json:"traj_type"`
	CollisionProb     float64 `json:"collision_prob"`
	AvgMinDistance    float64 `json:"avg_min_distance"`
	WorstMinDistance  float64 `json:"worst_min_distance"`
	MinDistanceStdDev float64 `json:"min_distance_stddev"`
	MeanCollisionStep float64 `json:"mean_collision_step"`
	ComfortCost       float64 `json:"comfort_cost"`
	Score             float64 `json:"score"`
	Chosen            bool    `json:"chosen"`
}

// Detail is the full record kept in detail_json.
type Detail struct {
	Scene  scenario.Scene  `json:"scene"`
	Result *planner.Result `json:"result"`
}

// Store is a sqlite-backed run log.
type Store struct {
	db    *sql.DB
	path  string
	clock timeutil.Clock
}

// Open opens (creating if needed) the sqlite database at path and brings the
// schema up to date. Use ":memory:" for a throwaway log.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	s := &Store{db: db, path: path, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used to stamp new runs.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// DB exposes the underlying handle for admin tooling.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database path given to Open.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// nullIfInf maps non-finite values to SQL NULL.
func nullIfInf(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func infIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.Inf(1)
	}
	return v.Float64
}

// Record builds a run from an evaluated scene and inserts it. It returns the
// stored run with its generated ID.
func (s *Store) Record(scene scenario.Scene, res *planner.Result, notes string) (*Run, error) {
	detail, err := json.Marshal(Detail{Scene: scene, Result: res})
	if err != nil {
		return nil, fmt.Errorf("encode detail: %w", err)
	}
	run := &Run{
		Scenario:       scene.Name,
		Seed:           res.Seed,
		EgoX0:          scene.Ego.X,
		EgoY0:          scene.Ego.Y,
		EgoV0:          scene.Ego.V,
		NumOther:       len(scene.Agents),
		HorizonS:       res.Horizon,
		DTS:            res.DT,
		Samples:        res.Samples,
		BestIndex:      res.BestIndex,
		BestName:       res.BestName,
		ElapsedNanos:   int64(res.Elapsed),
		PlannerVersion: version.Version,
		Notes:          notes,
		DetailJSON:     detail,
	}
	cands := make([]Candidate, len(res.Candidates))
	for i, c := range res.Candidates {
		r := res.Risks[i]
		cands[i] = Candidate{
			TrajID:            c.Index,
			TrajType:          c.Name,
			CollisionProb:     r.CollisionProb,
			AvgMinDistance:    r.AvgMinDistance,
			WorstMinDistance:  r.WorstMinDistance,
			MinDistanceStdDev: r.MinDistanceStdDev,
			MeanCollisionStep: r.MeanCollisionStep,
			ComfortCost:       res.Breakdowns[i].ComfortCost,
			Score:             res.Scores[i],
			Chosen:            i == res.BestIndex,
		}
	}
	if err := s.Insert(run, cands); err != nil {
		return nil, err
	}
	return run, nil
}

// Insert persists a run and its candidates in one transaction. An empty
// RunID gets a UUID and a zero CreatedAt gets the current time.
func (s *Store) Insert(run *Run, cands []Candidate) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	var detail interface{}
	if len(run.DetailJSON) > 0 {
		detail = string(run.DetailJSON)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// seed is stored bit-for-bit: sqlite integers are signed.
	_, err = tx.Exec(`
		INSERT INTO plan_runs (
			run_id, created_at, scenario, seed, ego_x0, ego_y0, ego_v0,
			n_other, horizon_s, dt_s, n_samples, best_index, best_name,
			elapsed_ns, planner_version, notes, detail_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt, run.Scenario, int64(run.Seed), run.EgoX0, run.EgoY0, run.EgoV0,
		run.NumOther, run.HorizonS, run.DTS, run.Samples, run.BestIndex, run.BestName,
		run.ElapsedNanos, run.PlannerVersion, run.Notes, detail,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i := range cands {
		c := &cands[i]
		c.RunID = run.RunID
		_, err = tx.Exec(`
			INSERT INTO plan_candidates (
				run_id, traj_id, traj_type, collision_prob, avg_min_distance,
				worst_min_distance, min_distance_stddev, mean_collision_step,
				comfort_cost, score, chosen
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.RunID, c.TrajID, c.TrajType, c.CollisionProb, nullIfInf(c.AvgMinDistance),
			nullIfInf(c.WorstMinDistance), c.MinDistanceStdDev, c.MeanCollisionStep,
			c.ComfortCost, c.Score, c.Chosen,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %d: %w", c.TrajID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `run_id, created_at, scenario, seed, ego_x0, ego_y0, ego_v0,
	n_other, horizon_s, dt_s, n_samples, best_index, best_name,
	elapsed_ns, planner_version, notes, detail_json`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var seed int64
	var detail sql.NullString
	err := row.Scan(
		&r.RunID, &r.CreatedAt, &r.Scenario, &seed, &r.EgoX0, &r.EgoY0, &r.EgoV0,
		&r.NumOther, &r.HorizonS, &r.DTS, &r.Samples, &r.BestIndex, &r.BestName,
		&r.ElapsedNanos, &r.PlannerVersion, &r.Notes, &detail,
	)
	if err != nil {
		return nil, err
	}
	r.Seed = uint64(seed)
	if detail.Valid {
		r.DetailJSON = json.RawMessage(detail.String)
	}
	return &r, nil
}

// Get returns one run by ID.
func (s *Store) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM plan_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM plan_runs ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Candidates returns a run's candidate rows in candidate order.
func (s *Store) Candidates(runID string) ([]Candidate, error) {
	rows, err := s.db.Query(`
		SELECT run_id, traj_id, traj_type, collision_prob, avg_min_distance,
		       worst_min_distance, min_distance_stddev, mean_collision_step,
		       comfort_cost, score, chosen
		FROM plan_candidates
		WHERE run_id = ?
		ORDER BY traj_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var avg, worst sql.NullFloat64
		if err := rows.Scan(
			&c.RunID, &c.TrajID, &c.TrajType, &c.CollisionProb, &avg,
			&worst, &c.MinDistanceStdDev, &c.MeanCollisionStep,
			&c.ComfortCost, &c.Score, &c.Chosen,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		c.AvgMinDistance = infIfNull(avg)
		c.WorstMinDistance = infIfNull(worst)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Detail decodes the stored scene and result of a run.
func (s *Store) Detail(runID string) (*Detail, error) {
	r, err := s.Get(runID)
	if err != nil {
		return nil, err
	}
	if len(r.DetailJSON) == 0 {
		return nil, fmt.Errorf("run %s has no detail", runID)
	}
	var d Detail
	if err := json.Unmarshal(r.DetailJSON, &d); err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	return &d, nil
}

// Delete removes a run and its candidates.
func (s *Store) Delete(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM plan_candidates WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete candidates: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM plan_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return tx.Commit()
}

// CreatedTime converts CreatedAt to a UTC time.
func (r *Run) CreatedTime() time.Time {
	return time.Unix(0, r.CreatedAt).UTC()
}
