// Package report renders an evaluated scene as static PNG plots and as an
// interactive HTML page.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/riskplan/internal/kinematics"
	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/scenario"
	"github.com/banshee-data/riskplan/internal/units"
)

// Dashboard file names written by WriteDashboard.
const (
	SpeedProfileFile = "speed_profile.png"
	RiskFile         = "risk.png"
	ScoresFile       = "scores.png"
	TopDownFile      = "topdown.png"
)

// Options controls presentation only.
type Options struct {
	// Units is the speed display unit (see package units). Empty means m/s.
	Units string
}

var errNoCandidates = errors.New("result has no candidates")

// WriteDashboard writes the four dashboard plots into dir, creating it if
// needed, and returns the paths written.
func WriteDashboard(dir string, scene scenario.Scene, res *planner.Result, o Options) ([]string, error) {
	if res == nil || len(res.Candidates) == 0 {
		return nil, errNoCandidates
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	builders := []struct {
		file  string
		build func(scenario.Scene, *planner.Result, Options) (*plot.Plot, error)
	}{
		{SpeedProfileFile, speedProfilePlot},
		{RiskFile, riskPlot},
		{ScoresFile, scoresPlot},
		{TopDownFile, topDownPlot},
	}

	var written []string
	for _, b := range builders {
		p, err := b.build(scene, res, o)
		if err != nil {
			return written, fmt.Errorf("%s: %w", b.file, err)
		}
		path := filepath.Join(dir, b.file)
		if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
			return written, fmt.Errorf("save %s: %w", b.file, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func timeAxis(tr kinematics.Trajectory) []float64 {
	ts := make([]float64, tr.Len())
	for i := range ts {
		ts[i] = float64(i+1) * tr.DT()
	}
	return ts
}

func legendTopRight(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// speedProfilePlot draws every candidate's speed over the horizon with the
// chosen one emphasised.
func speedProfilePlot(_ scenario.Scene, res *planner.Result, o Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Speed profile (chosen: %s)", res.BestName)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = fmt.Sprintf("Speed (%s)", units.Label(o.Units))
	p.Add(plotter.NewGrid())

	colors := generateColors(len(res.Candidates))
	for i, c := range res.Candidates {
		ts := timeAxis(c.Trajectory)
		speeds := c.Trajectory.Speeds()
		pts := make(plotter.XYs, len(speeds))
		for k, v := range speeds {
			pts[k] = plotter.XY{X: ts[k], Y: units.ConvertSpeed(v, o.Units)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		if i == res.BestIndex {
			line.Color = chosenColor
			line.Width = vg.Points(2.5)
		}
		p.Add(line)
		p.Legend.Add(c.Name, line)
	}
	legendTopRight(p)
	return p, nil
}

// splitBars returns two value sets of equal length: one holding every
// candidate except chosen, the other only chosen. Drawn over each other they
// give a single bar series with the chosen bar highlighted.
func splitBars(values []float64, chosen int) (others, best plotter.Values) {
	others = make(plotter.Values, len(values))
	best = make(plotter.Values, len(values))
	for i, v := range values {
		if i == chosen {
			best[i] = v
		} else {
			others[i] = v
		}
	}
	return others, best
}

func highlightedBars(p *plot.Plot, values []float64, chosen int) error {
	others, best := splitBars(values, chosen)
	w := vg.Points(30)

	ob, err := plotter.NewBarChart(others, w)
	if err != nil {
		return err
	}
	ob.Color = otherColor
	ob.LineStyle.Width = vg.Length(0)

	bb, err := plotter.NewBarChart(best, w)
	if err != nil {
		return err
	}
	bb.Color = chosenColor
	bb.LineStyle.Width = vg.Length(0)

	p.Add(ob, bb)
	p.Legend.Add("candidate", ob)
	p.Legend.Add("chosen", bb)
	return nil
}

func candidateNames(res *planner.Result) []string {
	names := make([]string, len(res.Candidates))
	for i, c := range res.Candidates {
		names[i] = c.Name
	}
	return names
}

// riskPlot shows collision probability per candidate. The chosen
// candidate's average minimum distance goes in the title when finite.
func riskPlot(_ scenario.Scene, res *planner.Result, _ Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Collision probability"
	p.Y.Label.Text = "P(collision)"
	p.Y.Min = 0
	p.Y.Max = 1

	probs := make([]float64, len(res.Risks))
	for i, s := range res.Risks {
		probs[i] = finiteOr(s.CollisionProb, 0)
	}
	if err := highlightedBars(p, probs, res.BestIndex); err != nil {
		return nil, err
	}
	p.NominalX(candidateNames(res)...)

	best := res.Risks[res.BestIndex]
	if d := best.AvgMinDistance; finiteOr(d, -1) >= 0 {
		p.Title.Text += fmt.Sprintf(" (chosen avg min distance %.1f m)", d)
	}
	legendTopRight(p)
	return p, nil
}

// scoresPlot compares total scores; lower is better.
func scoresPlot(_ scenario.Scene, res *planner.Result, _ Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Score (lower is better)"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0

	scores := make([]float64, len(res.Scores))
	for i, s := range res.Scores {
		scores[i] = finiteOr(s, 0)
	}
	if err := highlightedBars(p, scores, res.BestIndex); err != nil {
		return nil, err
	}
	p.NominalX(candidateNames(res)...)
	legendTopRight(p)
	return p, nil
}

func footprintPolygon(s kinematics.State, fp kinematics.Footprint, c color.Color) (*plotter.Polygon, error) {
	hl, hw := fp.HalfLength(), fp.HalfWidth()
	poly, err := plotter.NewPolygon(plotter.XYs{
		{X: s.X - hl, Y: s.Y - hw},
		{X: s.X + hl, Y: s.Y - hw},
		{X: s.X + hl, Y: s.Y + hw},
		{X: s.X - hl, Y: s.Y + hw},
	})
	if err != nil {
		return nil, err
	}
	poly.Color = c
	poly.LineStyle.Width = vg.Points(0.5)
	return poly, nil
}

// topDownPlot is a bird's-eye snapshot at t=0: lane boundaries, agent and
// ego footprints, the agents' constant-speed paths and every candidate path.
func topDownPlot(scene scenario.Scene, res *planner.Result, _ Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top-down view: %s", scene.Name)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	best := res.Candidates[res.BestIndex].Trajectory
	xMin, xMax := scene.Ego.X-10, scene.Ego.X+10
	for _, c := range res.Candidates {
		xs, _ := c.Trajectory.Positions()
		for _, x := range xs {
			xMin, xMax = min(xMin, x), max(xMax, x)
		}
	}
	for _, a := range scene.Agents {
		xMin, xMax = min(xMin, a.Initial.X-10), max(xMax, a.Initial.X+10)
	}

	half := scene.LaneWidth / 2
	for _, c := range scene.LaneCentres() {
		for _, y := range []float64{c - half, c + half} {
			l, err := plotter.NewLine(plotter.XYs{{X: xMin, Y: y}, {X: xMax, Y: y}})
			if err != nil {
				return nil, err
			}
			l.Color = laneColor
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			p.Add(l)
		}
	}

	for i, path := range scenario.ConstantSpeedPaths(scene.Agents, best.DT(), best.Len()) {
		a := scene.Agents[i]
		fp := a.Footprint
		if fp.IsZero() {
			fp = kinematics.DefaultFootprint()
		}
		poly, err := footprintPolygon(a.Initial, fp, agentColor)
		if err != nil {
			return nil, err
		}
		xs, ys := path.Positions()
		pts := make(plotter.XYs, len(xs))
		for k := range xs {
			pts[k] = plotter.XY{X: xs[k], Y: ys[k]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = agentColor
		l.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(poly, l)
		if i == 0 {
			p.Legend.Add("agents", poly)
		}
	}

	ego, err := footprintPolygon(scene.Ego, kinematics.DefaultFootprint(), egoColor)
	if err != nil {
		return nil, err
	}
	p.Add(ego)
	p.Legend.Add("ego", ego)

	colors := generateColors(len(res.Candidates))
	for i, c := range res.Candidates {
		xs, ys := c.Trajectory.Positions()
		pts := make(plotter.XYs, len(xs)+1)
		pts[0] = plotter.XY{X: scene.Ego.X, Y: scene.Ego.Y}
		for k := range xs {
			pts[k+1] = plotter.XY{X: xs[k], Y: ys[k]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = colors[i]
		l.Width = vg.Points(1)
		if i == res.BestIndex {
			l.Color = chosenColor
			l.Width = vg.Points(2.5)
		}
		p.Add(l)
		p.Legend.Add(c.Name, l)
	}

	p.X.Min, p.X.Max = xMin, xMax
	legendTopRight(p)
	return p, nil
}
