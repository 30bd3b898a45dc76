package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/scenario"
	"github.com/banshee-data/riskplan/internal/units"
)

// AssetsHost overrides where the echarts javascript is loaded from. Empty
// uses the go-echarts default CDN.
var AssetsHost = ""

// missing is how echarts marks a gap in a series.
const missing = "-"

func chartValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return v
}

func initOpts(title string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Width: "900px", Height: "480px", AssetsHost: AssetsHost}
}

// RenderHTML writes a self-contained echarts page for one evaluation: score
// breakdown, risk indicators, speed profiles and a top-down path view.
func RenderHTML(w io.Writer, scene scenario.Scene, res *planner.Result, o Options) error {
	if res == nil || len(res.Candidates) == 0 {
		return errNoCandidates
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("riskplan: %s", scene.Name)
	if AssetsHost != "" {
		page.SetAssetsHost(AssetsHost)
	}
	page.AddCharts(
		scoreChart(res),
		riskChart(res),
		speedChart(res, o),
		pathChart(scene, res),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// scoreChart stacks the weighted score terms so the total reads off the top
// of each bar.
func scoreChart(res *planner.Result) *charts.Bar {
	names := candidateNames(res)
	coll := make([]opts.BarData, len(names))
	dist := make([]opts.BarData, len(names))
	comf := make([]opts.BarData, len(names))
	for i, b := range res.Breakdowns {
		coll[i] = opts.BarData{Value: chartValue(b.Collision)}
		dist[i] = opts.BarData{Value: chartValue(b.Distance)}
		comf[i] = opts.BarData{Value: chartValue(b.Comfort)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Scores")),
		charts.WithTitleOpts(opts.Title{Title: "Score breakdown", Subtitle: fmt.Sprintf("chosen=%s seed=%d samples=%d", res.BestName, res.Seed, res.Samples)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
	)
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "score"})
	bar.SetXAxis(names).
		AddSeries("collision", coll, stack).
		AddSeries("distance", dist, stack).
		AddSeries("comfort", comf, stack)
	return bar
}

func riskChart(res *planner.Result) *charts.Bar {
	names := candidateNames(res)
	prob := make([]opts.BarData, len(names))
	avg := make([]opts.BarData, len(names))
	worst := make([]opts.BarData, len(names))
	for i, s := range res.Risks {
		item := opts.BarData{Value: chartValue(s.CollisionProb)}
		if i == res.BestIndex {
			item.ItemStyle = &opts.ItemStyle{Color: hexColor(chosenColor)}
		}
		prob[i] = item
		avg[i] = opts.BarData{Value: chartValue(s.AvgMinDistance)}
		worst[i] = opts.BarData{Value: chartValue(s.WorstMinDistance)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Risk")),
		charts.WithTitleOpts(opts.Title{Title: "Risk indicators", Subtitle: "collision probability and minimum distance (m)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
	)
	bar.SetXAxis(names).
		AddSeries("P(collision)", prob, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("avg min distance", avg).
		AddSeries("worst min distance", worst)
	return bar
}

func speedChart(res *planner.Result, o Options) *charts.Line {
	best := res.Candidates[res.BestIndex].Trajectory
	ts := timeAxis(best)
	x := make([]string, len(ts))
	for i, t := range ts {
		x[i] = strconv.FormatFloat(t, 'f', 1, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Speed")),
		charts.WithTitleOpts(opts.Title{Title: "Speed profile"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Label(o.Units)}),
	)
	line.SetXAxis(x)
	for i, c := range res.Candidates {
		speeds := c.Trajectory.Speeds()
		data := make([]opts.LineData, len(speeds))
		for k, v := range speeds {
			data[k] = opts.LineData{Value: units.ConvertSpeed(v, o.Units)}
		}
		width := 1
		if i == res.BestIndex {
			width = 3
		}
		line.AddSeries(c.Name, data, charts.WithLineStyleOpts(opts.LineStyle{Width: float32(width)}))
	}
	return line
}

// pathChart plots candidate paths and agent start positions in world
// coordinates.
func pathChart(scene scenario.Scene, res *planner.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Paths")),
		charts.WithTitleOpts(opts.Title{Title: "Top-down view", Subtitle: fmt.Sprintf("%d agents, %d lanes", len(scene.Agents), scene.Lanes)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "x (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "y (m)"}),
	)

	for i, c := range res.Candidates {
		xs, ys := c.Trajectory.Positions()
		data := make([]opts.LineData, 0, len(xs)+1)
		data = append(data, opts.LineData{Value: []any{scene.Ego.X, scene.Ego.Y}})
		for k := range xs {
			data = append(data, opts.LineData{Value: []any{xs[k], ys[k]}})
		}
		width := float32(1)
		if i == res.BestIndex {
			width = 3
		}
		line.AddSeries(c.Name, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: width}),
		)
	}

	agents := make([]opts.LineData, len(scene.Agents))
	for i, a := range scene.Agents {
		agents[i] = opts.LineData{Value: []any{a.Initial.X, a.Initial.Y}, Name: a.ID}
	}
	line.AddSeries("agents", agents,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 0}),
	)
	return line
}
