package report

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/riskplan/internal/monitoring"
	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/scenario"
)

func init() {
	monitoring.SetLogger(nil)
}

func evaluate(t *testing.T, scene scenario.Scene) *planner.Result {
	t.Helper()
	s := planner.DefaultSettings()
	s.Samples = 20
	s.Seed = 7
	res, err := planner.Evaluate(context.Background(), s, scene.Ego, scene.Agents)
	require.NoError(t, err)
	return res
}

func TestWriteDashboard(t *testing.T) {
	scene, err := scenario.DefaultHighway().Generate(11)
	require.NoError(t, err)
	res := evaluate(t, scene)

	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := WriteDashboard(dir, scene, res, Options{Units: "kph"})
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, name := range []string{SpeedProfileFile, RiskFile, ScoresFile, TopDownFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestWriteDashboardNoAgents(t *testing.T) {
	scene := scenario.ForcedCollision()
	scene.Agents = nil
	res := evaluate(t, scene)
	require.True(t, math.IsInf(res.Risks[0].AvgMinDistance, 1))

	_, err := WriteDashboard(t.TempDir(), scene, res, Options{})
	assert.NoError(t, err)
}

func TestWriteDashboardEmptyResult(t *testing.T) {
	_, err := WriteDashboard(t.TempDir(), scenario.ForcedCollision(), &planner.Result{}, Options{})
	assert.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	scene := scenario.ForcedCollision()
	res := evaluate(t, scene)

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, scene, res, Options{}))
	out := buf.String()

	assert.True(t, strings.Contains(out, "<html"), "expected an html document")
	assert.Contains(t, out, "Score breakdown")
	assert.Contains(t, out, "Risk indicators")
	for _, c := range res.Candidates {
		assert.Contains(t, out, c.Name)
	}
}

func TestRenderHTMLInfiniteDistance(t *testing.T) {
	scene := scenario.ForcedCollision()
	scene.Agents = nil
	res := evaluate(t, scene)

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, scene, res, Options{}))
	assert.Contains(t, buf.String(), `"-"`)
}

func TestSplitBars(t *testing.T) {
	others, best := splitBars([]float64{1, 2, 3}, 1)
	assert.Equal(t, []float64{1, 0, 3}, []float64(others))
	assert.Equal(t, []float64{0, 2, 0}, []float64(best))
}

func TestFiniteOr(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.5, 1.5},
		{math.Inf(1), -1},
		{math.Inf(-1), -1},
		{math.NaN(), -1},
	}
	for _, tt := range tests {
		if got := finiteOr(tt.in, -1); got != tt.want {
			t.Errorf("finiteOr(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateColors(t *testing.T) {
	if got := generateColors(0); got != nil {
		t.Errorf("generateColors(0) = %v, want nil", got)
	}
	cs := generateColors(4)
	if len(cs) != 4 {
		t.Fatalf("len = %d, want 4", len(cs))
	}
	seen := map[string]bool{}
	for _, c := range cs {
		seen[hexColor(c)] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 distinct colours, got %v", seen)
	}
	assert.Equal(t, "#dc2828", hexColor(chosenColor))
}
