package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultPlannerConfig(t *testing.T) {
	cfg := DefaultPlannerConfig()

	if cfg.DT == nil || *cfg.DT != 0.1 {
		t.Errorf("Expected DT 0.1, got %v", cfg.DT)
	}
	if cfg.Samples == nil || *cfg.Samples != 100 {
		t.Errorf("Expected Samples 100, got %v", cfg.Samples)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	p, d, c := cfg.GetWeights()
	if p != 1.0 || d != 0.5 || c != 0.1 {
		t.Errorf("GetWeights() = (%v, %v, %v), want (1.0, 0.5, 0.1)", p, d, c)
	}
	if got := cfg.GetManeuvers(); len(got) != 4 || got[0] != "keep_lane" {
		t.Errorf("GetManeuvers() = %v", got)
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := EmptyPlannerConfig()

	if cfg.GetDT() != DefaultDT {
		t.Errorf("GetDT() = %v, want %v", cfg.GetDT(), DefaultDT)
	}
	if cfg.GetHorizon() != DefaultHorizon {
		t.Errorf("GetHorizon() = %v", cfg.GetHorizon())
	}
	if cfg.GetSamples() != DefaultSamples {
		t.Errorf("GetSamples() = %d", cfg.GetSamples())
	}
	if cfg.GetWorkers() != 0 {
		t.Errorf("GetWorkers() = %d", cfg.GetWorkers())
	}
	if _, ok := cfg.GetSeed(); ok {
		t.Error("GetSeed() reported a seed on empty config")
	}
	if cfg.GetTimeBudget() != 0 {
		t.Errorf("GetTimeBudget() = %v", cfg.GetTimeBudget())
	}
	if cfg.GetLaneWidth() != DefaultLaneWidth {
		t.Errorf("GetLaneWidth() = %v", cfg.GetLaneWidth())
	}
	if cfg.GetBrakeDecel() != DefaultBrakeDecel {
		t.Errorf("GetBrakeDecel() = %v", cfg.GetBrakeDecel())
	}
	if got := cfg.GetAccelDistribution(); len(got) != 3 || got[1].Prob != 0.6 {
		t.Errorf("GetAccelDistribution() = %v", got)
	}
	if fp := cfg.GetEgoFootprint(); fp.Width != 2.0 || fp.Length != 4.5 {
		t.Errorf("GetEgoFootprint() = %+v", fp)
	}
	if fp := cfg.GetAgentFootprint(); fp.Width != 2.0 || fp.Length != 4.5 {
		t.Errorf("GetAgentFootprint() = %+v", fp)
	}
	if cfg.GetDistanceEpsilon() != 1e-3 || cfg.GetComfortScale() != 10 {
		t.Errorf("eps/scale = %v/%v", cfg.GetDistanceEpsilon(), cfg.GetComfortScale())
	}
}

func TestGetManeuversReturnsCopy(t *testing.T) {
	cfg := &PlannerConfig{Maneuvers: []string{"brake"}}
	got := cfg.GetManeuvers()
	got[0] = "keep_lane"
	if cfg.Maneuvers[0] != "brake" {
		t.Error("GetManeuvers leaked its backing slice")
	}
}

func TestLoadPlannerConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "planner.json")

	testJSON := `{
  "dt": 0.05,
  "horizon": 4.0,
  "n_samples": 250,
  "seed": 18446744073709551615,
  "time_budget": "200ms",
  "weights": {"p": 2.0},
  "maneuvers": ["keep_lane", "brake"]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadPlannerConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetDT() != 0.05 {
		t.Errorf("GetDT() = %v, want 0.05", cfg.GetDT())
	}
	if cfg.GetSamples() != 250 {
		t.Errorf("GetSamples() = %d, want 250", cfg.GetSamples())
	}
	if seed, ok := cfg.GetSeed(); !ok || seed != ^uint64(0) {
		t.Errorf("GetSeed() = %d, %v", seed, ok)
	}
	if cfg.GetTimeBudget() != 200*time.Millisecond {
		t.Errorf("GetTimeBudget() = %v", cfg.GetTimeBudget())
	}
	// Partial weights keep defaults for the others.
	p, d, c := cfg.GetWeights()
	if p != 2.0 || d != 0.5 || c != 0.1 {
		t.Errorf("GetWeights() = (%v, %v, %v), want (2.0, 0.5, 0.1)", p, d, c)
	}
	if got := cfg.GetManeuvers(); len(got) != 2 {
		t.Errorf("GetManeuvers() = %v", got)
	}
	if cfg.GetLaneWidth() != DefaultLaneWidth {
		t.Errorf("omitted lane_width = %v, want default", cfg.GetLaneWidth())
	}
}

func TestLoadPlannerConfigMissing(t *testing.T) {
	_, err := LoadPlannerConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadPlannerConfigWrongExtension(t *testing.T) {
	_, err := LoadPlannerConfig("planner.yaml")
	if err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("Expected extension error, got %v", err)
	}
}

func TestLoadPlannerConfigTooLarge(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(configPath, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	_, err := LoadPlannerConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestLoadPlannerConfigInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(configPath, []byte(`{"dt": "fast"`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	if _, err := LoadPlannerConfig(configPath); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	f := ptrFloat64
	tests := []struct {
		name    string
		cfg     PlannerConfig
		wantErr string
	}{
		{"empty", PlannerConfig{}, ""},
		{"zero dt", PlannerConfig{DT: f(0)}, "dt"},
		{"negative horizon", PlannerConfig{Horizon: f(-1)}, "horizon"},
		{"zero samples", PlannerConfig{Samples: ptrInt(0)}, "n_samples"},
		{"too many samples", PlannerConfig{Samples: ptrInt(MaxSamples + 1)}, "n_samples"},
		{"max samples", PlannerConfig{Samples: ptrInt(MaxSamples)}, ""},
		{"no hold outcome", PlannerConfig{AccelDistribution: []AccelOutcome{{Accel: -2, Prob: 0.5}, {Accel: 1, Prob: 0.5}}}, "accel_distribution"},
		{"no brake outcome", PlannerConfig{AccelDistribution: []AccelOutcome{{Accel: 0, Prob: 0.7}, {Accel: 1, Prob: 0.3}}}, "accel_distribution"},
		{"brake favoured", PlannerConfig{AccelDistribution: []AccelOutcome{{Accel: -2, Prob: 0.5}, {Accel: 0, Prob: 0.3}, {Accel: 1, Prob: 0.2}}}, "accel_distribution"},
		{"tied with hold", PlannerConfig{AccelDistribution: []AccelOutcome{{Accel: -2, Prob: 0.4}, {Accel: 0, Prob: 0.4}, {Accel: 1, Prob: 0.2}}}, "accel_distribution"},
		{"nan accel", PlannerConfig{AccelDistribution: []AccelOutcome{{Accel: math.NaN(), Prob: 0.2}, {Accel: 0, Prob: 0.6}, {Accel: 1, Prob: 0.2}}}, "accel_distribution[0]"},
		{"five outcomes", PlannerConfig{AccelDistribution: []AccelOutcome{{Accel: -3, Prob: 0.1}, {Accel: -1, Prob: 0.15}, {Accel: 0, Prob: 0.5}, {Accel: 0.5, Prob: 0.15}, {Accel: 1, Prob: 0.1}}}, ""},
		{"negative workers", PlannerConfig{Workers: ptrInt(-2)}, "workers"},
		{"bad budget", PlannerConfig{TimeBudget: ptrString("soon")}, "time_budget"},
		{"negative budget", PlannerConfig{TimeBudget: ptrString("-1s")}, "time_budget"},
		{"zero lane width", PlannerConfig{LaneWidth: f(0)}, "lane_width"},
		{"positive brake", PlannerConfig{BrakeDecel: f(1)}, "brake_decel"},
		{"negative weight", PlannerConfig{Weights: &WeightsConfig{Distance: f(-0.5)}}, "weight d"},
		{"zero epsilon", PlannerConfig{DistanceEpsilon: f(0)}, "distance_epsilon"},
		{"zero scale", PlannerConfig{ComfortScale: f(0)}, "comfort_scale"},
		{"flat ego", PlannerConfig{EgoFootprint: &FootprintConfig{Width: 0, Length: 4}}, "ego_footprint"},
		{"flat agent", PlannerConfig{AgentFootprint: &FootprintConfig{Width: 2, Length: -4}}, "agent_footprint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetSamples() != DefaultSamples {
		t.Errorf("defaults file n_samples = %d, want %d", cfg.GetSamples(), DefaultSamples)
	}
	def := DefaultPlannerConfig()
	if cfg.GetHorizon() != def.GetHorizon() || cfg.GetDT() != def.GetDT() {
		t.Error("defaults file disagrees with DefaultPlannerConfig")
	}
}
