package scenario

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHighwayGenerate(t *testing.T) {
	h := DefaultHighway()
	scene, err := h.Generate(42)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if scene.Ego.Y != 3.5 || scene.Ego.V != 20 || scene.Ego.X != 0 {
		t.Errorf("ego = %+v, want middle lane at 20 m/s", scene.Ego)
	}
	if len(scene.Agents) != 6 {
		t.Fatalf("agents = %d, want 6", len(scene.Agents))
	}
	for _, a := range scene.Agents {
		if a.Initial.X < 20 || a.Initial.X > 80 {
			t.Errorf("%s: x = %v outside [20, 80]", a.ID, a.Initial.X)
		}
		if a.Initial.V < 15 || a.Initial.V > 25 {
			t.Errorf("%s: v = %v outside [15, 25]", a.ID, a.Initial.V)
		}
		switch a.Initial.Y {
		case 0, 3.5, 7.0:
		default:
			t.Errorf("%s: y = %v not a lane centre", a.ID, a.Initial.Y)
		}
		if a.Footprint.IsZero() {
			t.Errorf("%s: footprint unset", a.ID)
		}
	}
}

func TestHighwayReproducible(t *testing.T) {
	a, err := DefaultHighway().Generate(7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := DefaultHighway().Generate(7)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed differs (-a +b):\n%s", diff)
	}

	c, err := DefaultHighway().Generate(8)
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Equal(a, c) {
		t.Error("different seeds produced identical scenes")
	}
}

func TestHighwayValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Highway)
	}{
		{"no lanes", func(h *Highway) { h.Lanes = 0 }},
		{"zero width", func(h *Highway) { h.LaneWidth = 0 }},
		{"negative cars", func(h *Highway) { h.CarsPerLane = -1 }},
		{"empty gap", func(h *Highway) { h.GapMax = h.GapMin }},
		{"inverted speed", func(h *Highway) { h.SpeedMin, h.SpeedMax = 25, 15 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DefaultHighway()
			tt.mutate(&h)
			if _, err := h.Generate(1); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestForcedCollision(t *testing.T) {
	s := ForcedCollision()
	if len(s.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(s.Agents))
	}
	a := s.Agents[0].Initial
	if a.X != 20 || a.Y != 3.5 || a.V != 0 {
		t.Errorf("agent = %+v, want stopped at (20, 3.5)", a)
	}
	if s.Ego.V != 20 || s.Ego.Y != 3.5 {
		t.Errorf("ego = %+v", s.Ego)
	}
}

func TestLaneCentres(t *testing.T) {
	got := DefaultHighway()
	scene, _ := got.Generate(1)
	if diff := cmp.Diff([]float64{0, 3.5, 7.0}, scene.LaneCentres()); diff != "" {
		t.Errorf("LaneCentres mismatch (-want +got):\n%s", diff)
	}
}

func TestConstantSpeedPaths(t *testing.T) {
	s := ForcedCollision()
	paths := ConstantSpeedPaths(s.Agents, 0.1, 30)
	if len(paths) != 1 || paths[0].Len() != 30 {
		t.Fatalf("paths = %d, len %d", len(paths), paths[0].Len())
	}
	if paths[0].Last().X != 20 {
		t.Errorf("stopped agent moved to %v", paths[0].Last().X)
	}
}

func TestByName(t *testing.T) {
	if s, err := ByName("forced", 0); err != nil || s.Name != "forced" {
		t.Errorf("ByName(forced) = %v, %v", s.Name, err)
	}
	if s, err := ByName("random", 3); err != nil || len(s.Agents) != 6 {
		t.Errorf("ByName(random) = %d agents, %v", len(s.Agents), err)
	}
	if _, err := ByName("city", 0); err == nil {
		t.Error("ByName(city): expected error")
	}
}
