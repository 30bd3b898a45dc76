package planserver

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/scenario"
)

// EvaluateRequest asks for one evaluation. Either Scene is given explicitly
// or Scenario names a built-in scene generated from the seed.
type EvaluateRequest struct {
	Scenario string          `json:"scenario,omitempty"`
	Scene    *scenario.Scene `json:"scene,omitempty"`
	// Seed is a decimal uint64. Empty keeps the server's configured seed.
	Seed    string `json:"seed,omitempty"`
	Samples int    `json:"n_samples,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// EvaluateResponse carries the evaluated scene and its result. RunID is set
// when the server persists runs.
type EvaluateResponse struct {
	RunID  string          `json:"run_id,omitempty"`
	Scene  scenario.Scene  `json:"scene"`
	Result *planner.Result `json:"result"`
}

// toStruct converts v to a protobuf Struct through its JSON form, so the
// wire shape matches the HTTP and run-log encodings.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("convert %T to struct: %w", v, err)
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("empty message")
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("convert struct: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}
