package nnet

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelConfig is the JSON sidecar shipped next to each model file. It
// describes how to feed the model and how to read its output.
type ModelConfig struct {
	// InputWidth and InputHeight are the model input dimensions.
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`

	// ConfidenceThreshold filters decoded detections (0-1).
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// Labels maps class ids to display names.
	Labels []string `json:"labels"`

	// Family names the decode family ("detection" is the only one the
	// demo draws; other families pass results to the OnNn callback raw).
	Family string `json:"family"`
}

// LoadModelConfig reads and validates a model sidecar.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config %s: %w", path, err)
	}

	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, fmt.Errorf("model config %s: invalid input size %dx%d",
			path, cfg.InputWidth, cfg.InputHeight)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("model config %s: confidence threshold %.2f out of range",
			path, cfg.ConfidenceThreshold)
	}
	if cfg.Family == "" {
		cfg.Family = "detection"
	}
	return &cfg, nil
}

// LabelName returns the display name for a class id, falling back to
// the numeric id for models without a label map.
func (m *ModelConfig) LabelName(id int) string {
	if id >= 0 && id < len(m.Labels) {
		return m.Labels[id]
	}
	return fmt.Sprintf("%d", id)
}
