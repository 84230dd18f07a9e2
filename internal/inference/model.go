package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// Model is the single capability the orchestrator sees: a synchronous
// prediction over a numeric feature vector. Callers never branch on the
// concrete variant behind it.
type Model interface {
	Predict(features []float64) (float64, error)
}

// linearModel is a weights-and-bias model loaded from a JSON file. The output
// is clamped to [0, 1], matching the probability range the API reports.
type linearModel struct {
	weights []float64
	bias    float64
}

func (m *linearModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.weights), len(features))
	}

	sum := m.bias
	for i, w := range m.weights {
		sum += w * features[i]
	}

	if sum < 0 {
		sum = 0
	} else if sum > 1 {
		sum = 1
	}
	return sum, nil
}

// stubModel is the deterministic fallback responder used when a tier's model
// resource cannot be loaded: 1 when the feature sum is non-negative, else 0.
type stubModel struct{}

func (stubModel) Predict(features []float64) (float64, error) {
	var sum float64
	for _, f := range features {
		sum += f
	}
	if sum >= 0 {
		return 1, nil
	}
	return 0, nil
}

// modelFile is the on-disk JSON format for a linear model
type modelFile struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// loadModel reads a linear model from the given path
func loadModel(path string) (Model, error) {
	if path == "" {
		return nil, fmt.Errorf("model path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
	}
	if len(mf.Weights) == 0 {
		return nil, fmt.Errorf("model file %s has no weights", path)
	}

	return &linearModel{weights: mf.Weights, bias: mf.Bias}, nil
}
