// Package mlmodel scores embeddings with an offline-trained linear classifier.
//
// The model is a multinomial logistic regression exported as JSON:
//
//	{"labels": ["reg_e", "udap", ...], "weights": [[...], ...], "bias": [...]}
//
// weights holds one row per label, each as long as the embedding. A two-label model may
// carry a single row, in which case it is scored as a binary model where the row
// describes the second label.
package mlmodel

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
)

// LinearModel is an immutable, concurrency-safe linear classifier.
type LinearModel struct {
	labels  []core.FraudType
	weights [][]float64
	bias    []float64
	binary  bool
}

var _ ai.Predictor = (*LinearModel)(nil)

type modelFile struct {
	Labels  []string    `json:"labels"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// Load reads a model from a JSON weights file.
func Load(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a model from JSON.
func Parse(data []byte) (*LinearModel, error) {
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	return New(f.Labels, f.Weights, f.Bias)
}

// New builds a model from its parameters. The slices are copied.
func New(labels []string, weights [][]float64, bias []float64) (*LinearModel, error) {
	if len(labels) < 2 {
		return nil, fmt.Errorf("%w: need at least two labels, got %d", ErrInvalidModel, len(labels))
	}
	binary := len(labels) == 2 && len(weights) == 1
	if !binary && len(weights) != len(labels) {
		return nil, fmt.Errorf("%w: %d weight rows for %d labels", ErrInvalidModel, len(weights), len(labels))
	}
	if len(bias) != len(weights) {
		return nil, fmt.Errorf("%w: %d bias terms for %d weight rows", ErrInvalidModel, len(bias), len(weights))
	}

	dims := len(weights[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: empty weight row", ErrInvalidModel)
	}
	m := &LinearModel{
		labels:  make([]core.FraudType, len(labels)),
		weights: make([][]float64, len(weights)),
		bias:    append([]float64(nil), bias...),
		binary:  binary,
	}
	seen := make(map[string]bool, len(labels))
	for i, l := range labels {
		if l == "" || seen[l] {
			return nil, fmt.Errorf("%w: empty or duplicate label %q", ErrInvalidModel, l)
		}
		seen[l] = true
		m.labels[i] = core.FraudType(l)
	}
	for i, row := range weights {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: weight row %d has %d columns, want %d", ErrInvalidModel, i, len(row), dims)
		}
		m.weights[i] = append([]float64(nil), row...)
	}
	return m, nil
}

// Labels returns the class labels in model order.
func (m *LinearModel) Labels() []core.FraudType {
	return append([]core.FraudType(nil), m.labels...)
}

// Dimensions returns the embedding length the model expects.
func (m *LinearModel) Dimensions() int {
	return len(m.weights[0])
}

// Probabilities returns the class probabilities for vector, in label order.
func (m *LinearModel) Probabilities(vector []float32) ([]float64, error) {
	if err := core.CheckDimensions(vector, m.Dimensions()); err != nil {
		return nil, err
	}

	logits := make([]float64, len(m.weights))
	for i, row := range m.weights {
		z := m.bias[i]
		for j, w := range row {
			z += w * float64(vector[j])
		}
		logits[i] = z
	}

	if m.binary {
		p := sigmoid(logits[0])
		return []float64{1 - p, p}, nil
	}
	return softmax(logits), nil
}

// Predict returns the most probable label and its probability.
// Ties go to the label listed first.
func (m *LinearModel) Predict(vector []float32) (core.Prediction, error) {
	probs, err := m.Probabilities(vector)
	if err != nil {
		return core.Prediction{}, err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return core.Prediction{Category: m.labels[best], Confidence: probs[best]}, nil
}

func softmax(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, z := range logits {
		peak = max(peak, z)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, z := range logits {
		out[i] = math.Exp(z - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
