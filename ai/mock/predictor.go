package mock

import (
	"sync"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
)

// MockPredictor is a test double for ai.Predictor.
type MockPredictor struct {
	// PredictFunc is called by Predict if set.
	// If nil, Predict returns Result.
	PredictFunc func(vector []float32) (core.Prediction, error)

	// Result is the default prediction.
	Result core.Prediction

	mu        sync.Mutex
	callCount int
}

var _ ai.Predictor = (*MockPredictor)(nil)

// NewMockPredictor creates a mock predictor that always returns result.
func NewMockPredictor(result core.Prediction) *MockPredictor {
	return &MockPredictor{Result: result}
}

// Predict returns the injected or default prediction.
func (m *MockPredictor) Predict(vector []float32) (core.Prediction, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.PredictFunc != nil {
		return m.PredictFunc(vector)
	}
	return m.Result, nil
}

// CallCount returns the number of Predict calls.
func (m *MockPredictor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
