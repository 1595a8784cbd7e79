package client

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/voicecheck/api/internal/model"
)

const (
	messageDeepfake = "This voice appears to be AI-generated. The analysis detected patterns consistent with synthetic speech."
	messageGenuine  = "This voice appears to be from a genuine human. No synthetic patterns were detected."
)

// MockClassifier returns a random verdict after an artificial delay. It stands
// in for a real model until one is deployed behind RemoteClassifier.
type MockClassifier struct {
	delay time.Duration
	float func() float64
}

func NewMockClassifier(delay time.Duration) *MockClassifier {
	return &MockClassifier{
		delay: delay,
		float: rand.Float64,
	}
}

func (m *MockClassifier) Name() string {
	return ProviderMock
}

// Classify simulates inference latency, then flips a coin.
func (m *MockClassifier) Classify(ctx context.Context, audio []byte) (*model.ClassificationResult, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	isAI := m.float() < 0.5
	span := model.MaxConfidence - model.MinConfidence
	confidence := math.Round((model.MinConfidence+m.float()*span)*100) / 100

	message := messageGenuine
	if isAI {
		message = messageDeepfake
	}

	return &model.ClassificationResult{
		IsAI:       isAI,
		Confidence: confidence,
		Message:    message,
		Prediction: model.PredictionFor(isAI),
	}, nil
}
