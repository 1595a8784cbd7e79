package client

import (
	"context"
	"fmt"
	"time"

	"github.com/voicecheck/api/internal/config"
	"github.com/voicecheck/api/internal/model"
)

// ClassificationProvider decides whether an audio sample is AI-generated.
type ClassificationProvider interface {
	// Classify inspects the raw bytes of an uploaded audio file.
	Classify(ctx context.Context, audio []byte) (*model.ClassificationResult, error)
	// Name identifies the provider in logs.
	Name() string
}

// Provider names accepted by classifier.provider
const (
	ProviderMock   = "mock"
	ProviderRemote = "remote"
)

// NewClassifier builds the provider selected in configuration.
func NewClassifier(cfg *config.ClassifierConfig) (ClassificationProvider, error) {
	switch cfg.Provider {
	case ProviderMock, "":
		return NewMockClassifier(time.Duration(cfg.DelayMs) * time.Millisecond), nil
	case ProviderRemote:
		if cfg.ServiceURL == "" {
			return nil, fmt.Errorf("classifier service URL is required for the remote provider")
		}
		return NewRemoteClassifier(cfg), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider: %q", cfg.Provider)
	}
}
