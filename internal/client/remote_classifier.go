package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voicecheck/api/internal/config"
	"github.com/voicecheck/api/internal/model"
)

// RemoteClassifier sends audio to an external inference service
type RemoteClassifier struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewRemoteClassifier creates a new inference service client
func NewRemoteClassifier(cfg *config.ClassifierConfig) *RemoteClassifier {
	return &RemoteClassifier{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.ServiceURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (c *RemoteClassifier) Name() string {
	return ProviderRemote
}

// Classify posts the raw audio to the /classify endpoint and parses the result
func (c *RemoteClassifier) Classify(ctx context.Context, audio []byte) (*model.ClassificationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result model.ClassificationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// HealthCheck checks if the classifier service is available
func (c *RemoteClassifier) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
