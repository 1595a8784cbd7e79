package model

import "time"

// Confidence bounds for a classification result
const (
	MinConfidence = 0.70
	MaxConfidence = 0.95
)

// UploadedAudio describes the file part of an analyze request
type UploadedAudio struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
}

// ClassificationResult is produced once per request by a classification provider
type ClassificationResult struct {
	IsAI       bool       `json:"isAI"`
	Confidence float64    `json:"confidence" validate:"gte=0.7,lte=0.95"`
	Message    string     `json:"message" validate:"required"`
	Prediction Prediction `json:"prediction" validate:"required,oneof=Deepfake Genuine"`
}

// Consistent reports whether the prediction label mirrors the verdict.
func (r *ClassificationResult) Consistent() bool {
	return r.Prediction == PredictionFor(r.IsAI)
}

// AnalyzeResponse represents the response body of POST /analyze
type AnalyzeResponse struct {
	ClassificationResult
	Filename string `json:"filename"`
}

// HealthResponse represents the response body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AnalysisEvent is published to live feed subscribers after each completed analysis
type AnalysisEvent struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	Prediction Prediction `json:"prediction"`
	Confidence float64    `json:"confidence"`
	AnalyzedAt time.Time  `json:"analyzedAt"`
}
