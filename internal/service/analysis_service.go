package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voicecheck/api/internal/client"
	"github.com/voicecheck/api/internal/config"
	"github.com/voicecheck/api/internal/model"
	"github.com/voicecheck/api/internal/storage"
)

const mib = 1024 * 1024

// EventPublisher receives completed analyses, e.g. the live feed hub.
type EventPublisher interface {
	Publish(event model.AnalysisEvent)
}

// AnalysisService validates uploads, stages them and relays the classifier verdict
type AnalysisService struct {
	scratch   *storage.Scratch
	provider  client.ClassificationProvider
	publisher EventPublisher
	validator *validator.Validate

	maxSize    int64
	extensions []string
	allowed    map[string]bool
}

// NewAnalysisService creates the service. publisher may be nil.
func NewAnalysisService(cfg *config.UploadConfig, scratch *storage.Scratch, provider client.ClassificationProvider, publisher EventPublisher, v *validator.Validate) *AnalysisService {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &AnalysisService{
		scratch:    scratch,
		provider:   provider,
		publisher:  publisher,
		validator:  v,
		maxSize:    cfg.MaxSize,
		extensions: cfg.AllowedExtensions,
		allowed:    allowed,
	}
}

// Validate checks an upload's name and measured size. Checks run in a fixed
// order and stop at the first failure.
func (s *AnalysisService) Validate(filename string, size int64) (*model.UploadedAudio, error) {
	if filename == "" {
		return nil, invalidUpload("No file selected")
	}

	ext, ok := s.extension(filename)
	if !ok {
		return nil, invalidUpload("Unsupported file type. Only %s files are allowed", strings.Join(s.extensions, ", "))
	}

	if size > s.maxSize {
		return nil, &InvalidUploadError{Reason: FileTooLargeReason(s.maxSize)}
	}

	if size <= 0 {
		return nil, invalidUpload("File is empty")
	}

	return &model.UploadedAudio{
		Filename:  filename,
		Size:      size,
		Extension: ext,
	}, nil
}

// Analyze stages the upload, classifies it and removes the staged copy
// before returning, whatever the outcome.
func (s *AnalysisService) Analyze(ctx context.Context, audio *model.UploadedAudio, src io.Reader) (*model.AnalyzeResponse, error) {
	name := stagingName(audio.Filename, audio.Extension)

	staged, err := s.scratch.Stage(name, src)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, &InvalidUploadError{Reason: FileTooLargeReason(s.maxSize)}
		}
		return nil, &ProcessingError{Op: "stage", Err: err}
	}
	log.Printf("File saved to: %s", staged.Path)

	defer func() {
		if err := staged.Release(); err != nil {
			log.Printf("Error cleaning up file %s: %v", staged.Path, err)
			return
		}
		log.Printf("Cleaned up temporary file: %s", staged.Path)
	}()

	data, err := staged.ReadAll()
	if err != nil {
		return nil, &ProcessingError{Op: "read", Err: err}
	}

	result, err := s.provider.Classify(ctx, data)
	if err != nil {
		return nil, &ProcessingError{Op: "classify", Err: err}
	}

	if err := s.verify(result); err != nil {
		return nil, &ProcessingError{Op: "verify", Err: err}
	}

	log.Printf("Analysis complete: %s (confidence: %.2f, provider: %s)", result.Prediction, result.Confidence, s.provider.Name())

	if s.publisher != nil {
		s.publisher.Publish(model.AnalysisEvent{
			ID:         uuid.New().String(),
			Filename:   name,
			Prediction: result.Prediction,
			Confidence: result.Confidence,
			AnalyzedAt: time.Now().UTC(),
		})
	}

	return &model.AnalyzeResponse{
		ClassificationResult: *result,
		Filename:             name,
	}, nil
}

// verify rejects provider output that breaks the response contract
func (s *AnalysisService) verify(result *model.ClassificationResult) error {
	if result == nil {
		return errors.New("provider returned no result")
	}
	if err := s.validator.Struct(result); err != nil {
		return fmt.Errorf("invalid classification result: %w", err)
	}
	if !result.Consistent() {
		return fmt.Errorf("prediction %q does not match isAI=%t", result.Prediction, result.IsAI)
	}
	return nil
}

func (s *AnalysisService) extension(filename string) (string, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", false
	}
	ext := strings.ToLower(filename[idx+1:])
	return ext, s.allowed[ext]
}

// FileTooLargeReason is the rejection reason for uploads over maxSize.
func FileTooLargeReason(maxSize int64) string {
	return "File too large. Maximum size is " + formatSize(maxSize)
}

func formatSize(n int64) string {
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
