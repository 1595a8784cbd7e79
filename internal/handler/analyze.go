package handler

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voicecheck/api/internal/metrics"
	"github.com/voicecheck/api/internal/model"
	"github.com/voicecheck/api/internal/service"
	"github.com/voicecheck/api/pkg/response"
)

// audioField is the multipart field carrying the uploaded file
const audioField = "audio"

type AnalyzeHandler struct {
	service *service.AnalysisService
	metrics *metrics.Metrics
}

// NewAnalyzeHandler creates the handler. m may be nil.
func NewAnalyzeHandler(svc *service.AnalysisService, m *metrics.Metrics) *AnalyzeHandler {
	return &AnalyzeHandler{
		service: svc,
		metrics: m,
	}
}

// Analyze handles POST /analyze
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	log.Println("Received analyze request")

	form, err := c.MultipartForm()
	if err != nil {
		return h.reject(c, "No audio file provided")
	}

	files := form.File[audioField]
	if len(files) == 0 {
		// A file input submitted without a selection arrives as a plain value
		if _, ok := form.Value[audioField]; ok {
			return h.reject(c, "No file selected")
		}
		return h.reject(c, "No audio file provided")
	}
	if len(files) > 1 {
		return h.reject(c, "Only one audio file may be submitted per request")
	}

	file := files[0]
	log.Printf("Received file: %s", file.Filename)

	f, err := file.Open()
	if err != nil {
		return h.fail(c, &service.ProcessingError{Op: "open", Err: err})
	}
	defer f.Close()

	size, err := measureSize(f)
	if err != nil {
		return h.fail(c, &service.ProcessingError{Op: "measure", Err: err})
	}

	audio, err := h.service.Validate(file.Filename, size)
	if err != nil {
		return h.fail(c, err)
	}

	start := time.Now()
	result, err := h.service.Analyze(c.Context(), audio, f)
	if err != nil {
		return h.fail(c, err)
	}

	h.metrics.ObserveResult(result.Prediction, time.Since(start))
	h.metrics.ObserveOutcome(model.OutcomeSuccess)

	return response.OK(c, result)
}

func (h *AnalyzeHandler) reject(c *fiber.Ctx, reason string) error {
	return h.fail(c, &service.InvalidUploadError{Reason: reason})
}

// fail maps service errors onto responses. Anything unrecognised is passed
// to the app error handler as an internal fault.
func (h *AnalyzeHandler) fail(c *fiber.Ctx, err error) error {
	var invalid *service.InvalidUploadError
	var processing *service.ProcessingError

	switch {
	case errors.As(err, &invalid):
		log.Printf("File validation failed: %s", invalid.Reason)
		h.metrics.ObserveOutcome(model.OutcomeRejected)
		return response.ValidationError(c, invalid.Reason)
	case errors.As(err, &processing):
		log.Printf("Error processing file: %v", processing)
		h.metrics.ObserveOutcome(model.OutcomeError)
		return response.ProcessingError(c)
	default:
		h.metrics.ObserveOutcome(model.OutcomeError)
		return err
	}
}

// measureSize seeks to the end of the upload and back to find its length
func measureSize(f io.Seeker) (int64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
