package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/voicecheck/api/internal/service"
	"github.com/voicecheck/api/pkg/response"
)

// NewErrorHandler renders errors that escape a handler, including recovered
// panics, as {"error": "..."}. Bodies rejected by the transport size limit
// are reported as an invalid upload.
func NewErrorHandler(maxUploadSize int64) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			if e.Code == fiber.StatusRequestEntityTooLarge {
				return response.ValidationError(c, service.FileTooLargeReason(maxUploadSize))
			}
			return response.Error(c, e.Code, e.Message)
		}

		log.Printf("Unexpected error: %v", err)
		return response.InternalError(c)
	}
}
