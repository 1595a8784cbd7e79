package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voicecheck/api/internal/model"
	"github.com/voicecheck/api/pkg/response"
)

const healthMessage = "Deepfake detection API is running"

// Health handles GET /health
func Health(c *fiber.Ctx) error {
	return response.OK(c, model.HealthResponse{
		Status:  "healthy",
		Message: healthMessage,
	})
}

// Root handles GET /
func Root(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"timestamp": time.Now().Unix(),
	})
}
