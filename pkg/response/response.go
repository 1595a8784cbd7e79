package response

import "github.com/gofiber/fiber/v2"

// Generic messages for server-side failures
const (
	MsgProcessingFailed = "Error processing file"
	MsgInternalError    = "Internal server error"
	MsgRateLimited      = "Rate limit exceeded"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}

func ValidationError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, MsgRateLimited)
}

func ProcessingError(c *fiber.Ctx) error {
	return Error(c, fiber.StatusInternalServerError, MsgProcessingFailed)
}

func InternalError(c *fiber.Ctx) error {
	return Error(c, fiber.StatusInternalServerError, MsgInternalError)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}
