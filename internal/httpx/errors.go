package httpx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

const fallbackMessage = "Something went wrong"

// ErrorResponse is the JSON envelope returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler renders errors returned by handlers and middleware as
// {"error": "..."}. Logging is left to middleware.Audit.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := err.Error()

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}
		if message == "" {
			message = fallbackMessage
		}

		return c.Status(status).JSON(ErrorResponse{Error: message})
	}
}
