package serverutils

import (
	"errors"

	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error returned by a handler to its HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError
	var jobErr *service.JobInvocationError
	var storeErr *service.StoreError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr), errors.Is(err, service.ErrInvalidSource):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrSourceNotFound), errors.Is(err, service.ErrNotebookNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &jobErr):
		return fiber.StatusBadGateway
	case errors.As(err, &storeErr):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		fields := map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"error":  err.Error(),
		}
		// Upstream and store errors carry driver and job output; keep it in
		// the log only.
		switch code {
		case fiber.StatusBadGateway:
			log.Error("HTTP", "Generation job failed", fields)
			message = "Generation job failed"
		case fiber.StatusServiceUnavailable:
			log.Error("HTTP", "Store unavailable", fields)
			message = "Service temporarily unavailable"
		case fiber.StatusInternalServerError:
			log.Error("HTTP", "Unhandled error", fields)
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
