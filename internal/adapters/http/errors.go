package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`  // bad_request, not_found, upstream_error, ...
	Error     string `json:"error"` // Human-readable message
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code, message string, details any) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Error:     message,
		Details:   details,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg, nil)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg, nil)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg, nil)
}

// errorStatus maps a service error to an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecases.ErrEmptyPrompt),
		errors.Is(err, usecases.ErrEmptyCode),
		errors.Is(err, usecases.ErrInvalidBorderQuery):
		return fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, usecases.ErrRegionNotFound):
		return fiber.StatusNotFound, "region_not_found"
	case errors.Is(err, usecases.ErrSessionNotFound):
		return fiber.StatusNotFound, "session_not_found"
	case errors.Is(err, usecases.ErrNoSharedBorder):
		return fiber.StatusUnprocessableEntity, "no_shared_border"
	case errors.Is(err, usecases.ErrBufferNotPolygon):
		return fiber.StatusUnprocessableEntity, "buffer_not_polygon"
	case errors.Is(err, usecases.ErrInvalidGeneration):
		return fiber.StatusBadGateway, "invalid_generation"
	case errors.Is(err, usecases.ErrUpstream):
		return fiber.StatusBadGateway, "upstream_error"
	case errors.Is(err, domain.ErrExecutionTimeout):
		return fiber.StatusGatewayTimeout, "execution_timeout"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// errService writes the response for an error returned by a usecase.
// Server-side failures are logged with the request logger.
func errService(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)

	var details any
	var de *usecases.DetailError
	if errors.As(err, &de) {
		details = de.Details
	}

	if status >= fiber.StatusInternalServerError {
		LoggerFromCtx(c.UserContext()).Error("request failed",
			slog.String("path", c.Path()),
			slog.String("code", code),
			slog.Any("error", err))
	}
	return newError(c, status, code, err.Error(), details)
}
