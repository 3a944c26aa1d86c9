package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/karabomaleka/tshwanebus/internal/core/domain"
	"github.com/karabomaleka/tshwanebus/internal/pkg/metrics"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errPaymentRequired returns a 402 error for insufficient wallet balance.
func errPaymentRequired(c *fiber.Ctx, msg string) error {
	return newError(c, 402, "insufficient_balance", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errValidation returns a 422 error.
func errValidation(c *fiber.Ctx, msg string) error {
	return newError(c, 422, "validation_failed", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// domainError maps domain sentinels to their HTTP responses. Internal error
// detail is only surfaced in debug mode.
func domainError(c *fiber.Ctx, debug bool, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		metrics.InsufficientBalance.Inc()
		return errPaymentRequired(c, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrValidation):
		return errValidation(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return errUnauthorized(c, "invalid or expired token")
	}
	if debug {
		return errInternal(c, err.Error())
	}
	return errInternal(c, "internal server error")
}
