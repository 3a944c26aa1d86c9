package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware emits one structured log line per request with
// method, path, status, latency, response size and request ID.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		// Capture before Next: handlers may rewrite the path.
		method := c.Method()
		path := c.Path()
		requestID := c.Get(fiber.HeaderXRequestID, "unknown")

		err := c.Next()

		status := c.Response().StatusCode()
		logger := slog.With(
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("request_id", requestID),
		)
		if err != nil {
			logger = logger.With(slog.String("error", err.Error()))
		}

		switch {
		case err != nil || status >= 500:
			logger.Error(method + " " + path)
		case status >= 400:
			logger.Warn(method + " " + path)
		default:
			logger.Info(method + " " + path)
		}

		return err
	}
}
