package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		// Wallet and tickets are per-user, never shared
		case strings.HasPrefix(path, "/v1/wallet") || strings.HasPrefix(path, "/v1/tickets"):
			ttl = "private, no-store"

		case strings.HasPrefix(path, "/v1/routes/plan"):
			ttl = "public, max-age=300" // 5 min for planning queries

		case strings.HasPrefix(path, "/v1/bus-stops/nearby"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/bus-schedules"):
			ttl = "public, max-age=600" // Timetables change rarely

		case strings.HasPrefix(path, "/v1/routes"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300" // 5 min default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
