package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/karabomaleka/tshwanebus/internal/core/ports"
)

const userIDKey = "user_id"

// AuthMiddleware resolves the Bearer token to a user ID and stores it in
// request locals. Requests without a valid token get a 401.
func AuthMiddleware(auth ports.AuthProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return errUnauthorized(c, "missing Authorization header")
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return errUnauthorized(c, "Authorization header must be a Bearer token")
		}

		userID, err := auth.UserIDForToken(c.Context(), token)
		if err != nil {
			return errUnauthorized(c, "invalid or expired token")
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user ID set by AuthMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
