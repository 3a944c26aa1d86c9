package http

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// weakETag derives a weak validator from the first 8 bytes of the
// body's SHA-256 digest.
func weakETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

// ETagMiddleware tags successful GET responses with a weak ETag and
// answers 304 Not Modified when the client presents a matching
// If-None-Match header.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		resp := c.Response()
		if c.Method() != fiber.MethodGet || resp.StatusCode() != fiber.StatusOK || len(resp.Body()) == 0 {
			return nil
		}

		tag := weakETag(resp.Body())
		c.Set(fiber.HeaderETag, tag)

		if c.Get(fiber.HeaderIfNoneMatch) == tag {
			c.Status(fiber.StatusNotModified)
			resp.ResetBody()
		}
		return nil
	}
}
