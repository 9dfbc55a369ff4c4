package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// NewOwnerMiddleware resolves the acting user from the X-User-ID header set
// by the edge proxy. Authentication itself happens upstream.
func NewOwnerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-ID")
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID header",
			})
		}

		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid X-User-ID header",
			})
		}

		c.Locals("ownerID", ownerID)

		return c.Next()
	}
}

// OwnerID reads the id stored by NewOwnerMiddleware.
func OwnerID(c *fiber.Ctx) (int64, bool) {
	ownerID, ok := c.Locals("ownerID").(int64)
	return ownerID, ok
}
