package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SupportedMajorVersion is the only API major version served
const SupportedMajorVersion = "1"

// VersionMiddleware parses the X-Api-Version header, rejects unsupported majors,
// stores the version in context and echoes it on the response
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := strings.TrimPrefix(strings.TrimSpace(c.Get("X-Api-Version", "1.0.0")), "v")

		// Support version aliases
		switch version {
		case "1", "1.0":
			version = "1.0.0"
		}

		major, _, _ := strings.Cut(version, ".")
		if major != SupportedMajorVersion {
			return fiber.NewError(fiber.StatusBadRequest, "Unsupported API version "+version)
		}

		// Store version in context
		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}
