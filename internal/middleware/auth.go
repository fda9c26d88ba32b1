package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/healthsync/internal/models"
)

// UserLookup loads a registered user by id
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// LocalsUser is the fiber locals key holding the resolved *models.User
const LocalsUser = "user"

// RequireUser resolves the :userId route parameter to a registered user.
// Unknown users end the request through the error handler.
func RequireUser(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := users.GetUser(c.UserContext(), c.Params("userId"))
		if err != nil {
			return err
		}

		c.Locals(LocalsUser, user)

		return c.Next()
	}
}
