package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"shortly/internal/db"
)

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	db *db.DB
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(database *db.DB) *AuthMiddleware {
	return &AuthMiddleware{db: database}
}

// RequireAuth ensures the request carries an authenticated session and
// loads the account into the request locals.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": "Unauthorized"})
	}

	email, _ := sess.Get("user_email").(string)
	if email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": "Unauthorized"})
	}

	user, err := m.db.GetUserByEmail(c.Context(), email)
	if err != nil {
		sess.Destroy()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": "Unauthorized"})
	}

	c.Locals("user", user)
	return c.Next()
}
