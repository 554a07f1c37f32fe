// Package handlers implements the JSON API surface.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"shortly/internal/db"
	"shortly/internal/models"
)

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"msg": message,
	})
}

// storeError maps persistence failures onto the response taxonomy:
// transient store problems are 503 and safe for the client to retry,
// anything else is a plain 500.
func storeError(c fiber.Ctx, err error) error {
	if errors.Is(err, db.ErrStoreUnavailable) {
		return jsonError(c, fiber.StatusServiceUnavailable, "Temporarily unavailable, please retry")
	}
	return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
}

// currentUser returns the authenticated user placed in the request locals
// by the auth middleware.
func currentUser(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok
}
