package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"

	"shortly/internal/codec"
	"shortly/internal/db"
	"shortly/internal/metrics"
	"shortly/internal/models"
)

// RedirectHandler resolves public identifiers to destinations, enforcing
// the password gate and click accounting.
type RedirectHandler struct {
	db *db.DB
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(database *db.DB) *RedirectHandler {
	return &RedirectHandler{db: database}
}

// lookup decodes an identifier and loads the matching short-URL link.
// Decoded values below the reserved floor were never allocated and are
// rejected without touching the store.
func (h *RedirectHandler) lookup(c fiber.Ctx, identifier string) (*models.Link, error) {
	index, err := codec.Decode(identifier)
	if err != nil || index < models.ReservedIndexFloor {
		return nil, codec.ErrInvalidIdentifier
	}
	return h.db.GetLinkByIndexAndKind(c.Context(), index, models.KindShortURL)
}

// Resolve turns a public identifier into its destination. Password-protected
// links yield a password-required response that never contains the
// destination; clicks are only counted once the destination is released.
func (h *RedirectHandler) Resolve(c fiber.Ctx) error {
	identifier := c.Query("index")
	if identifier == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing Link")
	}

	link, err := h.lookup(c, identifier)
	if err != nil {
		switch {
		case errors.Is(err, codec.ErrInvalidIdentifier):
			metrics.ResolveOutcomes.WithLabelValues("invalid").Inc()
			return jsonError(c, fiber.StatusBadRequest, "Invalid Link")
		case errors.Is(err, db.ErrLinkNotFound):
			metrics.ResolveOutcomes.WithLabelValues("not_found").Inc()
			return jsonError(c, fiber.StatusNotFound, "URL not found")
		default:
			metrics.ResolveOutcomes.WithLabelValues("error").Inc()
			return storeError(c, err)
		}
	}

	if link.IsPasswordProtected {
		metrics.ResolveOutcomes.WithLabelValues("password_required").Inc()
		return c.JSON(fiber.Map{"url": models.ResolveResponse{
			Identifier:       identifier,
			PasswordRequired: true,
			Title:            link.Title,
		}})
	}

	clicks, err := h.db.IncrementClicks(c.Context(), link.ID)
	if err != nil {
		metrics.ResolveOutcomes.WithLabelValues("error").Inc()
		return storeError(c, err)
	}
	link.Clicks = clicks

	metrics.ResolveOutcomes.WithLabelValues("ok").Inc()
	return c.JSON(fiber.Map{"url": models.ResolveResponse{
		Identifier:       identifier,
		OriginalURL:      link.OriginalURL,
		PasswordRequired: false,
		Title:            link.Title,
	}})
}

// VerifyPassword releases a protected link's destination on an exact
// password match. A mismatch reveals nothing beyond the mismatch itself,
// and the click is only counted on success.
func (h *RedirectHandler) VerifyPassword(c fiber.Ctx) error {
	var body struct {
		Index    string `json:"index"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Index == "" || body.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "msg": "Missing data"})
	}

	link, err := h.lookup(c, body.Index)
	if err != nil {
		switch {
		case errors.Is(err, codec.ErrInvalidIdentifier):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "msg": "Invalid Link"})
		case errors.Is(err, db.ErrLinkNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "msg": "URL not found"})
		default:
			return storeError(c, err)
		}
	}

	if link.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(body.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "msg": "Incorrect password"})
	}

	if _, err := h.db.IncrementClicks(c.Context(), link.ID); err != nil {
		return storeError(c, err)
	}

	metrics.ResolveOutcomes.WithLabelValues("ok").Inc()
	return c.JSON(models.VerifyPasswordResponse{
		Success:     true,
		OriginalURL: link.OriginalURL,
	})
}
