package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"shortly/internal/db"
	"shortly/internal/models"
	"shortly/internal/validation"
)

// HealthHandler serves the liveness probe and on-demand destination checks.
type HealthHandler struct {
	db     *db.DB
	client *http.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(database *db.DB) *HealthHandler {
	return &HealthHandler{
		db: database,
		client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
	}
}

// Healthz reports whether the service and its database are reachable.
func (h *HealthHandler) Healthz(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Pool.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// CheckLink performs an on-demand destination check for one of the caller's
// links and records the outcome.
func (h *HealthHandler) CheckLink(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	linkID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid link ID")
	}

	link, err := h.db.GetLinkByID(c.Context(), linkID)
	if err != nil {
		if errors.Is(err, db.ErrLinkNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Link not found")
		}
		return storeError(c, err)
	}
	if !link.OwnedBy(user.ID) {
		return jsonError(c, fiber.StatusForbidden, "You do not have permission")
	}

	status, errorMsg := h.checkURL(c.Context(), link.OriginalURL)
	if err := h.db.UpdateLinkHealthStatus(c.Context(), link.ID, status, errorMsg); err != nil {
		return storeError(c, err)
	}

	link.HealthStatus = status
	now := time.Now()
	link.HealthCheckedAt = &now
	link.HealthError = errorMsg

	return c.JSON(fiber.Map{"result": link})
}

// checkURL performs a HEAD request to check if a destination is reachable.
func (h *HealthHandler) checkURL(ctx context.Context, url string) (string, *string) {
	if valid, msg := validation.ValidateURLForHealthCheck(url); !valid {
		return models.HealthUnhealthy, &msg
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		errMsg := "invalid URL: " + err.Error()
		return models.HealthUnhealthy, &errMsg
	}

	req.Header.Set("User-Agent", "Shortly-HealthChecker/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		errMsg := "connection failed: " + err.Error()
		return models.HealthUnknown, &errMsg
	}
	defer resp.Body.Close()

	// Any HTTP response means the destination is reachable
	return models.HealthHealthy, nil
}
