package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shortly/internal/codec"
	"shortly/internal/config"
	"shortly/internal/db"
	"shortly/internal/metrics"
	"shortly/internal/models"
	"shortly/internal/qr"
	"shortly/internal/validation"
)

// createAttempts bounds the allocate-insert retry loop. Conflicts only
// occur when link rows were imported ahead of the sequence.
const createAttempts = 3

// Default display titles, matching what untitled links were always called.
const (
	defaultShortTitle = "Shortened Link"
	defaultQRTitle    = "QR Code Link"
)

// LinkHandler handles link creation and owner-scoped CRUD.
type LinkHandler struct {
	db     *db.DB
	cfg    *config.Config
	tiers  config.PlanTiers
	images qr.ImageStore
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(database *db.DB, cfg *config.Config, tiers config.PlanTiers, images qr.ImageStore) *LinkHandler {
	return &LinkHandler{db: database, cfg: cfg, tiers: tiers, images: images}
}

// CreateShort creates a short URL link: quota check, index allocation,
// store write, derived public identifier.
func (h *LinkHandler) CreateShort(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var body struct {
		OriginalURL string `json:"originalUrl"`
		Title       string `json:"title"`
		Password    string `json:"password"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if valid, msg := validation.ValidateURL(body.OriginalURL); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if valid, msg := validation.ValidateTitle(body.Title); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	if err := h.consumeCredit(c.Context(), user.ID, h.db.ConsumeURLCredit); err != nil {
		if errors.Is(err, db.ErrQuotaExceeded) {
			metrics.Creations.WithLabelValues(models.KindShortURL, "quota_exceeded").Inc()
			return jsonError(c, fiber.StatusBadRequest, "Short URL limit reached")
		}
		return storeError(c, err)
	}

	title := body.Title
	if title == "" {
		title = defaultShortTitle
	}

	link := &models.Link{
		UserID:              user.ID,
		Kind:                models.KindShortURL,
		Title:               title,
		OriginalURL:         body.OriginalURL,
		IsPasswordProtected: body.Password != "",
	}

	if body.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
		}
		hashStr := string(hash)
		link.PasswordHash = &hashStr
	}

	if err := h.allocateAndCreate(c.Context(), link); err != nil {
		// Creation failed after the quota was spent; hand the credit back.
		h.db.RefundURLCredit(context.WithoutCancel(c.Context()), user.ID)
		metrics.Creations.WithLabelValues(models.KindShortURL, "error").Inc()
		if errors.Is(err, db.ErrDuplicateIndex) {
			return jsonError(c, fiber.StatusServiceUnavailable, "Temporarily unavailable, please retry")
		}
		return storeError(c, err)
	}

	metrics.Creations.WithLabelValues(models.KindShortURL, "ok").Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": link})
}

// CreateQR creates a QR code link. It shares the index space with short
// URLs but consumes the separate QR allowance.
func (h *LinkHandler) CreateQR(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var body struct {
		OriginalURL string `json:"originalUrl"`
		Title       string `json:"title"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if valid, msg := validation.ValidateURL(body.OriginalURL); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if valid, msg := validation.ValidateTitle(body.Title); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	if err := h.consumeCredit(c.Context(), user.ID, h.db.ConsumeQRCredit); err != nil {
		if errors.Is(err, db.ErrQuotaExceeded) {
			metrics.Creations.WithLabelValues(models.KindQRCode, "quota_exceeded").Inc()
			return jsonError(c, fiber.StatusBadRequest, "QR code limit reached")
		}
		return storeError(c, err)
	}

	png, err := qr.GeneratePNG(body.OriginalURL)
	if err != nil {
		h.db.RefundQRCredit(context.WithoutCancel(c.Context()), user.ID)
		metrics.Creations.WithLabelValues(models.KindQRCode, "error").Inc()
		return jsonError(c, fiber.StatusInternalServerError, "Could not generate QR code")
	}

	imageURL, err := h.images.Save(c.Context(), uuid.NewString(), png)
	if err != nil {
		h.db.RefundQRCredit(context.WithoutCancel(c.Context()), user.ID)
		metrics.Creations.WithLabelValues(models.KindQRCode, "error").Inc()
		return jsonError(c, fiber.StatusInternalServerError, "Could not store QR code")
	}

	title := body.Title
	if title == "" {
		title = defaultQRTitle
	}

	link := &models.Link{
		UserID:      user.ID,
		Kind:        models.KindQRCode,
		Title:       title,
		OriginalURL: body.OriginalURL,
		QRImageURL:  imageURL,
	}

	if err := h.allocateAndCreate(c.Context(), link); err != nil {
		h.db.RefundQRCredit(context.WithoutCancel(c.Context()), user.ID)
		metrics.Creations.WithLabelValues(models.KindQRCode, "error").Inc()
		if errors.Is(err, db.ErrDuplicateIndex) {
			return jsonError(c, fiber.StatusServiceUnavailable, "Temporarily unavailable, please retry")
		}
		return storeError(c, err)
	}

	metrics.Creations.WithLabelValues(models.KindQRCode, "ok").Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": link})
}

// allocateAndCreate draws an index from the allocator and inserts the link,
// recomputing on an allocation conflict a bounded number of times.
func (h *LinkHandler) allocateAndCreate(ctx context.Context, link *models.Link) error {
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		var index uint64
		index, err = h.db.NextLinkIndex(ctx)
		if err != nil {
			return err
		}

		link.Index = index
		if link.Kind == models.KindShortURL {
			link.ShortURL = h.cfg.FrontendURL + "/s/" + codec.Encode(index)
		}

		err = h.db.CreateLink(ctx, link)
		if !errors.Is(err, db.ErrDuplicateIndex) {
			return err
		}
	}
	return err
}

// consumeCredit spends one creation credit, provisioning or resetting the
// plan first when needed.
func (h *LinkHandler) consumeCredit(ctx context.Context, userID uuid.UUID, consume func(context.Context, uuid.UUID) error) error {
	if _, err := h.ensurePlan(ctx, userID); err != nil {
		return err
	}
	return consume(ctx, userID)
}

// ensurePlan loads the user's plan, creating a free one for first-time
// users and rolling expired plans back to the free allowance.
func (h *LinkHandler) ensurePlan(ctx context.Context, userID uuid.UUID) (*models.Plan, error) {
	plan, err := h.db.GetPlanByUserID(ctx, userID)
	if errors.Is(err, db.ErrPlanNotFound) {
		free := h.tiers.Free()
		plan = &models.Plan{
			UserID:    userID,
			PlanType:  models.PlanFree,
			Urls:      free.Urls,
			QRCodes:   free.QRCodes,
			ExpiresAt: time.Now().Add(free.Duration()),
		}
		if err := h.db.CreatePlan(ctx, plan); err != nil {
			return nil, err
		}
		return plan, nil
	}
	if err != nil {
		return nil, err
	}

	if plan.Expired() {
		free := h.tiers.Free()
		expiresAt := time.Now().Add(free.Duration())
		if err := h.db.ResetPlan(ctx, userID, models.PlanFree, free.Urls, free.QRCodes, expiresAt); err != nil {
			return nil, err
		}
		plan.PlanType = models.PlanFree
		plan.Urls = free.Urls
		plan.QRCodes = free.QRCodes
		plan.ExpiresAt = expiresAt
	}

	return plan, nil
}

// List returns all of the user's links, newest first.
func (h *LinkHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	links, err := h.db.GetLinksByUser(c.Context(), user.ID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"links": links})
}

// ListShort returns the user's short URLs, newest first.
func (h *LinkHandler) ListShort(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	links, err := h.db.GetLinksByUserAndKind(c.Context(), user.ID, models.KindShortURL)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"urls": links})
}

// ListQR returns the user's QR codes, newest first.
func (h *LinkHandler) ListQR(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	links, err := h.db.GetLinksByUserAndKind(c.Context(), user.ID, models.KindQRCode)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"qrs": links})
}

// EditTitle updates a link's title after the ownership check.
func (h *LinkHandler) EditTitle(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid link id")
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if valid, msg := validation.ValidateTitle(body.Title); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	link, err := h.db.GetLinkByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrLinkNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Not found")
		}
		return storeError(c, err)
	}

	if !link.OwnedBy(user.ID) {
		return jsonError(c, fiber.StatusForbidden, "You do not have permission")
	}

	if err := h.db.UpdateLinkTitle(c.Context(), id, body.Title); err != nil {
		return storeError(c, err)
	}

	link.Title = body.Title
	return c.JSON(fiber.Map{"msg": "Title updated", "url": link})
}

// Delete removes a link (either kind) after the ownership check.
func (h *LinkHandler) Delete(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid link id")
	}

	link, err := h.db.GetLinkByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrLinkNotFound) {
			return jsonError(c, fiber.StatusNotFound, "URL or QR Code not found")
		}
		return storeError(c, err)
	}

	if !link.OwnedBy(user.ID) {
		return jsonError(c, fiber.StatusForbidden, "Forbidden: Not your item")
	}

	if err := h.db.DeleteLink(c.Context(), id); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{"msg": "Deleted successfully"})
}

// Limit reports the remaining creation allowance.
func (h *LinkHandler) Limit(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	plan, err := h.ensurePlan(c.Context(), user.ID)
	if err != nil {
		return storeError(c, err)
	}

	return c.JSON(models.LimitResponse{
		Urls:      plan.Urls,
		QRCodes:   plan.QRCodes,
		ExpiresAt: plan.ExpiresAt,
	})
}
