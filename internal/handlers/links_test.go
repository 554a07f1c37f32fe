package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"shortly/internal/codec"
	"shortly/internal/config"
	"shortly/internal/db"
	"shortly/internal/models"
	"shortly/internal/testutil"
)

func newLinkHandler(t *testing.T) (*LinkHandler, *db.DB, func()) {
	t.Helper()
	database, cleanup := testutil.TestDB(t)

	cfg := &config.Config{FrontendURL: "http://localhost:3000"}
	handler := NewLinkHandler(database, cfg, config.DefaultPlanTiers(), nil)

	return handler, database, cleanup
}

func TestEnsurePlanProvisionsFreeTier(t *testing.T) {
	handler, database, cleanup := newLinkHandler(t)
	defer cleanup()

	ctx := context.Background()
	userID := testutil.CreateTestUser(t, database, "fresh", "fresh@example.com")

	plan, err := handler.ensurePlan(ctx, userID)
	if err != nil {
		t.Fatalf("ensurePlan() error = %v", err)
	}

	free := config.DefaultPlanTiers().Free()
	if plan.PlanType != models.PlanFree {
		t.Errorf("PlanType = %q, want %q", plan.PlanType, models.PlanFree)
	}
	if plan.Urls != free.Urls || plan.QRCodes != free.QRCodes {
		t.Errorf("allowance = %d/%d, want %d/%d", plan.Urls, plan.QRCodes, free.Urls, free.QRCodes)
	}
	if plan.Expired() {
		t.Error("fresh plan reports expired")
	}
}

func TestEnsurePlanResetsExpired(t *testing.T) {
	handler, database, cleanup := newLinkHandler(t)
	defer cleanup()

	ctx := context.Background()
	userID := testutil.CreateTestUser(t, database, "lapsed", "lapsed@example.com")

	// Exhausted premium plan past its period
	expired := &models.Plan{
		UserID:    userID,
		PlanType:  models.PlanPremium,
		Urls:      0,
		QRCodes:   0,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := database.CreatePlan(ctx, expired); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	plan, err := handler.ensurePlan(ctx, userID)
	if err != nil {
		t.Fatalf("ensurePlan() error = %v", err)
	}

	free := config.DefaultPlanTiers().Free()
	if plan.PlanType != models.PlanFree {
		t.Errorf("PlanType after reset = %q, want %q", plan.PlanType, models.PlanFree)
	}
	if plan.Urls != free.Urls || plan.QRCodes != free.QRCodes {
		t.Errorf("allowance after reset = %d/%d, want %d/%d", plan.Urls, plan.QRCodes, free.Urls, free.QRCodes)
	}
	if plan.Expired() {
		t.Error("reset plan reports expired")
	}
}

func TestAllocateAndCreateMintsShortURL(t *testing.T) {
	handler, database, cleanup := newLinkHandler(t)
	defer cleanup()

	ctx := context.Background()
	userID := testutil.CreateTestUser(t, database, "minter", "minter@example.com")

	link := &models.Link{
		UserID:      userID,
		Kind:        models.KindShortURL,
		Title:       "Example",
		OriginalURL: "https://example.com",
	}
	if err := handler.allocateAndCreate(ctx, link); err != nil {
		t.Fatalf("allocateAndCreate() error = %v", err)
	}

	if link.Index < models.ReservedIndexFloor {
		t.Errorf("Index = %d, want >= %d", link.Index, models.ReservedIndexFloor)
	}

	wantPrefix := "http://localhost:3000/s/"
	if !strings.HasPrefix(link.ShortURL, wantPrefix) {
		t.Fatalf("ShortURL = %q, want prefix %q", link.ShortURL, wantPrefix)
	}

	identifier := strings.TrimPrefix(link.ShortURL, wantPrefix)
	index, err := codec.Decode(identifier)
	if err != nil {
		t.Fatalf("Decode(%q) error = %v", identifier, err)
	}
	if index != link.Index {
		t.Errorf("identifier decodes to %d, want %d", index, link.Index)
	}

	// QR links carry no short URL
	qrLink := &models.Link{
		UserID:      userID,
		Kind:        models.KindQRCode,
		Title:       "QR",
		OriginalURL: "https://example.com",
		QRImageURL:  "http://localhost:8080/q/test.png",
	}
	if err := handler.allocateAndCreate(ctx, qrLink); err != nil {
		t.Fatalf("allocateAndCreate(qr) error = %v", err)
	}
	if qrLink.ShortURL != "" {
		t.Errorf("qr ShortURL = %q, want empty", qrLink.ShortURL)
	}
	if qrLink.Index != link.Index+1 {
		t.Errorf("qr Index = %d, want %d", qrLink.Index, link.Index+1)
	}
}
