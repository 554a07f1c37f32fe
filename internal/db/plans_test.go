package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"shortly/internal/models"
)

func TestPlanLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "plan@example.com")

	if _, err := db.GetPlanByUserID(ctx, userID); err != ErrPlanNotFound {
		t.Fatalf("GetPlanByUserID(no plan) error = %v, want ErrPlanNotFound", err)
	}

	plan := &models.Plan{
		UserID:    userID,
		PlanType:  models.PlanFree,
		Urls:      10,
		QRCodes:   5,
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	if err := db.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	got, err := db.GetPlanByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetPlanByUserID() error = %v", err)
	}
	if got.Urls != 10 || got.QRCodes != 5 {
		t.Errorf("plan credits = %d/%d, want 10/5", got.Urls, got.QRCodes)
	}
	if got.Expired() {
		t.Error("fresh plan reports expired")
	}
}

func TestConsumeCredit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "consume@example.com")

	plan := &models.Plan{
		UserID:    userID,
		PlanType:  models.PlanFree,
		Urls:      2,
		QRCodes:   0,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := db.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := db.ConsumeURLCredit(ctx, userID); err != nil {
			t.Fatalf("ConsumeURLCredit() #%d error = %v", i+1, err)
		}
	}
	if err := db.ConsumeURLCredit(ctx, userID); err != ErrQuotaExceeded {
		t.Errorf("ConsumeURLCredit(exhausted) error = %v, want ErrQuotaExceeded", err)
	}

	// QR pool is independent and already empty.
	if err := db.ConsumeQRCredit(ctx, userID); err != ErrQuotaExceeded {
		t.Errorf("ConsumeQRCredit(empty) error = %v, want ErrQuotaExceeded", err)
	}
}

func TestConsumeCreditConcurrent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "race@example.com")

	const credits = 5
	plan := &models.Plan{
		UserID:    userID,
		PlanType:  models.PlanFree,
		Urls:      credits,
		QRCodes:   0,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := db.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	const workers = 20
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = db.ConsumeURLCredit(ctx, userID)
		}(i)
	}
	wg.Wait()

	granted := 0
	for i, err := range results {
		switch err {
		case nil:
			granted++
		case ErrQuotaExceeded:
		default:
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	if granted != credits {
		t.Errorf("granted %d credits, want exactly %d", granted, credits)
	}

	got, err := db.GetPlanByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetPlanByUserID() error = %v", err)
	}
	if got.Urls != 0 {
		t.Errorf("remaining urls = %d, want 0", got.Urls)
	}
}

func TestRefundCredit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "refund@example.com")

	plan := &models.Plan{
		UserID:    userID,
		PlanType:  models.PlanFree,
		Urls:      1,
		QRCodes:   1,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := db.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	if err := db.ConsumeQRCredit(ctx, userID); err != nil {
		t.Fatalf("ConsumeQRCredit() error = %v", err)
	}
	if err := db.RefundQRCredit(ctx, userID); err != nil {
		t.Fatalf("RefundQRCredit() error = %v", err)
	}

	got, err := db.GetPlanByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetPlanByUserID() error = %v", err)
	}
	if got.QRCodes != 1 {
		t.Errorf("qr credits after refund = %d, want 1", got.QRCodes)
	}
}

func TestResetPlan(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "reset@example.com")

	plan := &models.Plan{
		UserID:    userID,
		PlanType:  models.PlanPremium,
		Urls:      0,
		QRCodes:   0,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := db.CreatePlan(ctx, plan); err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	expires := time.Now().Add(30 * 24 * time.Hour)
	if err := db.ResetPlan(ctx, userID, models.PlanFree, 10, 5, expires); err != nil {
		t.Fatalf("ResetPlan() error = %v", err)
	}

	got, err := db.GetPlanByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetPlanByUserID() error = %v", err)
	}
	if got.PlanType != models.PlanFree || got.Urls != 10 || got.QRCodes != 5 {
		t.Errorf("plan after reset = %s %d/%d, want free 10/5", got.PlanType, got.Urls, got.QRCodes)
	}
	if got.Expired() {
		t.Error("reset plan reports expired")
	}
}
