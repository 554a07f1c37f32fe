package db

import (
	"context"
	"testing"
	"time"

	"shortly/internal/models"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := &models.User{Email: "taken@example.com", Username: "first"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	dup := &models.User{Email: "taken@example.com", Username: "second"}
	if err := db.CreateUser(ctx, dup); err != ErrDuplicateEmail {
		t.Errorf("CreateUser(duplicate) error = %v, want ErrDuplicateEmail", err)
	}
}

func TestUpsertGoogleUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Account registered with a password first
	hash := "not-a-real-hash"
	existing := &models.User{
		Email:        "mixed@example.com",
		Username:     "mixed",
		PasswordHash: &hash,
	}
	if err := db.CreateUser(ctx, existing); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	sub := "google-sub-123"
	google := &models.User{
		Email:    "mixed@example.com",
		Username: "Mixed Name",
		Picture:  "https://example.com/p.png",
		GoogleID: &sub,
	}
	if err := db.UpsertGoogleUser(ctx, google); err != nil {
		t.Fatalf("UpsertGoogleUser() error = %v", err)
	}
	if google.ID != existing.ID {
		t.Errorf("UpsertGoogleUser() created a new account, want existing %s", existing.ID)
	}

	got, err := db.GetUserByEmail(ctx, "mixed@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if !got.EmailVerified {
		t.Error("Google sign-in did not verify the email")
	}
	if got.PasswordHash == nil {
		t.Error("Google sign-in dropped the password hash")
	}
}

func TestVerificationCodes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "codes@example.com")

	first := &models.VerificationCode{
		UserID:    userID,
		Email:     "codes@example.com",
		Code:      "1234",
		Purpose:   models.PurposeVerifyEmail,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := db.ReplaceVerificationCode(ctx, first); err != nil {
		t.Fatalf("ReplaceVerificationCode() error = %v", err)
	}

	// A second code replaces the first
	second := &models.VerificationCode{
		UserID:    userID,
		Email:     "codes@example.com",
		Code:      "5678",
		Purpose:   models.PurposeVerifyEmail,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := db.ReplaceVerificationCode(ctx, second); err != nil {
		t.Fatalf("ReplaceVerificationCode() error = %v", err)
	}

	got, err := db.GetValidCode(ctx, "codes@example.com", models.PurposeVerifyEmail)
	if err != nil {
		t.Fatalf("GetValidCode() error = %v", err)
	}
	if got.Code != "5678" {
		t.Errorf("GetValidCode() = %q, want %q", got.Code, "5678")
	}

	// Purposes are independent pools
	if _, err := db.GetValidCode(ctx, "codes@example.com", models.PurposePasswordReset); err != ErrCodeNotFound {
		t.Errorf("GetValidCode(other purpose) error = %v, want ErrCodeNotFound", err)
	}

	if err := db.DeleteCode(ctx, got.ID); err != nil {
		t.Fatalf("DeleteCode() error = %v", err)
	}
	if _, err := db.GetValidCode(ctx, "codes@example.com", models.PurposeVerifyEmail); err != ErrCodeNotFound {
		t.Errorf("GetValidCode(deleted) error = %v, want ErrCodeNotFound", err)
	}
}

func TestExpiredCodeIsInvalid(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, db, "expired@example.com")

	code := &models.VerificationCode{
		UserID:    userID,
		Email:     "expired@example.com",
		Code:      "4321",
		Purpose:   models.PurposePasswordReset,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := db.ReplaceVerificationCode(ctx, code); err != nil {
		t.Fatalf("ReplaceVerificationCode() error = %v", err)
	}

	if _, err := db.GetValidCode(ctx, "expired@example.com", models.PurposePasswordReset); err != ErrCodeNotFound {
		t.Errorf("GetValidCode(expired) error = %v, want ErrCodeNotFound", err)
	}
	if _, err := db.GetValidCodeByUser(ctx, userID, models.PurposePasswordReset); err != ErrCodeNotFound {
		t.Errorf("GetValidCodeByUser(expired) error = %v, want ErrCodeNotFound", err)
	}
}
