package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. Password is bcrypt-hashed and nil for accounts
// created through Google sign-in.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Picture       string    `json:"picture"`
	EmailVerified bool      `json:"emailVerified"`
	PasswordHash  *string   `json:"-"`
	GoogleID      *string   `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Verification code purposes.
const (
	PurposeVerifyEmail   = "verify-email"
	PurposePasswordReset = "password-reset"
)

// VerificationCode is a short-lived code mailed to a user to prove control
// of an email address.
type VerificationCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Code      string
	Purpose   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
