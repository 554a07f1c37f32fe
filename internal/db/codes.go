package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"shortly/internal/models"
)

// ReplaceVerificationCode deletes any pending codes for the address and
// purpose, then stores the new one. A user only ever has one live code per
// purpose.
func (d *DB) ReplaceVerificationCode(ctx context.Context, code *models.VerificationCode) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM verification_codes WHERE email = $1 AND purpose = $2`,
		code.Email, code.Purpose)
	if err != nil {
		return mapErr(err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO verification_codes (user_id, email, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, code.UserID, code.Email, code.Code, code.Purpose, code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt)
	if err != nil {
		return mapErr(err)
	}

	return tx.Commit(ctx)
}

// GetValidCode returns the live code for an address and purpose, if any.
// Expired codes are treated as absent.
func (d *DB) GetValidCode(ctx context.Context, email, purpose string) (*models.VerificationCode, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, email, code, purpose, expires_at, created_at
		FROM verification_codes
		WHERE email = $1 AND purpose = $2 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	var code models.VerificationCode
	err := d.Pool.QueryRow(ctx, query, email, purpose).Scan(
		&code.ID,
		&code.UserID,
		&code.Email,
		&code.Code,
		&code.Purpose,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &code, nil
}

// GetValidCodeByUser is GetValidCode keyed by user ID instead of address,
// for reset links that carry the user ID.
func (d *DB) GetValidCodeByUser(ctx context.Context, userID uuid.UUID, purpose string) (*models.VerificationCode, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, email, code, purpose, expires_at, created_at
		FROM verification_codes
		WHERE user_id = $1 AND purpose = $2 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	var code models.VerificationCode
	err := d.Pool.QueryRow(ctx, query, userID, purpose).Scan(
		&code.ID,
		&code.UserID,
		&code.Email,
		&code.Code,
		&code.Purpose,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &code, nil
}

// DeleteCode removes a consumed code.
func (d *DB) DeleteCode(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := d.Pool.Exec(ctx, `DELETE FROM verification_codes WHERE id = $1`, id); err != nil {
		return mapErr(err)
	}
	return nil
}

// DeleteCodesForUser removes all pending codes for a user.
func (d *DB) DeleteCodesForUser(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := d.Pool.Exec(ctx, `DELETE FROM verification_codes WHERE user_id = $1`, userID); err != nil {
		return mapErr(err)
	}
	return nil
}
