package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"shortly/internal/models"
)

const planColumns = `id, user_id, plan_type, urls, qr_codes, expires_at, created_at, updated_at`

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var plan models.Plan
	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.PlanType,
		&plan.Urls,
		&plan.QRCodes,
		&plan.ExpiresAt,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &plan, nil
}

// GetPlanByUserID retrieves a user's plan.
func (d *DB) GetPlanByUserID(ctx context.Context, userID uuid.UUID) (*models.Plan, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + planColumns + ` FROM plans WHERE user_id = $1`
	return scanPlan(d.Pool.QueryRow(ctx, query, userID))
}

// CreatePlan inserts a plan row for a user.
func (d *DB) CreatePlan(ctx context.Context, plan *models.Plan) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO plans (user_id, plan_type, urls, qr_codes, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		plan.UserID,
		plan.PlanType,
		plan.Urls,
		plan.QRCodes,
		plan.ExpiresAt,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// ResetPlan replaces a user's plan allowance, used when an expired plan
// rolls back to the free tier.
func (d *DB) ResetPlan(ctx context.Context, userID uuid.UUID, planType string, urls, qrCodes int, expiresAt time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE plans
		SET plan_type = $1, urls = $2, qr_codes = $3, expires_at = $4, updated_at = NOW()
		WHERE user_id = $5
	`
	result, err := d.Pool.Exec(ctx, query, planType, urls, qrCodes, expiresAt, userID)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// ConsumeURLCredit decrements the short-URL allowance by one. The decrement
// is conditional so concurrent creation bursts can never drive the counter
// negative; an exhausted allowance fails closed with ErrQuotaExceeded.
func (d *DB) ConsumeURLCredit(ctx context.Context, userID uuid.UUID) error {
	return d.consumeCredit(ctx, userID, "urls")
}

// ConsumeQRCredit decrements the QR-code allowance by one.
func (d *DB) ConsumeQRCredit(ctx context.Context, userID uuid.UUID) error {
	return d.consumeCredit(ctx, userID, "qr_codes")
}

func (d *DB) consumeCredit(ctx context.Context, userID uuid.UUID, column string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	// column is one of two compile-time constants, never user input.
	query := `UPDATE plans SET ` + column + ` = ` + column + ` - 1, updated_at = NOW()
		WHERE user_id = $1 AND ` + column + ` > 0`
	result, err := d.Pool.Exec(ctx, query, userID)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

// RefundURLCredit returns a short-URL credit after a failed creation.
func (d *DB) RefundURLCredit(ctx context.Context, userID uuid.UUID) error {
	return d.refundCredit(ctx, userID, "urls")
}

// RefundQRCredit returns a QR-code credit after a failed creation.
func (d *DB) RefundQRCredit(ctx context.Context, userID uuid.UUID) error {
	return d.refundCredit(ctx, userID, "qr_codes")
}

func (d *DB) refundCredit(ctx context.Context, userID uuid.UUID, column string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE plans SET ` + column + ` = ` + column + ` + 1, updated_at = NOW() WHERE user_id = $1`
	if _, err := d.Pool.Exec(ctx, query, userID); err != nil {
		return mapErr(err)
	}
	return nil
}
