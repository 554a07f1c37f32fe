package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shortly/internal/models"
)

const userColumns = `id, email, username, picture, email_verified, password_hash, google_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Picture,
		&user.EmailVerified,
		&user.PasswordHash,
		&user.GoogleID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// CreateUser inserts a new account.
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (email, username, picture, email_verified, password_hash, google_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.Picture,
		user.EmailVerified,
		user.PasswordHash,
		user.GoogleID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return mapErr(err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(d.Pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by ID.
func (d *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(d.Pool.QueryRow(ctx, query, id))
}

// UpsertGoogleUser creates or refreshes an account from a Google sign-in.
// Google-authenticated addresses are verified by definition.
func (d *DB) UpsertGoogleUser(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (email, username, picture, email_verified, google_id)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (email) DO UPDATE SET
			username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE users.username END,
			picture = CASE WHEN EXCLUDED.picture <> '' THEN EXCLUDED.picture ELSE users.picture END,
			google_id = COALESCE(users.google_id, EXCLUDED.google_id),
			email_verified = TRUE,
			updated_at = NOW()
		RETURNING id, email_verified, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.Picture,
		user.GoogleID,
	).Scan(&user.ID, &user.EmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// MarkEmailVerified flags an account's email address as verified.
func (d *DB) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := d.Pool.Exec(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserPassword replaces an account's password hash.
func (d *DB) UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := d.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes an account. Plans, links, and pending codes cascade.
func (d *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := d.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
