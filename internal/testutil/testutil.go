// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortly/internal/db"
)

// TestDB creates a test database connection and returns a cleanup function.
// Uses TEST_DATABASE_URL environment variable; tests that need a database
// skip when it is unset.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Delete in order to respect foreign keys
	pool.Exec(ctx, "DELETE FROM verification_codes")
	pool.Exec(ctx, "DELETE FROM links")
	pool.Exec(ctx, "DELETE FROM plans")
	pool.Exec(ctx, "DELETE FROM users")
}

// CreateTestUser creates a verified test user and returns the user ID.
func CreateTestUser(t *testing.T, database *db.DB, username, email string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	var id uuid.UUID
	err := database.Pool.QueryRow(ctx, `
		INSERT INTO users (username, email, email_verified)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (email) DO UPDATE SET username = EXCLUDED.username
		RETURNING id
	`, username, email).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return id
}

// CreateTestPlan gives a user a plan with the given credit balances.
func CreateTestPlan(t *testing.T, database *db.DB, userID uuid.UUID, urls, qrCodes int) {
	t.Helper()
	ctx := context.Background()

	_, err := database.Pool.Exec(ctx, `
		INSERT INTO plans (user_id, plan_type, urls, qr_codes, expires_at)
		VALUES ($1, 'free', $2, $3, NOW() + INTERVAL '30 days')
		ON CONFLICT (user_id) DO UPDATE SET urls = EXCLUDED.urls, qr_codes = EXCLUDED.qr_codes
	`, userID, urls, qrCodes)
	if err != nil {
		t.Fatalf("failed to create test plan: %v", err)
	}
}
