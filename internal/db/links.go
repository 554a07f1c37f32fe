package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shortly/internal/models"
)

// linkColumns is the standard column list for link queries.
const linkColumns = `id, link_index, user_id, kind, title, original_url, short_url,
	qr_image_url, clicks, is_password_protected, password_hash,
	health_status, health_checked_at, health_error, created_at, updated_at`

// scanLink scans a row into a Link struct.
func scanLink(row pgx.Row) (*models.Link, error) {
	var link models.Link
	err := row.Scan(
		&link.ID,
		&link.Index,
		&link.UserID,
		&link.Kind,
		&link.Title,
		&link.OriginalURL,
		&link.ShortURL,
		&link.QRImageURL,
		&link.Clicks,
		&link.IsPasswordProtected,
		&link.PasswordHash,
		&link.HealthStatus,
		&link.HealthCheckedAt,
		&link.HealthError,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &link, nil
}

// scanLinks scans multiple rows into a slice of Links.
func scanLinks(rows pgx.Rows) ([]models.Link, error) {
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(
			&link.ID,
			&link.Index,
			&link.UserID,
			&link.Kind,
			&link.Title,
			&link.OriginalURL,
			&link.ShortURL,
			&link.QRImageURL,
			&link.Clicks,
			&link.IsPasswordProtected,
			&link.PasswordHash,
			&link.HealthStatus,
			&link.HealthCheckedAt,
			&link.HealthError,
			&link.CreatedAt,
			&link.UpdatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// NextLinkIndex allocates the next link index from link_index_seq. The
// sequence is the single allocation point: concurrent calls always receive
// distinct values, and indices are never reused. Gaps from aborted
// creations are acceptable.
func (d *DB) NextLinkIndex(ctx context.Context) (uint64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var index uint64
	if err := d.Pool.QueryRow(ctx, `SELECT nextval('link_index_seq')`).Scan(&index); err != nil {
		return 0, mapErr(err)
	}
	return index, nil
}

// CreateLink inserts a new link at its pre-allocated index. A unique-index
// violation means rows were backfilled ahead of the sequence; the sequence
// is resynchronised and ErrDuplicateIndex returned so the caller can
// recompute and retry.
func (d *DB) CreateLink(ctx context.Context, link *models.Link) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO links (link_index, user_id, kind, title, original_url, short_url,
			qr_image_url, is_password_protected, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, clicks, health_status, created_at, updated_at
	`

	err := d.Pool.QueryRow(ctx, query,
		link.Index,
		link.UserID,
		link.Kind,
		link.Title,
		link.OriginalURL,
		link.ShortURL,
		link.QRImageURL,
		link.IsPasswordProtected,
		link.PasswordHash,
	).Scan(&link.ID, &link.Clicks, &link.HealthStatus, &link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if syncErr := d.syncIndexSequence(ctx); syncErr != nil {
				return syncErr
			}
			return ErrDuplicateIndex
		}
		return mapErr(err)
	}
	return nil
}

// syncIndexSequence advances link_index_seq past the highest allocated index,
// respecting the reserved floor of 100.
func (d *DB) syncIndexSequence(ctx context.Context) error {
	query := `
		SELECT setval('link_index_seq',
			GREATEST((SELECT COALESCE(MAX(link_index), 99) FROM links), 99) + 1,
			false)
	`
	if _, err := d.Pool.Exec(ctx, query); err != nil {
		return mapErr(err)
	}
	return nil
}

// GetLinkByIndexAndKind retrieves a link by its allocated index and kind.
// This is the lookup the redirect resolver uses.
func (d *DB) GetLinkByIndexAndKind(ctx context.Context, index uint64, kind string) (*models.Link, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + linkColumns + ` FROM links WHERE link_index = $1 AND kind = $2`
	return scanLink(d.Pool.QueryRow(ctx, query, index, kind))
}

// GetLinkByID retrieves a link by its record ID.
func (d *DB) GetLinkByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return scanLink(d.Pool.QueryRow(ctx, query, id))
}

// GetLinksByUser returns all links owned by a user, newest first.
func (d *DB) GetLinksByUser(ctx context.Context, userID uuid.UUID) ([]models.Link, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := d.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanLinks(rows)
}

// GetLinksByUserAndKind returns a user's links of one kind, newest first.
func (d *DB) GetLinksByUserAndKind(ctx context.Context, userID uuid.UUID, kind string) ([]models.Link, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = $1 AND kind = $2 ORDER BY created_at DESC`
	rows, err := d.Pool.Query(ctx, query, userID, kind)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanLinks(rows)
}

// UpdateLinkTitle updates a link's display title.
func (d *DB) UpdateLinkTitle(ctx context.Context, id uuid.UUID, title string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE links SET title = $1, updated_at = NOW() WHERE id = $2`
	result, err := d.Pool.Exec(ctx, query, title, id)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// IncrementClicks atomically increments a link's click counter and returns
// the new value. Concurrent increments on the same row never lose the
// stored value, and the counter never decreases.
func (d *DB) IncrementClicks(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE links SET clicks = clicks + 1, updated_at = NOW() WHERE id = $1 RETURNING clicks`
	var clicks int64
	err := d.Pool.QueryRow(ctx, query, id).Scan(&clicks)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrLinkNotFound
	}
	if err != nil {
		return 0, mapErr(err)
	}
	return clicks, nil
}

// DeleteLink deletes a link by ID.
func (d *DB) DeleteLink(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := d.Pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// LinkClickTotal is one row of the per-link click export used by the
// metrics collector.
type LinkClickTotal struct {
	Index  uint64
	Kind   string
	Clicks int64
}

// GetLinkClickTotals returns click counts for all links.
func (d *DB) GetLinkClickTotals(ctx context.Context) ([]LinkClickTotal, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := d.Pool.Query(ctx, `SELECT link_index, kind, clicks FROM links`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var totals []LinkClickTotal
	for rows.Next() {
		var t LinkClickTotal
		if err := rows.Scan(&t.Index, &t.Kind, &t.Clicks); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// GetLinksNeedingHealthCheck returns links whose destination has not been
// checked within maxAge, oldest first.
func (d *DB) GetLinksNeedingHealthCheck(ctx context.Context, maxAge time.Duration, limit int) ([]models.Link, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cutoff := time.Now().Add(-maxAge)
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE health_checked_at IS NULL OR health_checked_at < $1
		ORDER BY health_checked_at NULLS FIRST
		LIMIT $2
	`
	rows, err := d.Pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanLinks(rows)
}

// UpdateLinkHealthStatus records the outcome of a destination health check.
func (d *DB) UpdateLinkHealthStatus(ctx context.Context, id uuid.UUID, status string, errorMsg *string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE links SET health_status = $1, health_checked_at = NOW(), health_error = $2 WHERE id = $3`
	if _, err := d.Pool.Exec(ctx, query, status, errorMsg, id); err != nil {
		return mapErr(err)
	}
	return nil
}
