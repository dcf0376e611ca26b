package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type linkRecord struct {
	ID             int64        `db:"id"`
	Code           string       `db:"code"`
	TargetURL      string       `db:"target_url"`
	ClickCount     int64        `db:"click_count"`
	CreatedAt      time.Time    `db:"created_at"`
	LastAccessedAt sql.NullTime `db:"last_accessed_at"`
	ExpiresAt      sql.NullTime `db:"expires_at"`
}

func (r *linkRecord) ToLink() *models.Link {
	link := &models.Link{
		ID:         r.ID,
		Code:       r.Code,
		TargetURL:  r.TargetURL,
		ClickCount: r.ClickCount,
		CreatedAt:  r.CreatedAt,
	}

	if r.LastAccessedAt.Valid {
		t := r.LastAccessedAt.Time
		link.LastAccessedAt = &t
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		link.ExpiresAt = &t
	}

	return link
}

// LinkRepository persists links in the links table.
type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

// Create inserts a link whose code is already known, i.e. a user-requested
// alias. A collision on the unique code index is reported as
// database.ErrCodeExists.
func (r *LinkRepository) Create(ctx context.Context, code, targetURL string, expiresAt *time.Time) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(code, target_url, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, code, targetURL, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// CreateWithCodeFromID inserts a provisional row to obtain its auto-increment
// id, derives the code from that id via codeFromID and persists it back, all
// inside one transaction. On any failure the transaction is rolled back, so
// no codeless orphan row survives.
func (r *LinkRepository) CreateWithCodeFromID(ctx context.Context, targetURL string, expiresAt *time.Time, codeFromID func(int64) string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.CreateWithCodeFromID"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id int64
	insertQuery := `INSERT INTO links(target_url, expires_at)
		VALUES ($1, $2)
		RETURNING id`

	if err := tx.GetContext(ctx, &id, insertQuery, targetURL, expiresAt); err != nil {
		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	rec := new(linkRecord)
	updateQuery := `UPDATE links
		SET code = $1
		WHERE id = $2
		RETURNING *`

	if err := tx.GetContext(ctx, rec, updateQuery, codeFromID(id), id); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to assign code to link record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetByCode retrieves a link without touching its counters. Expired links
// are returned as-is so stats remain readable past expiry.
func (r *LinkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByCode"

	rec := new(linkRecord)
	query := `SELECT * FROM links WHERE code = $1`

	err := r.db.GetContext(ctx, rec, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// GetByTargetURL returns the most recent link pointing at targetURL, used to
// reuse an existing code instead of minting a duplicate.
func (r *LinkRepository) GetByTargetURL(ctx context.Context, targetURL string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByTargetURL"

	rec := new(linkRecord)
	query := `SELECT * FROM links
		WHERE target_url = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, targetURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// ResolveAndUpdateStats bumps click_count and last_accessed_at for a
// non-expired link in a single guarded statement, so concurrent resolutions
// of the same code never lose increments. When the update matches no row, a
// plain lookup classifies the miss as not-found or expired; expired links
// keep their counters untouched.
func (r *LinkRepository) ResolveAndUpdateStats(ctx context.Context, code string, now time.Time) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.ResolveAndUpdateStats"

	rec := new(linkRecord)
	query := `UPDATE links
		SET click_count = click_count + 1, last_accessed_at = $2
		WHERE code = $1 AND (expires_at IS NULL OR expires_at > $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, code, now)
	if err == nil {
		return rec.ToLink(), nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: failed to update link record: %w", op, err)
	}

	link, err := r.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to classify resolution miss: %w", op, err)
	}

	if link.Expired(now) {
		return nil, fmt.Errorf("%s: %w", op, database.ErrLinkExpired)
	}

	// The link reappeared between the two statements; treat as a miss.
	return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
}

// ListRecent returns the newest links, up to limit.
func (r *LinkRepository) ListRecent(ctx context.Context, limit int) ([]*models.Link, error) {
	const op = "database.postgres.LinkRepository.ListRecent"

	var recs []linkRecord
	query := `SELECT * FROM links
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list link records: %w", op, err)
	}

	links := make([]*models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, recs[i].ToLink())
	}

	return links, nil
}

// UpdateTargetURL repoints an existing code at a new target URL.
func (r *LinkRepository) UpdateTargetURL(ctx context.Context, code, targetURL string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.UpdateTargetURL"

	rec := new(linkRecord)
	query := `UPDATE links
		SET target_url = $1
		WHERE code = $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, targetURL, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// UpdateExpiry replaces the expiry of an existing code.
func (r *LinkRepository) UpdateExpiry(ctx context.Context, code string, expiresAt *time.Time) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.UpdateExpiry"

	rec := new(linkRecord)
	query := `UPDATE links
		SET expires_at = $1
		WHERE code = $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, expiresAt, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// Delete removes a link by its code.
func (r *LinkRepository) Delete(ctx context.Context, code string) error {
	const op = "database.postgres.LinkRepository.Delete"

	query := `DELETE FROM links WHERE code = $1`

	res, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("%s: failed to delete link record: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	return nil
}

// DeleteExpired drops links whose expiry elapsed before now and reports how
// many rows were removed.
func (r *LinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "database.postgres.LinkRepository.DeleteExpired"

	query := `DELETE FROM links
		WHERE expires_at IS NOT NULL AND expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete expired link records: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return rowsAffected, nil
}
