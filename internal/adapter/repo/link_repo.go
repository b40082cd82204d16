package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// ShareLinkRepositoryPG implements domain.ShareLinkRepository backed by
// PostgreSQL.
type ShareLinkRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewShareLinkRepository creates a new ShareLinkRepositoryPG.
func NewShareLinkRepository(pool *pgxpool.Pool) *ShareLinkRepositoryPG {
	return &ShareLinkRepositoryPG{pool: pool}
}

// Create inserts a new share link. A code collision yields
// domain.ErrConflict; callers regenerate and retry.
func (r *ShareLinkRepositoryPG) Create(ctx context.Context, link *domain.ShareLink) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO share_links (id, fundraiser_id, code, created_by, expires_at)
VALUES ($1, $2, $3, $4, $5);
`, link.ID, link.FundraiserID, link.Code, link.CreatedBy, link.ExpiresAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// GetByCode fetches a share link by its public code.
func (r *ShareLinkRepositoryPG) GetByCode(ctx context.Context, code string) (*domain.ShareLink, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, fundraiser_id, code, created_by, expires_at, created_at
FROM share_links
WHERE code = $1;
`, code)
	return scanShareLink(row)
}

// ListByFundraiser returns the fundraiser's share links, newest first.
func (r *ShareLinkRepositoryPG) ListByFundraiser(ctx context.Context, fundraiserID string) ([]domain.ShareLink, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, fundraiser_id, code, created_by, expires_at, created_at
FROM share_links
WHERE fundraiser_id = $1
ORDER BY created_at DESC;
`, fundraiserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ShareLink
	for rows.Next() {
		var l domain.ShareLink
		if err := rows.Scan(&l.ID, &l.FundraiserID, &l.Code, &l.CreatedBy, &l.ExpiresAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanShareLink(row pgx.Row) (*domain.ShareLink, error) {
	var l domain.ShareLink
	if err := row.Scan(&l.ID, &l.FundraiserID, &l.Code, &l.CreatedBy, &l.ExpiresAt, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}
