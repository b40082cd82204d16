package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// FundraiserRepositoryPG implements domain.FundraiserRepository backed by
// PostgreSQL.
type FundraiserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewFundraiserRepository creates a new FundraiserRepositoryPG.
func NewFundraiserRepository(pool *pgxpool.Pool) *FundraiserRepositoryPG {
	return &FundraiserRepositoryPG{pool: pool}
}

// Create inserts a new fundraiser record.
func (r *FundraiserRepositoryPG) Create(ctx context.Context, fundraiser *domain.Fundraiser) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO fundraisers (id, group_id, title, description, goal_amount, currency, status, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`,
		fundraiser.ID,
		fundraiser.GroupID,
		fundraiser.Title,
		fundraiser.Description,
		fundraiser.GoalAmount,
		fundraiser.Currency,
		fundraiser.Status,
		fundraiser.IsPublic,
	)
	return err
}

// GetByID fetches a fundraiser by its identifier.
func (r *FundraiserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Fundraiser, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, group_id, title, description, goal_amount, currency, status, is_public, COALESCE(cover_url, ''), created_at, updated_at
FROM fundraisers
WHERE id = $1;
`, id)
	return scanFundraiser(row)
}

// ListByGroup returns the group's fundraisers, newest first.
func (r *FundraiserRepositoryPG) ListByGroup(ctx context.Context, groupID string) ([]domain.Fundraiser, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, group_id, title, description, goal_amount, currency, status, is_public, COALESCE(cover_url, ''), created_at, updated_at
FROM fundraisers
WHERE group_id = $1
ORDER BY created_at DESC;
`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Fundraiser
	for rows.Next() {
		var f domain.Fundraiser
		if err := rows.Scan(
			&f.ID,
			&f.GroupID,
			&f.Title,
			&f.Description,
			&f.GoalAmount,
			&f.Currency,
			&f.Status,
			&f.IsPublic,
			&f.CoverURL,
			&f.CreatedAt,
			&f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites the editable fundraiser fields.
func (r *FundraiserRepositoryPG) Update(ctx context.Context, fundraiser *domain.Fundraiser) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE fundraisers
SET title = $2,
    description = $3,
    goal_amount = $4,
    currency = $5,
    is_public = $6,
    updated_at = NOW()
WHERE id = $1;
`,
		fundraiser.ID,
		fundraiser.Title,
		fundraiser.Description,
		fundraiser.GoalAmount,
		fundraiser.Currency,
		fundraiser.IsPublic,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStatus moves the fundraiser through its lifecycle.
func (r *FundraiserRepositoryPG) SetStatus(ctx context.Context, id string, status domain.FundraiserStatus) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE fundraisers
SET status = $2,
    updated_at = NOW()
WHERE id = $1;
`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetCoverURL stores the public URL of the uploaded cover image.
func (r *FundraiserRepositoryPG) SetCoverURL(ctx context.Context, id, coverURL string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE fundraisers
SET cover_url = $2,
    updated_at = NOW()
WHERE id = $1;
`, id, coverURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanFundraiser(row pgx.Row) (*domain.Fundraiser, error) {
	var f domain.Fundraiser
	if err := row.Scan(
		&f.ID,
		&f.GroupID,
		&f.Title,
		&f.Description,
		&f.GoalAmount,
		&f.Currency,
		&f.Status,
		&f.IsPublic,
		&f.CoverURL,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
