package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"givepool/internal/domain"
)

// DonationRepositoryPG implements domain.DonationRepository backed by
// PostgreSQL.
type DonationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new DonationRepositoryPG.
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepositoryPG {
	return &DonationRepositoryPG{pool: pool}
}

// Create inserts a new donation record. A duplicate provider reference
// yields domain.ErrConflict so webhook redelivery cannot double-count.
func (r *DonationRepositoryPG) Create(ctx context.Context, donation *domain.Donation) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO donations (id, fundraiser_id, user_id, amount, currency, status, donor_name, note, country_code, provider_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''));
`,
		donation.ID,
		donation.FundraiserID,
		donation.UserID,
		donation.Amount,
		donation.Currency,
		donation.Status,
		donation.DonorName,
		donation.Note,
		donation.CountryCode,
		donation.ProviderRef,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// GetByProviderRef fetches the donation created for a payment provider
// reference.
func (r *DonationRepositoryPG) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, fundraiser_id, user_id, amount, currency, status, donor_name, note, country_code, COALESCE(provider_ref, ''), created_at, updated_at
FROM donations
WHERE provider_ref = $1;
`, providerRef)
	return scanDonation(row)
}

// UpdateStatus moves a donation through its lifecycle.
func (r *DonationRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.DonationStatus) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE donations
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

// ListByFundraiser returns recent donations for the fundraiser.
func (r *DonationRepositoryPG) ListByFundraiser(ctx context.Context, fundraiserID string, limit int) ([]domain.Donation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, fundraiser_id, user_id, amount, currency, status, donor_name, note, country_code, COALESCE(provider_ref, ''), created_at, updated_at
FROM donations
WHERE fundraiser_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, fundraiserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(
			&d.ID,
			&d.FundraiserID,
			&d.UserID,
			&d.Amount,
			&d.Currency,
			&d.Status,
			&d.DonorName,
			&d.Note,
			&d.CountryCode,
			&d.ProviderRef,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CompletedTotal returns the sum of completed donation amounts. This is the
// authoritative figure milestone reconciliation runs against.
func (r *DonationRepositoryPG) CompletedTotal(ctx context.Context, fundraiserID string) (decimal.Decimal, error) {
	row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0)
FROM donations
WHERE fundraiser_id = $1
  AND status = 'completed';
`, fundraiserID)

	var total decimal.Decimal
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SettledSince returns ids of fundraisers with donations that settled after
// the given time. The sweep worker reconciles these to catch up on any
// trigger that failed.
func (r *DonationRepositoryPG) SettledSince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT fundraiser_id
FROM donations
WHERE updated_at >= $1
  AND status IN ('completed', 'refunded');
`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	if err := row.Scan(
		&d.ID,
		&d.FundraiserID,
		&d.UserID,
		&d.Amount,
		&d.Currency,
		&d.Status,
		&d.DonorName,
		&d.Note,
		&d.CountryCode,
		&d.ProviderRef,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
