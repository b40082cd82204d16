package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// StatsRepositoryPG implements domain.StatsRepository using PostgreSQL.
type StatsRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepositoryPG {
	return &StatsRepositoryPG{pool: pool}
}

// FundraiserStats aggregates donation and milestone figures for one
// fundraiser.
func (r *StatsRepositoryPG) FundraiserStats(ctx context.Context, fundraiserID string) (*domain.FundraiserStats, error) {
	stats := &domain.FundraiserStats{FundraiserID: fundraiserID}

	row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0), COUNT(*)
FROM donations
WHERE fundraiser_id = $1
  AND status = 'completed';
`, fundraiserID)
	if err := row.Scan(&stats.CompletedTotal, &stats.DonationCount); err != nil {
		return nil, err
	}

	row = r.pool.QueryRow(ctx, `
SELECT COUNT(*) FILTER (WHERE achieved), COUNT(*)
FROM milestones
WHERE fundraiser_id = $1;
`, fundraiserID)
	if err := row.Scan(&stats.AchievedMilestones, &stats.TotalMilestones); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT country_code, COUNT(*), COALESCE(SUM(amount), 0)
FROM donations
WHERE fundraiser_id = $1
  AND status = 'completed'
  AND country_code <> ''
GROUP BY country_code
ORDER BY SUM(amount) DESC;
`, fundraiserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.CountryDonations
		if err := rows.Scan(&c.CountryCode, &c.Count, &c.Total); err != nil {
			return nil, err
		}
		stats.ByCountry = append(stats.ByCountry, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
