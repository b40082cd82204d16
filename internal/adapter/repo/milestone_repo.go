package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// MilestoneRepositoryPG implements domain.MilestoneRepository backed by
// PostgreSQL.
type MilestoneRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewMilestoneRepository creates a new MilestoneRepositoryPG.
func NewMilestoneRepository(pool *pgxpool.Pool) *MilestoneRepositoryPG {
	return &MilestoneRepositoryPG{pool: pool}
}

// Create inserts a new milestone. A duplicate step number within the
// fundraiser yields domain.ErrConflict.
func (r *MilestoneRepositoryPG) Create(ctx context.Context, milestone *domain.Milestone) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO milestones (id, fundraiser_id, step_number, title, amount)
VALUES ($1, $2, $3, $4, $5);
`,
		milestone.ID,
		milestone.FundraiserID,
		milestone.StepNumber,
		milestone.Title,
		milestone.Amount,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// GetByID fetches a milestone by its identifier.
func (r *MilestoneRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Milestone, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, fundraiser_id, step_number, title, amount, achieved, achieved_at, COALESCE(completion_note, ''), created_at, updated_at
FROM milestones
WHERE id = $1;
`, id)
	return scanMilestone(row)
}

// Update rewrites the editable milestone fields. Moving the milestone onto an
// occupied step number yields domain.ErrConflict.
func (r *MilestoneRepositoryPG) Update(ctx context.Context, milestone *domain.Milestone) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET step_number = $2,
    title = $3,
    amount = $4,
    updated_at = NOW()
WHERE id = $1;
`, milestone.ID, milestone.StepNumber, milestone.Title, milestone.Amount)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Annotate stores the completion note of an achieved milestone.
func (r *MilestoneRepositoryPG) Annotate(ctx context.Context, id, completionNote string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET completion_note = $2,
    updated_at = NOW()
WHERE id = $1;
`, id, completionNote)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a milestone.
func (r *MilestoneRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM milestones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByFundraiser returns the fundraiser's milestones ordered by step
// number ascending.
func (r *MilestoneRepositoryPG) ListByFundraiser(ctx context.Context, fundraiserID string) ([]domain.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, fundraiser_id, step_number, title, amount, achieved, achieved_at, COALESCE(completion_note, ''), created_at, updated_at
FROM milestones
WHERE fundraiser_id = $1
ORDER BY step_number ASC;
`, fundraiserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		if err := rows.Scan(
			&m.ID,
			&m.FundraiserID,
			&m.StepNumber,
			&m.Title,
			&m.Amount,
			&m.Achieved,
			&m.AchievedAt,
			&m.CompletionNote,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ApplyTransitions flips achievement flags inside a single transaction so a
// reconcile pass commits entirely or not at all.
func (r *MilestoneRepositoryPG) ApplyTransitions(ctx context.Context, fundraiserID string, transitions []domain.MilestoneTransition) error {
	if len(transitions) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, tr := range transitions {
		tag, err := tx.Exec(ctx, `
UPDATE milestones
SET achieved = $2,
    achieved_at = $3,
    updated_at = NOW()
WHERE id = $1
  AND fundraiser_id = $4;
`, tr.MilestoneID, tr.Achieved, tr.AchievedAt, fundraiserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

func scanMilestone(row pgx.Row) (*domain.Milestone, error) {
	var m domain.Milestone
	if err := row.Scan(
		&m.ID,
		&m.FundraiserID,
		&m.StepNumber,
		&m.Title,
		&m.Amount,
		&m.Achieved,
		&m.AchievedAt,
		&m.CompletionNote,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
