package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// ResourceLocatorPG resolves resources to their owning group for access
// checks. Resolution failures surface as domain.ErrNotFound before any
// membership lookup happens.
type ResourceLocatorPG struct {
	pool *pgxpool.Pool
}

// NewResourceLocator creates a new ResourceLocatorPG.
func NewResourceLocator(pool *pgxpool.Pool) *ResourceLocatorPG {
	return &ResourceLocatorPG{pool: pool}
}

// GroupOwning returns the id of the group that owns the resource.
func (r *ResourceLocatorPG) GroupOwning(ctx context.Context, kind domain.ResourceKind, id string) (string, error) {
	var query string
	switch kind {
	case domain.ResourceGroup:
		query = `SELECT id FROM groups WHERE id = $1`
	case domain.ResourceFundraiser:
		query = `SELECT group_id FROM fundraisers WHERE id = $1`
	case domain.ResourceMilestone:
		query = `
SELECT f.group_id
FROM milestones m
JOIN fundraisers f ON f.id = m.fundraiser_id
WHERE m.id = $1;
`
	case domain.ResourceShareLink:
		query = `
SELECT f.group_id
FROM share_links l
JOIN fundraisers f ON f.id = l.fundraiser_id
WHERE l.id = $1;
`
	default:
		return "", fmt.Errorf("locate resource: unknown kind %q", kind)
	}

	var groupID string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&groupID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return groupID, nil
}
