package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// GroupRepositoryPG implements domain.GroupRepository backed by PostgreSQL.
type GroupRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGroupRepository creates a new GroupRepositoryPG.
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepositoryPG {
	return &GroupRepositoryPG{pool: pool}
}

// CreateWithOwner inserts the group and its owner membership in a single
// transaction so a group can never exist without an active owner.
func (r *GroupRepositoryPG) CreateWithOwner(ctx context.Context, group *domain.Group, owner *domain.GroupMember) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO groups (id, name, type, owner_id)
VALUES ($1, $2, $3, $4);
`, group.ID, group.Name, group.Type, group.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO group_members (id, group_id, user_id, invite_email, role, status)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6);
`, owner.ID, owner.GroupID, owner.UserID, owner.InviteEmail, owner.Role, owner.Status)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID fetches a group by its identifier.
func (r *GroupRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, type, owner_id, created_at, updated_at FROM groups WHERE id = $1`, id)
	return scanGroup(row)
}

// ListByUser returns the groups in which the user holds an active membership.
func (r *GroupRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Group, error) {
	rows, err := r.pool.Query(ctx, `
SELECT g.id, g.name, g.type, g.owner_id, g.created_at, g.updated_at
FROM groups g
JOIN group_members m ON m.group_id = g.id
WHERE m.user_id = $1
  AND m.status = 'active'
ORDER BY g.created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Invite inserts a pending membership addressed by email. A second pending
// invite for the same address yields domain.ErrConflict.
func (r *GroupRepositoryPG) Invite(ctx context.Context, member *domain.GroupMember) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO group_members (id, group_id, user_id, invite_email, role, status)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6);
`, member.ID, member.GroupID, member.UserID, member.InviteEmail, member.Role, member.Status)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// AcceptInvite binds a pending invite to the accepting user and activates it.
// Returns domain.ErrNotFound when no pending invite matches the email and
// domain.ErrConflict when the user is already an active member.
func (r *GroupRepositoryPG) AcceptInvite(ctx context.Context, groupID, email, userID string) (*domain.GroupMember, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE group_members
SET user_id = $3,
    status = 'active',
    updated_at = NOW()
WHERE group_id = $1
  AND invite_email = $2
  AND status = 'invited'
RETURNING id, group_id, COALESCE(user_id, ''), COALESCE(invite_email, ''), role, status, created_at, updated_at;
`, groupID, email, userID)

	member, err := scanMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return member, nil
}

// UpdateMemberRole changes the role of an active member.
func (r *GroupRepositoryPG) UpdateMemberRole(ctx context.Context, groupID, userID string, role domain.MemberRole) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE group_members
SET role = $3,
    updated_at = NOW()
WHERE group_id = $1
  AND user_id = $2
  AND status = 'active';
`, groupID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RemoveMember marks an active membership as removed. The row is kept for
// the audit trail; removed members no longer pass access checks.
func (r *GroupRepositoryPG) RemoveMember(ctx context.Context, groupID, userID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE group_members
SET status = 'removed',
    updated_at = NOW()
WHERE group_id = $1
  AND user_id = $2
  AND status = 'active';
`, groupID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListMembers returns active and invited memberships of the group.
func (r *GroupRepositoryPG) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, group_id, COALESCE(user_id, ''), COALESCE(invite_email, ''), role, status, created_at, updated_at
FROM group_members
WHERE group_id = $1
  AND status <> 'removed'
ORDER BY created_at ASC;
`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.InviteEmail, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindActiveMembership returns the user's active membership in the group.
func (r *GroupRepositoryPG) FindActiveMembership(ctx context.Context, userID, groupID string) (*domain.GroupMember, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, group_id, COALESCE(user_id, ''), COALESCE(invite_email, ''), role, status, created_at, updated_at
FROM group_members
WHERE group_id = $2
  AND user_id = $1
  AND status = 'active';
`, userID, groupID)
	return scanMember(row)
}

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Type, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func scanMember(row pgx.Row) (*domain.GroupMember, error) {
	var m domain.GroupMember
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.InviteEmail, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
