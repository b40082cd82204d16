package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// Create inserts a new user. A duplicate email yields domain.ErrConflict.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) error {
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, password_hash, name, locale)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at;
`, user.ID, user.Email, user.PasswordHash, user.Name, user.Locale)
	err := row.Scan(&user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, name, locale, fcm_token, created_at, updated_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by email address.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, name, locale, fcm_token, created_at, updated_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// SetFCMToken stores the device token used for push notifications.
func (r *UserRepositoryPG) SetFCMToken(ctx context.Context, userID, token string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET fcm_token = $2,
    updated_at = NOW()
WHERE id = $1;
`, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Locale, &u.FCMToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
