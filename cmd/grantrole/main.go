// Command grantrole grants or changes a member's role in a group directly
// against the database. It bypasses the API's self-action and rank checks,
// so it can recover groups whose owner is locked out or re-activate a
// removed member.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givepool/internal/domain"
)

func main() {
	var (
		groupFlag string
		emailFlag string
		roleFlag  string
	)

	flag.StringVar(&groupFlag, "group", "", "group ID to grant membership in")
	flag.StringVar(&emailFlag, "email", "", "email of the user receiving the role")
	flag.StringVar(&roleFlag, "role", "", "role to assign (viewer, editor, admin, owner)")
	flag.Parse()

	groupID := strings.TrimSpace(groupFlag)
	email := strings.ToLower(strings.TrimSpace(emailFlag))
	role := domain.MemberRole(strings.ToLower(strings.TrimSpace(roleFlag)))

	if groupID == "" {
		exitWithError(errors.New("-group is required"))
	}
	if email == "" {
		exitWithError(errors.New("-email is required"))
	}
	if !role.Valid() {
		exitWithError(fmt.Errorf("unsupported role %q", roleFlag))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
	var userID, userName string
	err = pool.QueryRow(lookupCtx, `SELECT id, name FROM users WHERE email = $1`, email).
		Scan(&userID, &userName)
	if err == nil {
		var groupName string
		err = pool.QueryRow(lookupCtx, `SELECT name FROM groups WHERE id = $1`, groupID).
			Scan(&groupName)
	}
	cancelLookup()
	if errors.Is(err, pgx.ErrNoRows) {
		exitWithError(fmt.Errorf("no user with email %q or no group with id %q", email, groupID))
	}
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user and group: %w", err))
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()

	row := pool.QueryRow(updateCtx, `
INSERT INTO group_members (id, group_id, user_id, role, status)
VALUES ($1, $2, $3, $4, 'active')
ON CONFLICT (group_id, user_id) WHERE user_id IS NOT NULL
DO UPDATE SET role = EXCLUDED.role, status = 'active', updated_at = NOW()
RETURNING role, status;
`, uuid.NewString(), groupID, userID, role)

	var grantedRole, status string
	if err := row.Scan(&grantedRole, &status); err != nil {
		exitWithError(fmt.Errorf("failed to grant role: %w", err))
	}

	fmt.Printf("User %s (%s) is now %s in group %s (status %s)\n", userName, email, grantedRole, groupID, status)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
