package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/platform/fixtures"
)

// Seed inserts fixture users that do not exist yet. Existing users are left untouched,
// so edits made after the first start survive restarts.
func Seed(ctx context.Context, pool *pgxpool.Pool, users fixtures.File, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		created := 0
		for _, u := range users.Users {
			ok, err := ensureUser(ctx, tx, u)
			if err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
			if ok {
				created++
			}
		}
		if err := linkManagers(ctx, tx, users); err != nil {
			return err
		}
		logger.Info("directory seeded", zap.Int("created", created), zap.Int("fixtures", len(users.Users)))
		return nil
	})
}

func ensureUser(ctx context.Context, q Querier, u fixtures.User) (bool, error) {
	var id string
	err := q.QueryRow(ctx, "SELECT id FROM users WHERE lower(username) = lower($1)", u.Username).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	roles, err := auth.ParseRoles(u.Roles)
	if err != nil {
		return false, err
	}
	hash := ""
	if u.Password != "" {
		if hash, err = auth.HashPassword(u.Password); err != nil {
			return false, err
		}
	}

	if _, err := q.Exec(ctx, `
    INSERT INTO users (id, username, full_name, email, department, password_hash)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, u.ID, u.Username, u.FullName, u.Email, u.Department, hash); err != nil {
		return false, err
	}
	for _, role := range roles {
		if _, err := q.Exec(ctx, "INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING", u.ID, string(role)); err != nil {
			return false, err
		}
	}
	return true, nil
}

// linkManagers runs after every user exists so fixtures may reference managers listed later.
func linkManagers(ctx context.Context, q Querier, users fixtures.File) error {
	for _, u := range users.Users {
		if u.Manager == "" {
			continue
		}
		if _, err := q.Exec(ctx, "UPDATE users SET manager_id = $1 WHERE id = $2 AND manager_id IS NULL", u.Manager, u.ID); err != nil {
			return fmt.Errorf("link manager of %s: %w", u.Username, err)
		}
	}
	return nil
}
