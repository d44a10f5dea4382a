package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leaveflow/internal/domain/auth"
)

const selectUsers = `
    SELECT u.id, u.username, u.full_name, u.email, u.department, COALESCE(u.manager_id, ''), u.created_at,
      COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
    FROM users u
    LEFT JOIN user_roles r ON r.user_id = u.id
`

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	return queryReader{q: s.DB}.GetUser(ctx, id)
}

func (s *Store) UsersWithRole(ctx context.Context, role auth.Role) ([]User, error) {
	return queryReader{q: s.DB}.UsersWithRole(ctx, role)
}

func (s *Store) ManagerOf(ctx context.Context, user User) (User, bool, error) {
	return queryReader{q: s.DB}.ManagerOf(ctx, user)
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.DB.Query(ctx, selectUsers+`
    WHERE u.active
    GROUP BY u.id
    ORDER BY u.id COLLATE "C"
  `)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

// Snapshot runs fn inside a read-only repeatable-read transaction.
func (s *Store) Snapshot(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin directory snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(queryReader{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// querier mirrors db.Querier; importing platform/db here would create an
// import cycle (db -> fixtures -> directory).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queryReader struct {
	q querier
}

func (r queryReader) GetUser(ctx context.Context, id string) (User, error) {
	rows, err := r.q.Query(ctx, selectUsers+`
    WHERE u.id = $1 AND u.active
    GROUP BY u.id
  `, id)
	if err != nil {
		return User{}, err
	}
	users, err := scanUsers(rows)
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return users[0], nil
}

func (r queryReader) UsersWithRole(ctx context.Context, role auth.Role) ([]User, error) {
	rows, err := r.q.Query(ctx, selectUsers+`
    WHERE u.active AND EXISTS (
      SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = $1
    )
    GROUP BY u.id
    ORDER BY u.id COLLATE "C"
  `, string(role))
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (r queryReader) ManagerOf(ctx context.Context, user User) (User, bool, error) {
	if user.ManagerID == "" {
		return User{}, false, nil
	}
	manager, err := r.GetUser(ctx, user.ManagerID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return manager, true, nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var roles []string
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Department, &u.ManagerID, &u.CreatedAt, &roles); err != nil {
			return nil, err
		}
		parsed, err := auth.ParseRoles(roles)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		u.Roles = parsed
		out = append(out, u)
	}
	return out, rows.Err()
}
