package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCredentialNotFound = errors.New("credential not found")

type Credential struct {
	UserID       string
	Username     string
	PasswordHash string
	Roles        []Role
}

type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (Credential, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindByUsername(ctx context.Context, username string) (Credential, error) {
	var out Credential
	var roles []string
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.username, u.password_hash,
      COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
    FROM users u
    LEFT JOIN user_roles r ON r.user_id = u.id
    WHERE lower(u.username) = lower($1) AND u.active
    GROUP BY u.id
  `, username).Scan(&out.UserID, &out.Username, &out.PasswordHash, &roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return Credential{}, fmt.Errorf("find credential: %w", err)
	}
	out.Roles, err = ParseRoles(roles)
	if err != nil {
		return Credential{}, err
	}
	return out, nil
}
