package directory

import (
	"context"
	"errors"

	"leaveflow/internal/domain/auth"
)

var ErrUserNotFound = errors.New("user not found")

// Reader is a read-only view of the directory.
type Reader interface {
	GetUser(ctx context.Context, id string) (User, error)
	// UsersWithRole returns holders of role ordered by ascending ID.
	UsersWithRole(ctx context.Context, role auth.Role) ([]User, error)
	// ManagerOf follows exactly one manager hop. A dangling reference reports false.
	ManagerOf(ctx context.Context, user User) (User, bool, error)
}

type Directory interface {
	Reader
	// Snapshot runs fn against a view that does not change for the duration of the call.
	Snapshot(ctx context.Context, fn func(Reader) error) error
	ListUsers(ctx context.Context) ([]User, error)
}
