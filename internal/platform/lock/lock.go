// Package lock serializes work per key without waiting for a holder to finish.
package lock

import (
	"context"
	"errors"
)

var ErrLocked = errors.New("lock held by another operation")

type Locker interface {
	// TryLock takes key immediately or fails with ErrLocked. Release is safe to call more than once.
	TryLock(ctx context.Context, key string) (release func(), err error)
}
