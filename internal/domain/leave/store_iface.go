package leave

import "context"

type Store interface {
	// GetRequest fails with ErrNotFound for an unknown id.
	GetRequest(ctx context.Context, id string) (Request, error)
	CreateRequest(ctx context.Context, req Request) error
	// Transition replaces the stored request only if its version still equals
	// expectedVersion, appending entry in the same unit of work when non-nil.
	// A stale version fails with ErrConflict and writes nothing.
	Transition(ctx context.Context, req Request, expectedVersion int64, entry *HistoryEntry) error
	// HistoryFor returns entries oldest first.
	HistoryFor(ctx context.Context, requestID string) ([]HistoryEntry, error)
	// List queries return newest first.
	ListByApplicant(ctx context.Context, applicantID string, page Page) ([]Request, error)
	ListPendingFor(ctx context.Context, approverID string, page Page) ([]Request, error)
	ListByStatus(ctx context.Context, status Status, page Page) ([]Request, error)
}
