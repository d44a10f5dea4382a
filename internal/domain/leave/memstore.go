package leave

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]Request
	history  map[string][]HistoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: map[string]Request{},
		history:  map[string][]HistoryEntry{},
	}
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("%w: leave request %s", ErrNotFound, id)
	}
	return req, nil
}

func (m *MemoryStore) CreateRequest(_ context.Context, req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[req.ID]; exists {
		return fmt.Errorf("%w: leave request %s already exists", ErrConflict, req.ID)
	}
	m.requests[req.ID] = req
	return nil
}

func (m *MemoryStore) Transition(_ context.Context, req Request, expectedVersion int64, entry *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[req.ID]
	if !ok {
		return fmt.Errorf("%w: leave request %s", ErrNotFound, req.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: leave request %s is at version %d, expected %d", ErrConflict, req.ID, stored.Version, expectedVersion)
	}
	m.requests[req.ID] = req
	if entry != nil {
		m.history[req.ID] = append(m.history[req.ID], *entry)
	}
	return nil
}

func (m *MemoryStore) HistoryFor(_ context.Context, requestID string) ([]HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.history[requestID]
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *MemoryStore) ListByApplicant(_ context.Context, applicantID string, page Page) ([]Request, error) {
	return m.filter(page, func(r Request) bool { return r.ApplicantID == applicantID }), nil
}

func (m *MemoryStore) ListPendingFor(_ context.Context, approverID string, page Page) ([]Request, error) {
	return m.filter(page, func(r Request) bool {
		return r.Status == StatusPending && r.CurrentApproverID == approverID
	}), nil
}

func (m *MemoryStore) ListByStatus(_ context.Context, status Status, page Page) ([]Request, error) {
	return m.filter(page, func(r Request) bool { return r.Status == status }), nil
}

func (m *MemoryStore) filter(page Page, keep func(Request) bool) []Request {
	m.mu.RLock()
	out := []Request{}
	for _, r := range m.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	start, end := page.bounds(len(out))
	return out[start:end]
}
