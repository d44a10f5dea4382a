package auth

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps credentials in process memory. Usernames are case-insensitive.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: map[string]Credential{}}
}

func (m *MemoryStore) Put(cred Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[strings.ToLower(cred.Username)] = cred
}

func (m *MemoryStore) FindByUsername(_ context.Context, username string) (Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cred, nil
}
