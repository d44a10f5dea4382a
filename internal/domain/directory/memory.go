package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"leaveflow/internal/domain/auth"
)

// Memory is an in-process Directory. Writers block while a snapshot is open.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemory(users ...User) *Memory {
	m := &Memory{users: map[string]User{}}
	for _, u := range users {
		m.users[u.ID] = u.clone()
	}
	return m
}

func (m *Memory) Put(user User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user.clone()
}

func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *Memory) GetUser(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.GetUser(ctx, id)
}

func (m *Memory) UsersWithRole(ctx context.Context, role auth.Role) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.UsersWithRole(ctx, role)
}

func (m *Memory) ManagerOf(ctx context.Context, user User) (User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.ManagerOf(ctx, user)
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.clone())
	}
	sortByID(out)
	return out, nil
}

func (m *Memory) Snapshot(_ context.Context, fn func(Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(memReader{m})
}

// memReader reads without locking; callers hold m.mu.
type memReader struct {
	m *Memory
}

func (r memReader) GetUser(_ context.Context, id string) (User, error) {
	u, ok := r.m.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u.clone(), nil
}

func (r memReader) UsersWithRole(_ context.Context, role auth.Role) ([]User, error) {
	var out []User
	for _, u := range r.m.users {
		if u.HasRole(role) {
			out = append(out, u.clone())
		}
	}
	sortByID(out)
	return out, nil
}

func (r memReader) ManagerOf(_ context.Context, user User) (User, bool, error) {
	if user.ManagerID == "" {
		return User{}, false, nil
	}
	manager, ok := r.m.users[user.ManagerID]
	if !ok {
		return User{}, false, nil
	}
	return manager.clone(), true, nil
}

func sortByID(users []User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
