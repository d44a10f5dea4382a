package leave

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
)

func person(id, managerID string, roles ...auth.Role) directory.User {
	return directory.User{ID: id, Username: id, FullName: id, Roles: roles, ManagerID: managerID}
}

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type counter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *counter) RecordDecision(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
}

func (c *counter) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[outcome]
}

type fixture struct {
	svc      *Service
	store    *MemoryStore
	dir      *directory.Memory
	clock    *stepClock
	recorder *counter
}

func newFixture(t *testing.T, users ...directory.User) *fixture {
	t.Helper()
	var mu sync.Mutex
	seq := 0
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%04d", seq)
	}

	f := &fixture{
		store:    NewMemoryStore(),
		dir:      directory.NewMemory(users...),
		clock:    &stepClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), step: time.Second},
		recorder: &counter{outcomes: map[string]int{}},
	}
	f.svc = NewService(f.store, f.dir,
		WithClock(f.clock.Now),
		WithIDGenerator(ids),
		WithRecorder(f.recorder),
		WithLogger(zap.NewNop()),
	)
	return f
}

// submit files a request of days starting on 2025-07-01.
func (f *fixture) submit(t *testing.T, applicantID string, days int) Request {
	t.Helper()
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	req, err := f.svc.Submit(context.Background(), SubmitInput{
		ApplicantID: applicantID,
		LeaveType:   LeaveAnnual,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, days-1),
		Reason:      "annual holiday",
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) act(requestID, actorID string, decision Decision, comments string) (Detail, error) {
	return f.svc.Act(context.Background(), ActionInput{
		RequestID: requestID,
		ActorID:   actorID,
		Decision:  decision,
		Comments:  comments,
	})
}

// org is a small but complete organisation used by most tests.
func org() []directory.User {
	return []directory.User{
		person("admin-1", "", auth.RoleAdmin, auth.RoleEmployee),
		person("hr-1", "", auth.RoleHR, auth.RoleEmployee),
		person("dm-1", "hr-1", auth.RoleDeptManager, auth.RoleEmployee),
		person("tl-1", "dm-1", auth.RoleTeamLead, auth.RoleEmployee),
		person("emp-1", "tl-1", auth.RoleEmployee),
		person("emp-2", "dm-1", auth.RoleEmployee),
	}
}
