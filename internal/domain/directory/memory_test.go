package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveflow/internal/domain/auth"
)

func TestUsersWithRoleOrderedByID(t *testing.T) {
	dir := NewMemory(
		User{ID: "u-3", Roles: []auth.Role{auth.RoleHR}},
		User{ID: "u-1", Roles: []auth.Role{auth.RoleHR, auth.RoleEmployee}},
		User{ID: "u-2", Roles: []auth.Role{auth.RoleEmployee}},
	)

	users, err := dir.UsersWithRole(context.Background(), auth.RoleHR)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u-1", users[0].ID)
	assert.Equal(t, "u-3", users[1].ID)
}

func TestManagerOfFollowsOneHop(t *testing.T) {
	// a cycle must not matter: only one hop is ever taken
	dir := NewMemory(
		User{ID: "a", ManagerID: "b", Roles: []auth.Role{auth.RoleEmployee}},
		User{ID: "b", ManagerID: "a", Roles: []auth.Role{auth.RoleTeamLead}},
		User{ID: "c", ManagerID: "gone", Roles: []auth.Role{auth.RoleEmployee}},
	)
	ctx := context.Background()

	a, err := dir.GetUser(ctx, "a")
	require.NoError(t, err)
	mgr, ok, err := dir.ManagerOf(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", mgr.ID)

	c, err := dir.GetUser(ctx, "c")
	require.NoError(t, err)
	_, ok, err = dir.ManagerOf(ctx, c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetUserNotFound(t *testing.T) {
	_, err := NewMemory().GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestReturnedUsersAreCopies(t *testing.T) {
	dir := NewMemory(User{ID: "u-1", Roles: []auth.Role{auth.RoleEmployee}})
	u, err := dir.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	u.Roles[0] = auth.RoleAdmin

	again, err := dir.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleEmployee, again.Roles[0])
}

func TestSnapshotHoldsWritersOff(t *testing.T) {
	dir := NewMemory(User{ID: "hr-1", Roles: []auth.Role{auth.RoleHR}})
	ctx := context.Background()
	written := make(chan struct{})

	err := dir.Snapshot(ctx, func(r Reader) error {
		go func() {
			dir.Put(User{ID: "hr-0", Roles: []auth.Role{auth.RoleHR}})
			close(written)
		}()
		time.Sleep(20 * time.Millisecond)

		users, err := r.UsersWithRole(ctx, auth.RoleHR)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		return nil
	})
	require.NoError(t, err)

	<-written
	users, err := dir.UsersWithRole(ctx, auth.RoleHR)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "hr-0", users[0].ID)
}
