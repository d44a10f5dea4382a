package leave

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leaveflow/internal/domain/auth"
)

func TestAuthoritySufficient(t *testing.T) {
	table := DefaultAuthority()
	cases := []struct {
		role auth.Role
		days int
		want bool
	}{
		{auth.RoleTeamLead, 2, true},
		{auth.RoleTeamLead, 3, false},
		{auth.RoleDeptManager, 7, true},
		{auth.RoleDeptManager, 8, false},
		{auth.RoleHR, 30, true},
		{auth.RoleHR, 31, false},
		{auth.RoleAdmin, 3650, true},
		{auth.RoleEmployee, 1, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, table.Sufficient(tc.role, tc.days), "%s for %d days", tc.role, tc.days)
	}
}

func TestApprovingRolePriority(t *testing.T) {
	role, ok := ApprovingRole([]auth.Role{auth.RoleTeamLead, auth.RoleHR, auth.RoleEmployee})
	assert.True(t, ok)
	assert.Equal(t, auth.RoleHR, role)

	role, ok = ApprovingRole([]auth.Role{auth.RoleEmployee, auth.RoleDeptManager})
	assert.True(t, ok)
	assert.Equal(t, auth.RoleDeptManager, role)

	_, ok = ApprovingRole([]auth.Role{auth.RoleEmployee})
	assert.False(t, ok)
}
