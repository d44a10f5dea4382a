package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrder(t *testing.T) {
	for i := 1; i < len(AllRoles); i++ {
		assert.Greater(t, Rank(AllRoles[i]), Rank(AllRoles[i-1]))
	}
	assert.Equal(t, 0, Rank(Role("JANITOR")))
}

func TestSeniorityComparisons(t *testing.T) {
	assert.True(t, IsSeniorTo(RoleHR, RoleDeptManager))
	assert.False(t, IsSeniorTo(RoleTeamLead, RoleTeamLead))
	assert.True(t, IsSameOrSeniorTo(RoleTeamLead, RoleTeamLead))
	assert.False(t, IsSameOrSeniorTo(RoleEmployee, RoleTeamLead))

	// the empty role is always junior
	assert.True(t, IsSeniorTo(RoleEmployee, ""))
	assert.True(t, IsSameOrSeniorTo(RoleEmployee, ""))
}

func TestHighest(t *testing.T) {
	role, ok := Highest([]Role{RoleEmployee, RoleHR, RoleTeamLead})
	require.True(t, ok)
	assert.Equal(t, RoleHR, role)

	_, ok = Highest(nil)
	assert.False(t, ok)
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{"ROLE_ADMIN", "employee", "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleEmployee}, roles)

	_, err = ParseRoles([]string{"boss"})
	assert.Error(t, err)
}
