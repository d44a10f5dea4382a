package leave

import "leaveflow/internal/domain/auth"

// AuthorityRule is the most a role may finalize on its own and where it escalates to.
type AuthorityRule struct {
	MaxDays   int
	Unlimited bool
	Next      []auth.Role
}

type AuthorityTable map[auth.Role]AuthorityRule

func DefaultAuthority() AuthorityTable {
	return AuthorityTable{
		auth.RoleTeamLead:    {MaxDays: 2, Next: []auth.Role{auth.RoleDeptManager, auth.RoleHR}},
		auth.RoleDeptManager: {MaxDays: 7, Next: []auth.Role{auth.RoleHR}},
		auth.RoleHR:          {MaxDays: 30},
		auth.RoleAdmin:       {Unlimited: true},
	}
}

// Sufficient reports whether role may finalize a request of days. Roles absent from the table never may.
func (t AuthorityTable) Sufficient(role auth.Role, days int) bool {
	rule, ok := t[role]
	if !ok {
		return false
	}
	return rule.Unlimited || days <= rule.MaxDays
}

func (t AuthorityTable) NextTiers(role auth.Role) []auth.Role {
	return t[role].Next
}

// approvingRoles is the order in which a non-admin approver's roles select their authority.
var approvingRoles = []auth.Role{auth.RoleHR, auth.RoleDeptManager, auth.RoleTeamLead}

// ApprovingRole picks the role whose authority applies when the holder of roles approves.
func ApprovingRole(roles []auth.Role) (auth.Role, bool) {
	for _, candidate := range approvingRoles {
		if auth.HasRole(roles, candidate) {
			return candidate, true
		}
	}
	return "", false
}
