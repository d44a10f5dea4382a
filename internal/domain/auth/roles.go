package auth

import (
	"fmt"
	"strings"
)

// Role is an organizational role. Ranks are fixed and strictly increasing.
type Role string

const (
	RoleEmployee    Role = "EMPLOYEE"
	RoleTeamLead    Role = "TEAM_LEAD"
	RoleDeptManager Role = "DEPT_MANAGER"
	RoleHR          Role = "HR"
	RoleAdmin       Role = "ADMIN"
)

// AllRoles lists every role in ascending rank.
var AllRoles = []Role{RoleEmployee, RoleTeamLead, RoleDeptManager, RoleHR, RoleAdmin}

var roleRanks = map[Role]int{
	RoleEmployee:    1,
	RoleTeamLead:    2,
	RoleDeptManager: 3,
	RoleHR:          4,
	RoleAdmin:       5,
}

// Rank returns the numeric rank of role, or 0 for an unknown role.
func Rank(role Role) int {
	return roleRanks[role]
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// IsSeniorTo reports whether a outranks b. Any role is senior to the empty role.
func IsSeniorTo(a, b Role) bool {
	if b == "" {
		return true
	}
	return Rank(a) > Rank(b)
}

// IsSameOrSeniorTo reports whether a ranks at or above b. Any role is senior to the empty role.
func IsSameOrSeniorTo(a, b Role) bool {
	if b == "" {
		return true
	}
	return Rank(a) >= Rank(b)
}

// Highest returns the max-rank member of roles; false for an empty set.
func Highest(roles []Role) (Role, bool) {
	var best Role
	for _, role := range roles {
		if !role.Valid() {
			continue
		}
		if best == "" || Rank(role) > Rank(best) {
			best = role
		}
	}
	return best, best != ""
}

func HasRole(roles []Role, want Role) bool {
	for _, role := range roles {
		if role == want {
			return true
		}
	}
	return false
}

// ParseRole accepts the canonical name with or without the ROLE_ prefix.
func ParseRole(raw string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, "ROLE_")
	role := Role(normalized)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

func ParseRoles(raw []string) ([]Role, error) {
	out := make([]Role, 0, len(raw))
	for _, value := range raw {
		role, err := ParseRole(value)
		if err != nil {
			return nil, err
		}
		if !HasRole(out, role) {
			out = append(out, role)
		}
	}
	return out, nil
}

func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
