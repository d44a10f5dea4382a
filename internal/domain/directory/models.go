package directory

import (
	"time"

	"leaveflow/internal/domain/auth"
)

// User is a directory entry. ManagerID is a weak reference and may be empty.
type User struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	FullName   string      `json:"fullName"`
	Email      string      `json:"email,omitempty"`
	Department string      `json:"department,omitempty"`
	Roles      []auth.Role `json:"roles"`
	ManagerID  string      `json:"managerId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (u User) HasRole(role auth.Role) bool {
	return auth.HasRole(u.Roles, role)
}

func (u User) HighestRole() (auth.Role, bool) {
	return auth.Highest(u.Roles)
}

func (u User) clone() User {
	out := u
	out.Roles = append([]auth.Role(nil), u.Roles...)
	return out
}
