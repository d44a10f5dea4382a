package auth

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `[request_definition]
r = sub, perm

[policy_definition]
p = sub, perm

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.perm == p.perm
`

// Enforcer answers role/permission checks from RolePermissions and RoleInheritance.
type Enforcer struct {
	casbin *casbin.SyncedEnforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}

	for role, perms := range RolePermissions {
		for _, perm := range perms {
			if _, err := e.AddPolicy(string(role), perm); err != nil {
				return nil, err
			}
		}
	}
	for child, parent := range RoleInheritance {
		if _, err := e.AddGroupingPolicy(string(child), string(parent)); err != nil {
			return nil, err
		}
	}

	return &Enforcer{casbin: e}, nil
}

// HasPermission reports whether any of roles grants permission.
func (e *Enforcer) HasPermission(_ context.Context, roles []Role, permission string) (bool, error) {
	for _, role := range roles {
		ok, err := e.casbin.Enforce(string(role), permission)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
