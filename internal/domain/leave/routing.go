package leave

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
)

type routingRule struct {
	// managerRoles qualifies the direct manager when they hold any of these.
	managerRoles []auth.Role
	fallback     []auth.Role
}

// Admin applicants are handled separately: they may end up approving their own request.
var initialRouting = map[auth.Role]routingRule{
	auth.RoleHR: {
		fallback: []auth.Role{auth.RoleAdmin},
	},
	auth.RoleDeptManager: {
		fallback: []auth.Role{auth.RoleHR, auth.RoleAdmin},
	},
	auth.RoleTeamLead: {
		managerRoles: []auth.Role{auth.RoleDeptManager},
		fallback:     []auth.Role{auth.RoleDeptManager, auth.RoleHR, auth.RoleAdmin},
	},
	auth.RoleEmployee: {
		managerRoles: []auth.Role{auth.RoleTeamLead, auth.RoleDeptManager, auth.RoleHR},
		fallback:     []auth.Role{auth.RoleTeamLead, auth.RoleHR, auth.RoleAdmin},
	},
}

// Router picks the first approver of a newly submitted request.
type Router struct {
	logger *zap.Logger
}

func NewRouter(logger ...*zap.Logger) *Router {
	l := zap.L().Named("leave.router")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.router")
	}
	return &Router{logger: l}
}

// InitialApprover resolves against view, which should be a single directory snapshot.
func (r *Router) InitialApprover(ctx context.Context, view directory.Reader, applicant directory.User) (directory.User, error) {
	highest, ok := applicant.HighestRole()
	if !ok {
		return directory.User{}, fmt.Errorf("%w: applicant %s holds no role", ErrConfiguration, applicant.ID)
	}

	if highest == auth.RoleAdmin {
		return r.adminApprover(ctx, view, applicant)
	}

	rule := initialRouting[highest]
	if len(rule.managerRoles) > 0 {
		manager, ok, err := view.ManagerOf(ctx, applicant)
		if err != nil {
			return directory.User{}, err
		}
		if ok && manager.ID != applicant.ID && holdsAny(manager, rule.managerRoles) {
			r.logger.Debug("initial approver is direct manager",
				zap.String("applicant_id", applicant.ID),
				zap.String("approver_id", manager.ID),
			)
			return manager, nil
		}
	}

	for _, tier := range rule.fallback {
		candidate, ok, err := firstWithRole(ctx, view, tier, applicant.ID)
		if err != nil {
			return directory.User{}, err
		}
		if ok {
			r.logger.Debug("initial approver from role tier",
				zap.String("applicant_id", applicant.ID),
				zap.String("tier", string(tier)),
				zap.String("approver_id", candidate.ID),
			)
			return candidate, nil
		}
	}

	r.logger.Error("no initial approver available",
		zap.String("applicant_id", applicant.ID),
		zap.String("applicant_role", string(highest)),
	)
	return directory.User{}, fmt.Errorf("%w: no approver for %s applicant %s", ErrConfiguration, highest, applicant.ID)
}

func (r *Router) adminApprover(ctx context.Context, view directory.Reader, applicant directory.User) (directory.User, error) {
	admins, err := view.UsersWithRole(ctx, auth.RoleAdmin)
	if err != nil {
		return directory.User{}, err
	}
	for _, admin := range admins {
		if admin.ID != applicant.ID {
			return admin, nil
		}
	}
	for _, admin := range admins {
		if admin.ID == applicant.ID {
			r.logger.Warn("sole admin assigned as own approver", zap.String("applicant_id", applicant.ID))
			return admin, nil
		}
	}
	return directory.User{}, fmt.Errorf("%w: no admin available for admin applicant %s", ErrConfiguration, applicant.ID)
}

func firstWithRole(ctx context.Context, view directory.Reader, role auth.Role, excludeID string) (directory.User, bool, error) {
	users, err := view.UsersWithRole(ctx, role)
	if err != nil {
		return directory.User{}, false, err
	}
	for _, u := range users {
		if u.ID != excludeID {
			return u, true, nil
		}
	}
	return directory.User{}, false, nil
}

func holdsAny(user directory.User, roles []auth.Role) bool {
	for _, role := range roles {
		if user.HasRole(role) {
			return true
		}
	}
	return false
}
