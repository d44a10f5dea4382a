package leave

import (
	"context"
	"fmt"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
)

// EscalationResolver decides who acts after role has approved a request of days.
type EscalationResolver struct {
	Authority AuthorityTable
}

// Next reports escalate=false when role's authority covers days or when role is the
// end of the chain. Otherwise it returns the lowest-ID holder of the first populated
// next tier.
func (e EscalationResolver) Next(ctx context.Context, view directory.Reader, role auth.Role, days int) (directory.User, bool, error) {
	if e.Authority.Sufficient(role, days) {
		return directory.User{}, false, nil
	}
	tiers := e.Authority.NextTiers(role)
	if len(tiers) == 0 {
		return directory.User{}, false, nil
	}
	for _, tier := range tiers {
		users, err := view.UsersWithRole(ctx, tier)
		if err != nil {
			return directory.User{}, false, err
		}
		if len(users) > 0 {
			return users[0], true, nil
		}
	}
	return directory.User{}, false, fmt.Errorf("%w: nobody above %s can approve %d days", ErrConfiguration, role, days)
}
