package auth

const (
	PermLeaveRead     = "leave.read"
	PermLeaveWrite    = "leave.write"
	PermLeaveApprove  = "leave.approve"
	PermLeaveAdmin    = "leave.admin"
	PermDirectoryRead = "directory.read"
)

// RolePermissions holds the permissions granted directly to each role.
// Seniors inherit from juniors through RoleInheritance.
var RolePermissions = map[Role][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
		PermDirectoryRead,
	},
	RoleTeamLead: {
		PermLeaveApprove,
	},
	RoleAdmin: {
		PermLeaveAdmin,
	},
}

// RoleInheritance maps a role to the role whose permissions it also holds.
var RoleInheritance = map[Role]Role{
	RoleTeamLead:    RoleEmployee,
	RoleDeptManager: RoleTeamLead,
	RoleHR:          RoleDeptManager,
	RoleAdmin:       RoleHR,
}
