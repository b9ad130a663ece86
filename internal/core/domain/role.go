package domain

// Role is the coarse access tier assigned to a principal.
type Role string

const (
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// NormalizeRole maps an arbitrary role string to a recognized Role.
// Anything other than "user" or "guest" (including the empty string)
// resolves to RoleGuest, the safe default.
func NormalizeRole(s string) Role {
	switch Role(s) {
	case RoleUser:
		return RoleUser
	case RoleGuest:
		return RoleGuest
	default:
		return RoleGuest
	}
}

// PermissionSet is the fixed table of capabilities a role grants. The
// resolver only reports flags; enforcement is the transport layer's job.
type PermissionSet struct {
	CanCreateTasks    bool `json:"canCreateTasks"`
	CanEditAllTasks   bool `json:"canEditAllTasks"`
	CanDeleteAllTasks bool `json:"canDeleteAllTasks"`
	CanDeleteOwnTasks bool `json:"canDeleteOwnTasks"`
	CanAssignTasks    bool `json:"canAssignTasks"`
	CanAccessCalendar bool `json:"canAccessCalendar"`
	CanAccessReports  bool `json:"canAccessReports"`
}

var permissionTable = map[Role]PermissionSet{
	RoleUser: {
		CanCreateTasks:    true,
		CanEditAllTasks:   true,
		CanDeleteAllTasks: true,
		CanDeleteOwnTasks: true,
		CanAssignTasks:    true,
		CanAccessCalendar: true,
		CanAccessReports:  false,
	},
	RoleGuest: {
		CanCreateTasks:    true,
		CanEditAllTasks:   false,
		CanDeleteAllTasks: false,
		CanDeleteOwnTasks: true,
		CanAssignTasks:    false,
		CanAccessCalendar: true,
		CanAccessReports:  false,
	},
}

// Permissions resolves the capability set for r. Total and deterministic:
// unrecognized roles receive the guest set.
func (r Role) Permissions() PermissionSet {
	if set, ok := permissionTable[r]; ok {
		return set
	}
	return permissionTable[RoleGuest]
}

// ResolvePermissions normalizes an arbitrary role string and returns its
// capability set in one step.
func ResolvePermissions(role string) PermissionSet {
	return NormalizeRole(role).Permissions()
}
