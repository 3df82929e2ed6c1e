// Package policy defines the role-based permission table shared by the
// staff-facing modules. Keeping the grants in one place makes the
// authorization rules auditable at a glance.
package policy

// User roles.
const (
	RoleMaster = "MASTER"
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
)

// Action names the operations gated by role.
type Action string

const (
	ActionSyncRun         Action = "sync.run"
	ActionSyncLogsRead    Action = "sync.logs.read"
	ActionProposalsRead   Action = "proposals.read"
	ActionCaptureDispatch Action = "captures.dispatch"
	ActionCaptureLink     Action = "captures.link"
	ActionFormAdminEdit   Action = "forms.admin_edit"
	ActionDashboardRead   Action = "dashboard.read"
	ActionClientsManage   Action = "clients.manage"
	ActionClientDelete    Action = "clients.delete"
	ActionExportsRun      Action = "exports.run"
	ActionAuditRead       Action = "audit.read"
	ActionFieldsRead      Action = "fields.read"
)

// grants maps each action to the roles allowed to perform it.
var grants = map[Action][]string{
	ActionSyncRun:         {RoleMaster, RoleAdmin},
	ActionSyncLogsRead:    {RoleMaster, RoleAdmin},
	ActionProposalsRead:   {RoleMaster, RoleAdmin},
	ActionCaptureDispatch: {RoleMaster, RoleAdmin},
	ActionCaptureLink:     {RoleMaster, RoleAdmin},
	ActionFormAdminEdit:   {RoleMaster, RoleAdmin},
	ActionDashboardRead:   {RoleMaster, RoleAdmin},
	ActionClientsManage:   {RoleMaster, RoleAdmin},
	ActionClientDelete:    {RoleMaster},
	ActionExportsRun:      {RoleMaster, RoleAdmin},
	ActionAuditRead:       {RoleMaster},
	ActionFieldsRead:      {RoleMaster, RoleAdmin, RoleClient},
}

// Allows reports whether the role may perform the action.
func Allows(role string, action Action) bool {
	for _, allowed := range grants[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// RolesFor returns the roles granted the action. The returned slice is
// a copy and safe to modify.
func RolesFor(action Action) []string {
	return append([]string(nil), grants[action]...)
}

// IsStaff reports whether the role is a back-office role.
func IsStaff(role string) bool {
	return role == RoleMaster || role == RoleAdmin
}
