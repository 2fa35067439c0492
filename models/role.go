// models/role.go
package models

type Role string

const (
	RoleAuditor         Role = "auditor"          // raises findings
	RoleDepartmentOwner Role = "department_owner" // analyzes root causes, assigns actions
	RoleActionOwner     Role = "action_owner"     // executes and evidences assigned work
	RoleLeadAuditor     Role = "lead_auditor"     // second-tier review authority
)

func (r Role) Valid() bool {
	switch r {
	case RoleAuditor, RoleDepartmentOwner, RoleActionOwner, RoleLeadAuditor:
		return true
	}
	return false
}
