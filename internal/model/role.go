package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleSupervisor = "SUPERVISOR"
	RoleAssociate  = "ASSOCIATE"
)

var DefaultRoles = []Role{
	{
		Code:        RoleSupervisor,
		Name:        "Supervisor",
		Description: "Reviews and finalizes count sessions",
	},
	{
		Code:        RoleAssociate,
		Name:        "Associate",
		Description: "Scans locations and products",
	},
}

// DefaultRolePrivileges lists the privilege codes each seeded role starts with.
var DefaultRolePrivileges = map[string][]string{
	RoleSupervisor: {PrivilegeSessionReview, PrivilegeSessionFinalize, PrivilegeDashboardView},
	RoleAssociate:  {},
}
