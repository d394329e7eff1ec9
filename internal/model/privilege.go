package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g. "session:finalize"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivilegeSessionReview   = "session:review"
	PrivilegeSessionFinalize = "session:finalize"
	PrivilegeDashboardView   = "dashboard:view"
)

var DefaultPrivileges = []Privilege{
	{Code: PrivilegeSessionReview, Name: "Review Count Session"},
	{Code: PrivilegeSessionFinalize, Name: "Finalize Count Session"},
	{Code: PrivilegeDashboardView, Name: "View Dashboard"},
}
