package models

// Reserved role names. "Admin" and "Developer" are seeded at startup and can
// never be renamed or deleted: "Developer" is the default registration role
// and "Admin" anchors the permission model.
const (
	RoleAdmin          = "Admin"
	RoleDeveloper      = "Developer"
	RoleProjectManager = "Project Manager"
	RoleTester         = "Tester"
)

type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// Relationships
	Users []User `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (r *Role) IsReserved() bool {
	return r.Name == RoleAdmin || r.Name == RoleDeveloper
}
