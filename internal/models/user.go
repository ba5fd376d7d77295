package models

import "time"

// User is the root actor of the system. Users are never hard-deleted in
// normal operation: removal flips IsDeleted so that historical tickets and
// comments keep a valid author. The restrict constraints on the CreatedBy
// edges make an accidental hard delete fail loudly instead of cascading.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	RoleID       uint      `gorm:"not null;index" json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
	IsVerified   bool      `gorm:"not null;default:false" json:"is_verified"`
	IsDeleted    bool      `gorm:"not null;default:false;index" json:"is_deleted"`

	// Relationships
	Role            *Role     `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"role,omitempty"`
	CreatedProjects []Project `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	CreatedTickets  []Ticket  `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	AssignedTickets []Ticket  `gorm:"foreignKey:AssignedToID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Comments        []Comment `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// IsActive reports whether the account may authenticate and receive work.
func (u *User) IsActive() bool {
	return !u.IsDeleted && u.IsVerified
}

func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}
