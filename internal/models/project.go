package models

import "time"

const (
	ProjectStatusActive    = "Active"
	ProjectStatusCompleted = "Completed"
	ProjectStatusOnHold    = "On_Hold"
)

var ProjectStatuses = []string{ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold}

// Project is the unit of work that owns tickets. Deleting a project cascades
// to its tickets and, through them, to their comments. This is the only
// cascading path into the tickets table: the CreatedBy edge restricts, so
// user deletion can never reach tickets through a second route.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:50;not null;default:'Active'" json:"status"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	CreatedByID uint       `gorm:"not null;index" json:"created_by_id"`
	Version     int        `gorm:"not null;default:1" json:"version"`

	// Relationships
	CreatedBy *User    `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"created_by,omitempty"`
	Tickets   []Ticket `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func ValidProjectStatus(status string) bool {
	for _, s := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}
