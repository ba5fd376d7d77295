package models

import "time"

const (
	TicketStatusToDo       = "To_Do"
	TicketStatusInProgress = "In_Progress"
	TicketStatusInReview   = "In_Review"
	TicketStatusDone       = "Done"
)

const (
	TicketPriorityLow    = "Low"
	TicketPriorityMedium = "Medium"
	TicketPriorityHigh   = "High"
)

var (
	TicketStatuses   = []string{TicketStatusToDo, TicketStatusInProgress, TicketStatusInReview, TicketStatusDone}
	TicketPriorities = []string{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}
)

// Ticket belongs to a project and optionally to an assignee. CompletedAt is
// non-nil exactly while Status is Done: it is stamped on the transition into
// Done and cleared on the transition away. Transitions between the four
// states are otherwise unrestricted.
type Ticket struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	ProjectID    uint       `gorm:"not null;index" json:"project_id"`
	AssignedToID *uint      `gorm:"index" json:"assigned_to_id"`
	Status       string     `gorm:"size:20;not null;default:'To_Do'" json:"status"`
	Priority     string     `gorm:"size:10;not null;default:'Low'" json:"priority"`
	CreatedByID  uint       `gorm:"not null;index" json:"created_by_id"`
	CreatedAt    time.Time  `json:"created_at"`
	DueDate      *time.Time `json:"due_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	Version      int        `gorm:"not null;default:1" json:"version"`

	// Relationships
	Project    *Project  `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"project,omitempty"`
	AssignedTo *User     `gorm:"foreignKey:AssignedToID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"assigned_to,omitempty"`
	CreatedBy  *User     `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"created_by,omitempty"`
	Comments   []Comment `gorm:"foreignKey:TicketID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func ValidTicketStatus(status string) bool {
	for _, s := range TicketStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func ValidTicketPriority(priority string) bool {
	for _, p := range TicketPriorities {
		if p == priority {
			return true
		}
	}
	return false
}

// ApplyStatus sets the status and keeps the CompletedAt invariant. It does
// not validate the status string; callers reject unknown values first.
func (t *Ticket) ApplyStatus(newStatus string, now time.Time) {
	oldStatus := t.Status
	t.Status = newStatus

	if newStatus == TicketStatusDone && oldStatus != TicketStatusDone {
		completed := now.UTC()
		t.CompletedAt = &completed
	} else if newStatus != TicketStatusDone {
		t.CompletedAt = nil
	}
}
