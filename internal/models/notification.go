package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationChannelRealtime = "realtime"
	NotificationChannelEmail    = "email"
)

const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// Notification is an audit record of a dispatched event. Rows are written
// best-effort after the originating transaction commits; a failed insert is
// logged and never affects the mutation that produced the event.
type Notification struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EntityType string         `gorm:"size:50;not null;index" json:"entity_type"`
	EntityID   uint           `gorm:"not null;index" json:"entity_id"`
	Action     string         `gorm:"size:50;not null" json:"action"`
	Channel    string         `gorm:"size:20;not null" json:"channel"`
	Status     string         `gorm:"size:20;not null" json:"status"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}
