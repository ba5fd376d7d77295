package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/TraderJoe97/stackflow/internal/models"
	"gorm.io/gorm"
)

// Event describes what changed, not the full entity. Clients re-fetch what
// they care about.
type Event struct {
	EntityType string `json:"entityType"`
	EntityID   uint   `json:"entityId"`
	Action     string `json:"action"`
	OldStatus  string `json:"oldStatus,omitempty"`
}

const (
	EntityTicket  = "ticket"
	EntityProject = "project"
	EntityUser    = "user"
)

const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionCommented   = "commented"
	ActionRoleUpdated = "roleUpdated"
	ActionVerified    = "verified"

	// ActionDueSoon is only ever recorded for email reminders, never
	// broadcast over the realtime channel.
	ActionDueSoon = "dueSoon"
)

// Email template keys. Each corresponds to EmailTemplates/<Key>.html.
const (
	TemplateNewTicketCreated        = "NewTicketCreated"
	TemplateTicketAssigned          = "TicketAssigned"
	TemplateTicketStatusUpdated     = "TicketStatusUpdated"
	TemplateTicketDueSoon           = "TicketDueSoon"
	TemplateNewCommentAdded         = "NewCommentAdded"
	TemplateAccountVerified         = "AccountVerified"
	TemplateAccountDeleted          = "AccountDeleted"
	TemplateAdminTicketReassignment = "AdminTicketReassignment"
)

// Broadcaster pushes an event to every connected realtime client.
type Broadcaster interface {
	Broadcast(event Event)
}

// EmailIntent is a fully resolved request to notify a set of users by email.
type EmailIntent struct {
	Recipients   []models.User
	TemplateKey  string
	Subject      string
	Placeholders map[string]string

	// Audit fields for the notifications table.
	EntityType string
	EntityID   uint
	Action     string
}

// Notifier dispatches realtime events and email intents after a core
// transaction has committed. Dispatch is fire-and-forget: failures are
// logged and recorded, never surfaced to the mutation that produced them.
type Notifier struct {
	DB          *gorm.DB
	Hub         Broadcaster
	Mailer      Mailer
	TemplateDir string
	BaseURL     string
}

// Dispatch broadcasts the event to realtime listeners asynchronously.
func (n *Notifier) Dispatch(event Event) {
	if n == nil {
		return
	}
	go n.dispatch(event)
}

func (n *Notifier) dispatch(event Event) {
	if n.Hub != nil {
		n.Hub.Broadcast(event)
	}
	n.record(event.EntityType, event.EntityID, event.Action, models.NotificationChannelRealtime, models.NotificationStatusSent, event)
}

// SendEmail renders the template once and delivers it to every recipient
// asynchronously.
func (n *Notifier) SendEmail(intent EmailIntent) {
	if n == nil {
		return
	}
	go n.deliver(intent)
}

func (n *Notifier) deliver(intent EmailIntent) {
	if n.Mailer == nil || len(intent.Recipients) == 0 {
		return
	}

	body := LoadTemplateAndPopulate(n.TemplateDir, intent.TemplateKey, intent.Placeholders)

	status := models.NotificationStatusSent
	for _, recipient := range intent.Recipients {
		if err := n.Mailer.Send(recipient.Email, intent.Subject, body); err != nil {
			log.Printf("Failed to send %q email to %s: %v", intent.TemplateKey, recipient.Email, err)
			status = models.NotificationStatusFailed
		}
	}

	n.record(intent.EntityType, intent.EntityID, intent.Action, models.NotificationChannelEmail, status, intent.Placeholders)
}

// DeepLink builds the entity URL placed into email bodies.
func (n *Notifier) DeepLink(path string) string {
	if n == nil || n.BaseURL == "" {
		return path
	}
	return n.BaseURL + path
}

func (n *Notifier) record(entityType string, entityID uint, action, channel, status string, payload interface{}) {
	if n.DB == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal notification payload: %v", err)
		raw = nil
	}

	notification := models.Notification{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Channel:    channel,
		Status:     status,
		Payload:    raw,
		CreatedAt:  time.Now().UTC(),
	}

	if err := n.DB.Create(&notification).Error; err != nil {
		log.Printf("Failed to record notification: %v", err)
	}
}

// Recipients deduplicates candidate users and drops anyone who should not be
// emailed: nil entries, soft-deleted accounts, unverified accounts.
func Recipients(candidates ...*models.User) []models.User {
	seen := make(map[uint]bool, len(candidates))
	recipients := make([]models.User, 0, len(candidates))

	for _, candidate := range candidates {
		if candidate == nil || candidate.ID == 0 || seen[candidate.ID] {
			continue
		}
		if !candidate.IsActive() {
			continue
		}
		seen[candidate.ID] = true
		recipients = append(recipients, *candidate)
	}

	return recipients
}
