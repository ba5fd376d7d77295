package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/services"
	"gorm.io/gorm"
)

const (
	defaultCheckInterval = time.Hour
	dueSoonWindow        = 24 * time.Hour
)

// ReminderScheduler emails assignees about open tickets that are due within
// the next 24 hours. Each ticket is reminded at most once per window; the
// notifications table is the dedup record.
type ReminderScheduler struct {
	db       *gorm.DB
	notifier *services.Notifier
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewReminderScheduler(db *gorm.DB, notifier *services.Notifier, interval time.Duration) *ReminderScheduler {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReminderScheduler{
		db:       db,
		notifier: notifier,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs an immediate sweep and then sweeps on the configured interval
// until Stop is called.
func (s *ReminderScheduler) Start() {
	log.Printf("Starting due-soon reminder scheduler (interval %s)", s.interval)

	go func() {
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *ReminderScheduler) Stop() {
	log.Println("Stopping due-soon reminder scheduler")
	s.cancel()
}

func (s *ReminderScheduler) sweep() {
	now := time.Now().UTC()
	cutoff := now.Add(dueSoonWindow)

	var tickets []models.Ticket
	err := s.db.Preload("Project").Preload("AssignedTo").
		Where("due_date IS NOT NULL AND due_date > ? AND due_date <= ?", now, cutoff).
		Where("status <> ?", models.TicketStatusDone).
		Where("assigned_to_id IS NOT NULL").
		Find(&tickets).Error
	if err != nil {
		log.Printf("Failed to query due-soon tickets: %v", err)
		return
	}

	reminded := 0
	for _, ticket := range tickets {
		sent, err := s.alreadyReminded(ticket.ID, now)
		if err != nil {
			log.Printf("Failed to check reminder history for ticket %d: %v", ticket.ID, err)
			continue
		}
		if sent {
			continue
		}

		s.remind(ticket)
		reminded++
	}

	if reminded > 0 {
		log.Printf("Sent due-soon reminders for %d tickets", reminded)
	}
}

func (s *ReminderScheduler) alreadyReminded(ticketID uint, now time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("entity_type = ? AND entity_id = ? AND action = ? AND created_at > ?",
			services.EntityTicket, ticketID, services.ActionDueSoon, now.Add(-dueSoonWindow)).
		Count(&count).Error
	return count > 0, err
}

func (s *ReminderScheduler) remind(ticket models.Ticket) {
	projectName := ""
	if ticket.Project != nil {
		projectName = ticket.Project.Name
	}

	dueDate := ""
	if ticket.DueDate != nil {
		dueDate = ticket.DueDate.UTC().Format("2006-01-02 15:04 MST")
	}

	s.notifier.SendEmail(services.EmailIntent{
		Recipients:  services.Recipients(ticket.AssignedTo),
		TemplateKey: services.TemplateTicketDueSoon,
		Subject:     fmt.Sprintf("Ticket Due Soon: %s", ticket.Title),
		Placeholders: map[string]string{
			"TicketTitle": ticket.Title,
			"ProjectName": projectName,
			"DueDate":     dueDate,
			"TicketLink":  s.notifier.DeepLink(fmt.Sprintf("/tickets/%d", ticket.ID)),
			"CurrentYear": fmt.Sprintf("%d", time.Now().UTC().Year()),
		},
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionDueSoon,
	})
}
