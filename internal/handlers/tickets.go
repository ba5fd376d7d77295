package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/TraderJoe97/stackflow/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TicketsController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
}

type CreateTicketRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	ProjectID    uint       `json:"project_id" binding:"required"`
	AssignedToID *uint      `json:"assigned_to_id"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"due_date"`
}

type UpdateTicketRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	ProjectID    uint       `json:"project_id" binding:"required"`
	AssignedToID *uint      `json:"assigned_to_id"`
	Status       string     `json:"status" binding:"required"`
	Priority     string     `json:"priority" binding:"required"`
	DueDate      *time.Time `json:"due_date"`
	Version      int        `json:"version" binding:"required"`
}

type UpdateTicketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TicketResponse struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ProjectID    uint       `json:"project_id"`
	ProjectName  string     `json:"project_name,omitempty"`
	AssignedToID *uint      `json:"assigned_to_id"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	CreatedByID  uint       `json:"created_by_id"`
	CreatedBy    string     `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DueDate      *time.Time `json:"due_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	Version      int        `json:"version"`
}

func newTicketResponse(ticket models.Ticket) TicketResponse {
	response := TicketResponse{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Description:  ticket.Description,
		ProjectID:    ticket.ProjectID,
		AssignedToID: ticket.AssignedToID,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatedByID:  ticket.CreatedByID,
		CreatedAt:    ticket.CreatedAt,
		DueDate:      ticket.DueDate,
		CompletedAt:  ticket.CompletedAt,
		Version:      ticket.Version,
	}
	if ticket.Project != nil {
		response.ProjectName = ticket.Project.Name
	}
	if ticket.AssignedTo != nil {
		response.AssignedTo = ticket.AssignedTo.Name
	}
	if ticket.CreatedBy != nil {
		response.CreatedBy = ticket.CreatedBy.Name
	}
	return response
}

func invalidStatusMessage() string {
	return "Invalid ticket status, expected one of: " + strings.Join(models.TicketStatuses, ", ")
}

// validateAssignee checks that an assignee, when given, is an existing
// active (not deleted, verified) user.
func (tc *TicketsController) validateAssignee(assignedToID *uint) (*models.User, string) {
	if assignedToID == nil {
		return nil, ""
	}

	var assignee models.User
	if err := tc.DB.First(&assignee, *assignedToID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "Assigned user does not exist"
		}
		log.Printf("Failed to fetch assignee: %v", err)
		return nil, "Failed to validate assigned user"
	}

	if assignee.IsDeleted {
		return nil, "Assigned user is no longer active"
	}
	if !assignee.IsVerified {
		return nil, "Assigned user account is not verified"
	}

	return &assignee, ""
}

func (tc *TicketsController) ListTickets(ctx *gin.Context) {
	query := tc.DB.Preload("Project").Preload("AssignedTo").Preload("CreatedBy")

	if projectID := ctx.Query("project_id"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var tickets []models.Ticket
	if err := query.Order("created_at DESC").Find(&tickets).Error; err != nil {
		log.Printf("Failed to list tickets: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tickets"})
		return
	}

	response := make([]TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, newTicketResponse(ticket))
	}

	ctx.JSON(http.StatusOK, response)
}

func (tc *TicketsController) GetTicket(ctx *gin.Context) {
	var ticket models.Ticket
	err := tc.DB.Preload("Project").Preload("AssignedTo").Preload("CreatedBy").
		First(&ticket, ctx.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	ctx.JSON(http.StatusOK, newTicketResponse(ticket))
}

// CreateTicket creates a ticket in a project. Admin and Project Manager
// only (gated at the router).
func (tc *TicketsController) CreateTicket(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateTicketRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Ticket title and project are required"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > 255 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Ticket title is required and must be at most 255 characters"})
		return
	}

	if req.Status == "" {
		req.Status = models.TicketStatusToDo
	}
	if !models.ValidTicketStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": invalidStatusMessage()})
		return
	}

	if req.Priority == "" {
		req.Priority = models.TicketPriorityLow
	}
	if !models.ValidTicketPriority(req.Priority) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid ticket priority, expected one of: " + strings.Join(models.TicketPriorities, ", "),
		})
		return
	}

	var project models.Project
	if err := tc.DB.First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Project with ID %d does not exist", req.ProjectID)})
		} else {
			log.Printf("Failed to fetch project: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate project"})
		}
		return
	}

	assignee, assigneeErr := tc.validateAssignee(req.AssignedToID)
	if assigneeErr != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": assigneeErr})
		return
	}

	ticket := models.Ticket{
		Title:        req.Title,
		Description:  req.Description,
		ProjectID:    req.ProjectID,
		AssignedToID: req.AssignedToID,
		Priority:     req.Priority,
		CreatedByID:  currentUser.ID,
		CreatedAt:    time.Now().UTC(),
		DueDate:      req.DueDate,
		Version:      1,
	}
	ticket.ApplyStatus(req.Status, time.Now())

	if err := tc.DB.Create(&ticket).Error; err != nil {
		log.Printf("Failed to create ticket: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket"})
		return
	}

	tc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionCreated,
	})

	var creator models.User
	if err := tc.DB.First(&creator, currentUser.ID).Error; err == nil {
		tc.Notifier.SendEmail(services.EmailIntent{
			Recipients:  services.Recipients(assignee, &creator),
			TemplateKey: services.TemplateNewTicketCreated,
			Subject:     fmt.Sprintf("New Ticket Created: %s", ticket.Title),
			Placeholders: map[string]string{
				"TicketTitle":    ticket.Title,
				"ProjectName":    project.Name,
				"CreatedByName":  currentUser.Name,
				"AssignedToName": assigneeName(assignee),
				"TicketLink":     tc.Notifier.DeepLink(fmt.Sprintf("/tickets/%d", ticket.ID)),
				"CurrentYear":    currentYear(),
			},
			EntityType: services.EntityTicket,
			EntityID:   ticket.ID,
			Action:     services.ActionCreated,
		})
	}

	ticket.Project = &project
	ticket.AssignedTo = assignee

	ctx.JSON(http.StatusCreated, newTicketResponse(ticket))
}

// UpdateTicket edits a ticket under an optimistic version check. Assignment
// and status changes trigger notifications; everything else is silent apart
// from the generic updated event.
func (tc *TicketsController) UpdateTicket(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateTicketRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Ticket title, project, status, priority and version are required"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > 255 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Ticket title is required and must be at most 255 characters"})
		return
	}

	if !models.ValidTicketStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": invalidStatusMessage()})
		return
	}

	if !models.ValidTicketPriority(req.Priority) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid ticket priority, expected one of: " + strings.Join(models.TicketPriorities, ", "),
		})
		return
	}

	var ticket models.Ticket
	if err := tc.DB.Preload("Project").Preload("CreatedBy").First(&ticket, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	var project models.Project
	if err := tc.DB.First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Project with ID %d does not exist", req.ProjectID)})
		} else {
			log.Printf("Failed to fetch project: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate project"})
		}
		return
	}

	assignee, assigneeErr := tc.validateAssignee(req.AssignedToID)
	if assigneeErr != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": assigneeErr})
		return
	}

	oldStatus := ticket.Status
	oldAssignee := ticket.AssignedToID

	updated := ticket
	updated.ApplyStatus(req.Status, time.Now())

	result := tc.DB.Model(&models.Ticket{}).
		Where("id = ? AND version = ?", ticket.ID, req.Version).
		Updates(map[string]interface{}{
			"title":          req.Title,
			"description":    req.Description,
			"project_id":     req.ProjectID,
			"assigned_to_id": req.AssignedToID,
			"status":         updated.Status,
			"priority":       req.Priority,
			"due_date":       req.DueDate,
			"completed_at":   updated.CompletedAt,
			"version":        req.Version + 1,
		})
	if result.Error != nil {
		log.Printf("Failed to update ticket: %v", result.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket"})
		return
	}
	if result.RowsAffected == 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Ticket was modified by another user, please re-fetch and retry"})
		return
	}

	tc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionUpdated,
		OldStatus:  oldStatus,
	})

	assignmentChanged := !uintPtrEqual(oldAssignee, req.AssignedToID)
	if assignmentChanged && assignee != nil {
		tc.Notifier.SendEmail(services.EmailIntent{
			Recipients:  services.Recipients(assignee),
			TemplateKey: services.TemplateTicketAssigned,
			Subject:     fmt.Sprintf("Ticket Assigned to You: %s", req.Title),
			Placeholders: map[string]string{
				"TicketTitle":    req.Title,
				"ProjectName":    project.Name,
				"AssignedToName": assignee.Name,
				"ActorName":      currentUser.Name,
				"TicketLink":     tc.Notifier.DeepLink(fmt.Sprintf("/tickets/%d", ticket.ID)),
				"CurrentYear":    currentYear(),
			},
			EntityType: services.EntityTicket,
			EntityID:   ticket.ID,
			Action:     services.ActionUpdated,
		})
	}

	if oldStatus != updated.Status {
		tc.notifyStatusChange(ticket.ID, req.Title, project.Name, oldStatus, updated.Status, currentUser.Name, assignee, ticket.CreatedBy)
	}

	var fresh models.Ticket
	if err := tc.DB.Preload("Project").Preload("AssignedTo").Preload("CreatedBy").First(&fresh, ticket.ID).Error; err != nil {
		log.Printf("Failed to reload ticket: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		return
	}

	ctx.JSON(http.StatusOK, newTicketResponse(fresh))
}

// UpdateTicketStatus moves a ticket between workflow states. Any
// authenticated user may do this. Transitions are unrestricted; entering
// Done stamps the completion time and leaving Done clears it.
func (tc *TicketsController) UpdateTicketStatus(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateTicketStatusRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	req.Status = strings.TrimSpace(req.Status)
	if !models.ValidTicketStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": invalidStatusMessage()})
		return
	}

	var ticket models.Ticket
	if err := tc.DB.Preload("Project").Preload("AssignedTo").Preload("CreatedBy").First(&ticket, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	oldStatus := ticket.Status
	if oldStatus == req.Status {
		ctx.JSON(http.StatusOK, newTicketResponse(ticket))
		return
	}

	updated := ticket
	updated.ApplyStatus(req.Status, time.Now())

	result := tc.DB.Model(&models.Ticket{}).
		Where("id = ? AND version = ?", ticket.ID, ticket.Version).
		Updates(map[string]interface{}{
			"status":       updated.Status,
			"completed_at": updated.CompletedAt,
			"version":      ticket.Version + 1,
		})
	if result.Error != nil {
		log.Printf("Failed to update ticket status: %v", result.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket status"})
		return
	}
	if result.RowsAffected == 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Ticket was modified by another user, please re-fetch and retry"})
		return
	}

	tc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionUpdated,
		OldStatus:  oldStatus,
	})

	projectName := ""
	if ticket.Project != nil {
		projectName = ticket.Project.Name
	}
	tc.notifyStatusChange(ticket.ID, ticket.Title, projectName, oldStatus, updated.Status, currentUser.Name, ticket.AssignedTo, ticket.CreatedBy)

	updated.Version = ticket.Version + 1
	ctx.JSON(http.StatusOK, newTicketResponse(updated))
}

// DeleteTicket hard-deletes a ticket and its comments.
func (tc *TicketsController) DeleteTicket(ctx *gin.Context) {
	var ticket models.Ticket
	if err := tc.DB.First(&ticket, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", ticket.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ticket).Error
	})
	if err != nil {
		log.Printf("Failed to delete ticket: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete ticket"})
		return
	}

	tc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionDeleted,
		OldStatus:  ticket.Status,
	})

	ctx.Status(http.StatusNoContent)
}

func (tc *TicketsController) notifyStatusChange(ticketID uint, title, projectName, oldStatus, newStatus, actorName string, assignee, creator *models.User) {
	tc.Notifier.SendEmail(services.EmailIntent{
		Recipients:  services.Recipients(assignee, creator),
		TemplateKey: services.TemplateTicketStatusUpdated,
		Subject:     fmt.Sprintf("Ticket Status Updated: %s", title),
		Placeholders: map[string]string{
			"TicketTitle": title,
			"ProjectName": projectName,
			"OldStatus":   oldStatus,
			"NewStatus":   newStatus,
			"ActorName":   actorName,
			"TicketLink":  tc.Notifier.DeepLink(fmt.Sprintf("/tickets/%d", ticketID)),
			"CurrentYear": currentYear(),
		},
		EntityType: services.EntityTicket,
		EntityID:   ticketID,
		Action:     services.ActionUpdated,
	})
}

func assigneeName(assignee *models.User) string {
	if assignee == nil {
		return "Unassigned"
	}
	return assignee.Name
}

func currentYear() string {
	return fmt.Sprintf("%d", time.Now().UTC().Year())
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
