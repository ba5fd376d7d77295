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

type CommentsController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID          uint      `json:"id"`
	TicketID    uint      `json:"ticket_id"`
	Content     string    `json:"content"`
	CreatedByID uint      `json:"created_by_id"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newCommentResponse(comment models.Comment) CommentResponse {
	response := CommentResponse{
		ID:          comment.ID,
		TicketID:    comment.TicketID,
		Content:     comment.Content,
		CreatedByID: comment.CreatedByID,
		CreatedAt:   comment.CreatedAt,
	}
	if comment.CreatedBy != nil {
		response.CreatedBy = comment.CreatedBy.Name
	}
	return response
}

// ListForTicket returns a ticket's comments oldest first.
func (cc *CommentsController) ListForTicket(ctx *gin.Context) {
	var ticket models.Ticket
	if err := cc.DB.First(&ticket, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	var comments []models.Comment
	err := cc.DB.Preload("CreatedBy").
		Where("ticket_id = ?", ticket.ID).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		log.Printf("Failed to list comments: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	response := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		response = append(response, newCommentResponse(comment))
	}

	ctx.JSON(http.StatusOK, response)
}

func (cc *CommentsController) GetComment(ctx *gin.Context) {
	var comment models.Comment
	if err := cc.DB.Preload("CreatedBy").First(&comment, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		} else {
			log.Printf("Failed to fetch comment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comment"})
		}
		return
	}

	ctx.JSON(http.StatusOK, newCommentResponse(comment))
}

// CreateComment adds a comment to a ticket. Any authenticated user may
// comment; the ticket's assignee and creator are notified.
func (cc *CommentsController) CreateComment(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CommentRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Comment content cannot be empty"})
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Comment content cannot be empty"})
		return
	}

	var ticket models.Ticket
	if err := cc.DB.Preload("Project").Preload("AssignedTo").Preload("CreatedBy").First(&ticket, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		} else {
			log.Printf("Failed to fetch ticket: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ticket"})
		}
		return
	}

	comment := models.Comment{
		TicketID:    ticket.ID,
		Content:     req.Content,
		CreatedByID: currentUser.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := cc.DB.Create(&comment).Error; err != nil {
		log.Printf("Failed to create comment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	cc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionCommented,
	})

	projectName := ""
	if ticket.Project != nil {
		projectName = ticket.Project.Name
	}
	recipients := services.Recipients(ticket.AssignedTo, ticket.CreatedBy)
	// The commenter already knows about their own comment.
	filtered := recipients[:0]
	for _, recipient := range recipients {
		if recipient.ID != currentUser.ID {
			filtered = append(filtered, recipient)
		}
	}
	cc.Notifier.SendEmail(services.EmailIntent{
		Recipients:  filtered,
		TemplateKey: services.TemplateNewCommentAdded,
		Subject:     fmt.Sprintf("New Comment on Ticket: %s", ticket.Title),
		Placeholders: map[string]string{
			"TicketTitle":     ticket.Title,
			"ProjectName":     projectName,
			"CommenterName":   currentUser.Name,
			"CommentSnippet":  commentSnippet(req.Content),
			"TicketLink":      cc.Notifier.DeepLink(fmt.Sprintf("/tickets/%d", ticket.ID)),
			"CurrentYear":     currentYear(),
		},
		EntityType: services.EntityTicket,
		EntityID:   ticket.ID,
		Action:     services.ActionCommented,
	})

	ctx.JSON(http.StatusCreated, newCommentResponse(comment))
}

// UpdateComment edits a comment's content. Only the author or an admin may
// edit.
func (cc *CommentsController) UpdateComment(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CommentRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Comment content cannot be empty"})
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Comment content cannot be empty"})
		return
	}

	var comment models.Comment
	if err := cc.DB.First(&comment, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		} else {
			log.Printf("Failed to fetch comment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comment"})
		}
		return
	}

	if comment.CreatedByID != currentUser.ID && !currentUser.IsAdmin() {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	if err := cc.DB.Model(&comment).Update("content", req.Content).Error; err != nil {
		log.Printf("Failed to update comment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}
	comment.Content = req.Content

	ctx.JSON(http.StatusOK, newCommentResponse(comment))
}

// DeleteComment removes a comment. Only the author or an admin may delete.
func (cc *CommentsController) DeleteComment(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var comment models.Comment
	if err := cc.DB.First(&comment, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		} else {
			log.Printf("Failed to fetch comment: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comment"})
		}
		return
	}

	if comment.CreatedByID != currentUser.ID && !currentUser.IsAdmin() {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	if err := cc.DB.Delete(&comment).Error; err != nil {
		log.Printf("Failed to delete comment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func commentSnippet(content string) string {
	const maxSnippet = 120
	if len(content) <= maxSnippet {
		return content
	}
	return content[:maxSnippet] + "..."
}
