package handlers

import (
	"errors"
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

type ProjectsController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
}

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"required"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	Version     int        `json:"version" binding:"required"`
}

type ProjectResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	CreatedByID uint       `json:"created_by_id"`
	CreatedBy   string     `json:"created_by,omitempty"`
	Version     int        `json:"version"`
}

func newProjectResponse(project models.Project) ProjectResponse {
	response := ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		StartDate:   project.StartDate,
		DueDate:     project.DueDate,
		CreatedByID: project.CreatedByID,
		Version:     project.Version,
	}
	if project.CreatedBy != nil {
		response.CreatedBy = project.CreatedBy.Name
	}
	return response
}

func (pc *ProjectsController) ListProjects(ctx *gin.Context) {
	var projects []models.Project
	if err := pc.DB.Preload("CreatedBy").Order("id").Find(&projects).Error; err != nil {
		log.Printf("Failed to list projects: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	response := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		response = append(response, newProjectResponse(project))
	}

	ctx.JSON(http.StatusOK, response)
}

func (pc *ProjectsController) GetProject(ctx *gin.Context) {
	var project models.Project
	if err := pc.DB.Preload("CreatedBy").First(&project, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.Printf("Failed to fetch project: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	ctx.JSON(http.StatusOK, newProjectResponse(project))
}

// CreateProject creates a project owned by the calling admin.
func (pc *ProjectsController) CreateProject(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateProjectRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 255 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required and must be at most 255 characters"})
		return
	}

	if req.Status == "" {
		req.Status = models.ProjectStatusActive
	}
	if !models.ValidProjectStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid project status, expected one of: " + strings.Join(models.ProjectStatuses, ", "),
		})
		return
	}

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		CreatedByID: currentUser.ID,
		Version:     1,
	}

	if err := pc.DB.Create(&project).Error; err != nil {
		log.Printf("Failed to create project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	pc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityProject,
		EntityID:   project.ID,
		Action:     services.ActionCreated,
	})

	ctx.JSON(http.StatusCreated, newProjectResponse(project))
}

// UpdateProject edits a project. The creator is preserved across edits, and
// the write is guarded by an optimistic version check: a stale version gets
// a conflict and the caller must re-fetch.
func (pc *ProjectsController) UpdateProject(ctx *gin.Context) {
	var req UpdateProjectRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project name, status and version are required"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 255 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required and must be at most 255 characters"})
		return
	}

	if !models.ValidProjectStatus(req.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid project status, expected one of: " + strings.Join(models.ProjectStatuses, ", "),
		})
		return
	}

	var project models.Project
	if err := pc.DB.First(&project, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.Printf("Failed to fetch project: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	result := pc.DB.Model(&models.Project{}).
		Where("id = ? AND version = ?", project.ID, req.Version).
		Updates(map[string]interface{}{
			"name":        req.Name,
			"description": req.Description,
			"status":      req.Status,
			"start_date":  req.StartDate,
			"due_date":    req.DueDate,
			"version":     req.Version + 1,
		})
	if result.Error != nil {
		log.Printf("Failed to update project: %v", result.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}
	if result.RowsAffected == 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Project was modified by another user, please re-fetch and retry"})
		return
	}

	pc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityProject,
		EntityID:   project.ID,
		Action:     services.ActionUpdated,
	})

	if err := pc.DB.Preload("CreatedBy").First(&project, project.ID).Error; err != nil {
		log.Printf("Failed to reload project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		return
	}

	ctx.JSON(http.StatusOK, newProjectResponse(project))
}

// DeleteProject removes a project together with its tickets and their
// comments in a single transaction. Referenced users are untouched.
func (pc *ProjectsController) DeleteProject(ctx *gin.Context) {
	var project models.Project
	if err := pc.DB.First(&project, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.Printf("Failed to fetch project: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("ticket_id IN (?)",
			tx.Model(&models.Ticket{}).Select("id").Where("project_id = ?", project.ID),
		).Delete(&models.Comment{}).Error
		if err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}

		return tx.Delete(&project).Error
	})
	if err != nil {
		log.Printf("Failed to delete project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	pc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityProject,
		EntityID:   project.ID,
		Action:     services.ActionDeleted,
	})

	ctx.Status(http.StatusNoContent)
}
