package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RolesController struct {
	DB *gorm.DB
}

type RoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type RoleResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func newRoleResponse(role models.Role) RoleResponse {
	return RoleResponse{ID: role.ID, Name: role.Name, Description: role.Description}
}

func (rc *RolesController) ListRoles(ctx *gin.Context) {
	var roles []models.Role
	if err := rc.DB.Order("id").Find(&roles).Error; err != nil {
		log.Printf("Failed to list roles: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve roles"})
		return
	}

	response := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		response = append(response, newRoleResponse(role))
	}

	ctx.JSON(http.StatusOK, response)
}

func (rc *RolesController) GetRole(ctx *gin.Context) {
	var role models.Role
	if err := rc.DB.First(&role, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		} else {
			log.Printf("Failed to fetch role: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve role"})
		}
		return
	}

	ctx.JSON(http.StatusOK, newRoleResponse(role))
}

func (rc *RolesController) CreateRole(ctx *gin.Context) {
	var req RoleRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Role name cannot be empty"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Role name cannot be empty"})
		return
	}

	var count int64
	if err := rc.DB.Model(&models.Role{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		log.Printf("Failed to check role name: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Role with name '%s' already exists", req.Name)})
		return
	}

	role := models.Role{Name: req.Name, Description: req.Description}
	if err := rc.DB.Create(&role).Error; err != nil {
		log.Printf("Failed to create role: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create role"})
		return
	}

	ctx.JSON(http.StatusCreated, newRoleResponse(role))
}

// UpdateRole renames a role. The reserved "Admin" and "Developer" roles keep
// their names.
func (rc *RolesController) UpdateRole(ctx *gin.Context) {
	var req RoleRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Role name cannot be empty"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Role name cannot be empty"})
		return
	}

	var role models.Role
	if err := rc.DB.First(&role, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		} else {
			log.Printf("Failed to fetch role: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve role"})
		}
		return
	}

	if role.IsReserved() && req.Name != role.Name {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("The '%s' role cannot be renamed", role.Name)})
		return
	}

	if req.Name != role.Name {
		var count int64
		if err := rc.DB.Model(&models.Role{}).Where("name = ? AND id <> ?", req.Name, role.ID).Count(&count).Error; err != nil {
			log.Printf("Failed to check role name: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if count > 0 {
			ctx.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Role with name '%s' already exists", req.Name)})
			return
		}
	}

	role.Name = req.Name
	role.Description = req.Description

	if err := rc.DB.Save(&role).Error; err != nil {
		log.Printf("Failed to update role: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	ctx.JSON(http.StatusOK, newRoleResponse(role))
}

// DeleteRole removes a non-reserved role, reassigning its members to
// "Developer" inside the same transaction as the delete.
func (rc *RolesController) DeleteRole(ctx *gin.Context) {
	var role models.Role
	if err := rc.DB.First(&role, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		} else {
			log.Printf("Failed to fetch role: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve role"})
		}
		return
	}

	if role.IsReserved() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("The '%s' role cannot be deleted", role.Name)})
		return
	}

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		var developerRole models.Role
		if err := tx.Where("name = ?", models.RoleDeveloper).First(&developerRole).Error; err != nil {
			return err
		}

		err := tx.Model(&models.User{}).
			Where("role_id = ?", role.ID).
			Update("role_id", developerRole.ID).Error
		if err != nil {
			return err
		}

		return tx.Delete(&role).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Developer role not found, cannot reassign users from deleted role"})
			return
		}
		log.Printf("Failed to delete role: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete role"})
		return
	}

	ctx.Status(http.StatusNoContent)
}
