package handlers

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/TraderJoe97/stackflow/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UsersController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
}

type UpdateUserRoleRequest struct {
	NewRoleID uint `json:"new_role_id" binding:"required"`
}

func paginationParams(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func setPaginationHeaders(ctx *gin.Context, total int64, page, pageSize int) {
	ctx.Header("X-Total-Count", strconv.FormatInt(total, 10))
	ctx.Header("X-Page-Size", strconv.Itoa(pageSize))
	ctx.Header("X-Current-Page", strconv.Itoa(page))
	ctx.Header("X-Total-Pages", strconv.Itoa(int(math.Ceil(float64(total)/float64(pageSize)))))
}

// ListUsers returns active (verified, not deleted) users with pagination and
// optional search over name, email and role.
func (uc *UsersController) ListUsers(ctx *gin.Context) {
	page, pageSize := paginationParams(ctx)

	query := uc.DB.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.is_deleted = ? AND users.is_verified = ?", false, true)

	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ? OR LOWER(roles.name) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Failed to count users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}
	setPaginationHeaders(ctx, total, page, pageSize)

	var users []models.User
	err := query.Preload("Role").
		Order("users.name").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		log.Printf("Failed to list users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, newUserResponse(user))
	}

	ctx.JSON(http.StatusOK, response)
}

// ListPendingUsers returns accounts awaiting admin verification.
func (uc *UsersController) ListPendingUsers(ctx *gin.Context) {
	page, pageSize := paginationParams(ctx)

	query := uc.DB.Model(&models.User{}).
		Where("is_deleted = ? AND is_verified = ?", false, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("Failed to count pending users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}
	setPaginationHeaders(ctx, total, page, pageSize)

	var users []models.User
	err := query.Preload("Role").
		Order("created_at").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		log.Printf("Failed to list pending users: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, newUserResponse(user))
	}

	ctx.JSON(http.StatusOK, response)
}

func (uc *UsersController) GetUser(ctx *gin.Context) {
	var user models.User
	err := uc.DB.Preload("Role").
		Where("id = ? AND is_deleted = ?", ctx.Param("id"), false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Printf("Failed to fetch user: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	ctx.JSON(http.StatusOK, newUserResponse(user))
}

// VerifyUser approves a pending account. Admin only.
func (uc *UsersController) VerifyUser(ctx *gin.Context) {
	var user models.User
	if err := uc.DB.First(&user, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Printf("Failed to fetch user: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	if user.IsVerified {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "User is already verified"})
		return
	}

	if err := uc.DB.Model(&user).Update("is_verified", true).Error; err != nil {
		log.Printf("Failed to verify user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}
	user.IsVerified = true

	uc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityUser,
		EntityID:   user.ID,
		Action:     services.ActionVerified,
	})
	uc.Notifier.SendEmail(services.EmailIntent{
		Recipients:  services.Recipients(&user),
		TemplateKey: services.TemplateAccountVerified,
		Subject:     "Your StackFlow Account Has Been Verified",
		Placeholders: map[string]string{
			"UserName":    user.Name,
			"CurrentYear": fmt.Sprintf("%d", time.Now().UTC().Year()),
		},
		EntityType: services.EntityUser,
		EntityID:   user.ID,
		Action:     services.ActionVerified,
	})

	ctx.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User '%s' has been verified successfully", user.Name)})
}

// UpdateUserRole changes another user's role. Admins cannot change their own
// role through this endpoint.
func (uc *UsersController) UpdateUserRole(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateUserRoleRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "New role ID is required"})
		return
	}

	var user models.User
	if err := uc.DB.First(&user, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Printf("Failed to fetch user: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	if user.ID == currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You cannot change your own role"})
		return
	}

	var newRole models.Role
	if err := uc.DB.First(&newRole, req.NewRoleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "New role not found"})
		} else {
			log.Printf("Failed to fetch role: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve role"})
		}
		return
	}

	if err := uc.DB.Model(&user).Update("role_id", newRole.ID).Error; err != nil {
		log.Printf("Failed to update user role: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user role"})
		return
	}

	uc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityUser,
		EntityID:   user.ID,
		Action:     services.ActionRoleUpdated,
	})

	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("User '%s' role updated to '%s' successfully", user.Name, newRole.Name),
	})
}

// DeleteUser soft-deletes another user's account, reassigning their tickets
// to an active admin in the same transaction. Self-deletion goes through the
// account endpoint instead.
func (uc *UsersController) DeleteUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := uc.DB.First(&user, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			log.Printf("Failed to fetch user: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	if user.ID == currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You cannot delete your own account via this endpoint, use the account endpoint instead"})
		return
	}

	if user.IsDeleted {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "User is already deleted"})
		return
	}

	var reassignedTo models.User
	err = uc.DB.Transaction(func(tx *gorm.DB) error {
		reassignedTo, err = reassignAndSoftDelete(tx, &user)
		return err
	})
	if err != nil {
		if errors.Is(err, errNoActiveAdmin) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "No active admin found to reassign tickets, cannot delete user"})
			return
		}
		log.Printf("Failed to soft-delete user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	uc.Notifier.Dispatch(services.Event{
		EntityType: services.EntityUser,
		EntityID:   user.ID,
		Action:     services.ActionDeleted,
	})
	sendAccountDeletedEmails(uc.Notifier, user, reassignedTo)

	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("User '%s' soft-deleted and their tickets reassigned to %s", user.Name, reassignedTo.Name),
	})
}
