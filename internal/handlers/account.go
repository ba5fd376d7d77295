package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/TraderJoe97/stackflow/internal/auth"
	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/TraderJoe97/stackflow/internal/types"
	"github.com/TraderJoe97/stackflow/internal/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AccountController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUsernameRequest struct {
	NewUsername string `json:"new_username" binding:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

type UserResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

func newUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.RoleName(),
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	}
}

// Register creates an unverified account with the default Developer role. The
// account cannot log in until an admin verifies it.
func (ac *AccountController) Register(ctx *gin.Context) {
	var req RegisterRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Name, email and password are required"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = utils.NormalizeEmail(req.Email)

	if req.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
		return
	}

	if !utils.IsValidEmail(req.Email) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	domain := types.OrgEmailDomain()
	if !utils.HasOrgDomain(req.Email, domain) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Only %s email addresses are allowed", domain)})
		return
	}

	var count int64
	if err := ac.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		log.Printf("Database error when checking existing email: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	if err := ac.DB.Model(&models.User{}).Where("LOWER(name) = ?", strings.ToLower(req.Name)).Count(&count).Error; err != nil {
		log.Printf("Database error when checking existing name: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	}

	var defaultRole models.Role
	if err := ac.DB.Where("name = ?", models.RoleDeveloper).First(&defaultRole).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Default role 'Developer' not found, please contact an administrator"})
			return
		}
		log.Printf("Database error when loading default role: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		RoleID:       defaultRole.ID,
		CreatedAt:    time.Now().UTC(),
		IsVerified:   false,
		IsDeleted:    false,
	}

	if err := ac.DB.Create(&newUser).Error; err != nil {
		// Pre-checks race with concurrent registrations; the unique indexes
		// are the authority.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Email or username already registered"})
			return
		}
		log.Printf("Failed to create user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser.Role = &defaultRole

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. An administrator must verify your account before you can log in.",
		"user":    newUserResponse(newUser),
	})
}

// Login authenticates by email and password and issues a JWT carrying the
// user's identity and role. Deleted and unverified accounts are rejected
// with explicit messages rather than a generic failure.
func (ac *AccountController) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	req.Email = utils.NormalizeEmail(req.Email)

	var user models.User
	err := ac.DB.Preload("Role").Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if user.IsDeleted {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deleted"})
		return
	}

	if !user.IsVerified {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Account is not verified. Please contact an administrator"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Name, user.Email, user.RoleName())
	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  newUserResponse(user),
	})
}

func (ac *AccountController) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := ac.DB.Preload("Role").First(&user, currentUser.ID).Error; err != nil {
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// UpdateUsername changes the caller's own username. Rejects names already
// held by another non-deleted user.
func (ac *AccountController) UpdateUsername(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateUsernameRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "New username cannot be empty"})
		return
	}

	newName := strings.TrimSpace(req.NewUsername)
	if newName == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "New username cannot be empty"})
		return
	}

	// The uniqueness index on name is global, so soft-deleted accounts keep
	// their name reserved.
	var count int64
	err = ac.DB.Model(&models.User{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(newName), currentUser.ID).
		Count(&count).Error
	if err != nil {
		log.Printf("Database error when checking username: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Username is already taken by another user"})
		return
	}

	if err := ac.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("name", newName).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Username is already taken by another user"})
			return
		}
		log.Printf("Failed to update username: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Username updated successfully"})
}

// UpdatePassword changes the caller's own password after verifying the
// current one.
func (ac *AccountController) UpdatePassword(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdatePasswordRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current and new passwords are required"})
		return
	}

	var user models.User
	if err := ac.DB.First(&user, currentUser.ID).Error; err != nil {
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}

	if len(req.NewPassword) < 6 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 6 characters long"})
		return
	}

	if req.NewPassword != req.ConfirmNewPassword {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "New password and confirmation password do not match"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash new password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := ac.DB.Model(&user).Update("password_hash", string(passwordHash)).Error; err != nil {
		log.Printf("Failed to update password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteAccount soft-deletes the caller's own account. Assigned tickets are
// reassigned to another active admin in the same transaction as the flag
// flip. An admin cannot remove themselves while they are the last active
// admin standing.
func (ac *AccountController) DeleteAccount(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	if err := ac.DB.Preload("Role").First(&user, currentUser.ID).Error; err != nil {
		log.Printf("Failed to fetch user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if user.IsDeleted {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Account is already deleted"})
		return
	}

	if user.RoleName() == models.RoleAdmin {
		var activeAdmins int64
		err := ac.DB.Model(&models.User{}).
			Joins("JOIN roles ON roles.id = users.role_id").
			Where("roles.name = ? AND users.is_deleted = ? AND users.is_verified = ?", models.RoleAdmin, false, true).
			Count(&activeAdmins).Error
		if err != nil {
			log.Printf("Failed to count active admins: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if activeAdmins <= 1 {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Cannot delete your account as you are the last active administrator"})
			return
		}
	}

	var reassignedTo models.User
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		reassignedTo, err = reassignAndSoftDelete(tx, &user)
		return err
	})
	if err != nil {
		if errors.Is(err, errNoActiveAdmin) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "No other active admin found to reassign tickets, cannot delete account"})
			return
		}
		log.Printf("Failed to delete account: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ac.Notifier.Dispatch(services.Event{
		EntityType: services.EntityUser,
		EntityID:   user.ID,
		Action:     services.ActionDeleted,
	})
	sendAccountDeletedEmails(ac.Notifier, user, reassignedTo)

	ctx.JSON(http.StatusOK, gin.H{"message": "Your account has been successfully deleted"})
}
