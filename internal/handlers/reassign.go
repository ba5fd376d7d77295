package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/services"
	"gorm.io/gorm"
)

var errNoActiveAdmin = errors.New("no active admin available for ticket reassignment")

// reassignAndSoftDelete moves every ticket assigned to target onto an active,
// verified admin other than target and flips the soft-delete flag. It must
// run inside a transaction: either both steps commit or neither does.
func reassignAndSoftDelete(tx *gorm.DB, target *models.User) (models.User, error) {
	var adminRole models.Role
	if err := tx.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, errNoActiveAdmin
		}
		return models.User{}, err
	}

	var admin models.User
	err := tx.Where("role_id = ? AND is_deleted = ? AND is_verified = ? AND id <> ?",
		adminRole.ID, false, true, target.ID).
		Order("id").
		First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, errNoActiveAdmin
		}
		return models.User{}, err
	}

	err = tx.Model(&models.Ticket{}).
		Where("assigned_to_id = ?", target.ID).
		Update("assigned_to_id", admin.ID).Error
	if err != nil {
		return models.User{}, err
	}

	if err := tx.Model(target).Update("is_deleted", true).Error; err != nil {
		return models.User{}, err
	}

	target.IsDeleted = true
	return admin, nil
}

// sendAccountDeletedEmails notifies the deleted user and the admin who
// inherited their tickets. Best-effort, after the commit.
func sendAccountDeletedEmails(notifier *services.Notifier, deleted, admin models.User) {
	if notifier == nil {
		return
	}

	year := fmt.Sprintf("%d", time.Now().UTC().Year())

	// The deleted account is no longer active, so it would be filtered by
	// the usual recipient rules. It still gets its farewell notice.
	notifier.SendEmail(services.EmailIntent{
		Recipients:  []models.User{deleted},
		TemplateKey: services.TemplateAccountDeleted,
		Subject:     "Your StackFlow Account Has Been Deleted",
		Placeholders: map[string]string{
			"UserName":    deleted.Name,
			"CurrentYear": year,
		},
		EntityType: services.EntityUser,
		EntityID:   deleted.ID,
		Action:     services.ActionDeleted,
	})

	notifier.SendEmail(services.EmailIntent{
		Recipients:  services.Recipients(&admin),
		TemplateKey: services.TemplateAdminTicketReassignment,
		Subject:     "User Account Deleted and Tickets Reassigned",
		Placeholders: map[string]string{
			"DeletedUserName": deleted.Name,
			"AdminUserName":   admin.Name,
			"CurrentYear":     year,
		},
		EntityType: services.EntityUser,
		EntityID:   deleted.ID,
		Action:     services.ActionDeleted,
	})
}
