package db

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/TraderJoe97/stackflow/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	connectAttempts = 5
	maxBackoff      = 10 * time.Second
	commandTimeout  = 60 * time.Second
)

// ConnectDatabase opens a postgres connection, retrying transient failures
// with capped exponential backoff.
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	dsn = withStatementTimeout(dsn)

	backoff := time.Second
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}

		if attempt == connectAttempts {
			return nil, fmt.Errorf("connecting to database after %d attempts: %w", connectAttempts, err)
		}

		log.Printf("Database connection attempt %d failed: %v (retrying in %s)", attempt, err, backoff)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// withStatementTimeout carries the per-statement ceiling in the DSN so every
// pooled connection enforces it; a session-scoped SET would only reach the
// one connection that executed it. Respects a timeout already present.
func withStatementTimeout(dsn string) string {
	if strings.Contains(dsn, "statement_timeout") {
		return dsn
	}

	option := fmt.Sprintf("-c statement_timeout=%d", commandTimeout.Milliseconds())

	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		query := u.Query()
		query.Set("options", option)
		u.RawQuery = query.Encode()
		return u.String()
	}

	return dsn + " options='" + option + "'"
}

func MigrateDatabase(db *gorm.DB) error {
	tables := []interface{}{
		&models.Role{},
		&models.User{},
		&models.Project{},
		&models.Ticket{},
		&models.Comment{},
		&models.Notification{},
	}

	for _, table := range tables {
		if err := db.AutoMigrate(table); err != nil {
			return err
		}
	}

	return nil
}

// SeedRoles creates the built-in roles if they are missing. "Admin" and
// "Developer" must exist for registration and the reassignment rules to work.
func SeedRoles(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleAdmin, Description: "Full administrative access"},
		{Name: models.RoleDeveloper, Description: "Default role for new registrations"},
		{Name: models.RoleProjectManager, Description: "Manages projects and tickets"},
		{Name: models.RoleTester, Description: "Verifies and tests tickets"},
	}

	for _, role := range roles {
		var existing models.Role
		err := db.Where("name = ?", role.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&role).Error; err != nil {
			return err
		}
	}

	return nil
}

// SeedAdminUser bootstraps a verified admin account so a fresh deployment is
// not locked out. No-op when the email is empty or the account exists.
func SeedAdminUser(db *gorm.DB, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var adminRole models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       adminRole.ID,
		CreatedAt:    time.Now().UTC(),
		IsVerified:   true,
	}

	return db.Create(&admin).Error
}
