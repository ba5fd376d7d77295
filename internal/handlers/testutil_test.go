package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TraderJoe97/stackflow/db"
	"github.com/TraderJoe97/stackflow/internal/auth"
	"github.com/TraderJoe97/stackflow/internal/handlers"
	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/TraderJoe97/stackflow/internal/router"
	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// testPassword is shared by every seeded account.
const testPassword = "password123"

type testEnv struct {
	Router   *gin.Engine
	DB       *gorm.DB
	Hub      *handlers.Hub
	Notifier *services.Notifier

	Admin     models.User
	Manager   models.User
	Developer models.User
}

func createTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:handlers_test_%d.db?mode=memory&cache=shared", n)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.MigrateDatabase(gdb))
	require.NoError(t, db.SeedRoles(gdb))

	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, name, email, roleName string, verified bool) models.User {
	t.Helper()

	var role models.Role
	require.NoError(t, gdb.Where("name = ?", roleName).First(&role).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		CreatedAt:    time.Now().UTC(),
		IsVerified:   verified,
	}
	require.NoError(t, gdb.Create(&user).Error)

	user.Role = &role
	return user
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)
	auth.SetJWTSecret("test-secret")

	gdb := createTestDB(t)

	hub := handlers.NewHub()
	notifier := &services.Notifier{
		DB:     gdb,
		Hub:    hub,
		Mailer: services.LogMailer{},
	}

	env := testEnv{
		Router:    router.New(router.Deps{DB: gdb, Hub: hub, Notifier: notifier}),
		DB:        gdb,
		Hub:       hub,
		Notifier:  notifier,
		Admin:     createTestUser(t, gdb, "Alice Admin", "alice@omnitak.com", models.RoleAdmin, true),
		Manager:   createTestUser(t, gdb, "Paula Manager", "paula@omnitak.com", models.RoleProjectManager, true),
		Developer: createTestUser(t, gdb, "Devon Developer", "devon@omnitak.com", models.RoleDeveloper, true),
	}
	return env
}

func bearerFor(t *testing.T, user models.User) string {
	t.Helper()

	token, err := auth.GenerateJWT(user.ID, user.Name, user.Email, user.RoleName())
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, r *gin.Engine, method, path, authorization string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func createTestProject(t *testing.T, gdb *gorm.DB, name string, createdBy models.User) models.Project {
	t.Helper()

	project := models.Project{
		Name:        name,
		Status:      models.ProjectStatusActive,
		CreatedByID: createdBy.ID,
		Version:     1,
	}
	require.NoError(t, gdb.Create(&project).Error)
	return project
}

func createTestTicket(t *testing.T, gdb *gorm.DB, project models.Project, createdBy models.User, assignedTo *models.User) models.Ticket {
	t.Helper()

	ticket := models.Ticket{
		Title:       "Test ticket",
		ProjectID:   project.ID,
		Status:      models.TicketStatusToDo,
		Priority:    models.TicketPriorityLow,
		CreatedByID: createdBy.ID,
		CreatedAt:   time.Now().UTC(),
		Version:     1,
	}
	if assignedTo != nil {
		ticket.AssignedToID = &assignedTo.ID
	}
	require.NoError(t, gdb.Create(&ticket).Error)
	return ticket
}

func createTestComment(t *testing.T, gdb *gorm.DB, ticket models.Ticket, createdBy models.User, content string) models.Comment {
	t.Helper()

	comment := models.Comment{
		TicketID:    ticket.ID,
		Content:     content,
		CreatedByID: createdBy.ID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, gdb.Create(&comment).Error)
	return comment
}
