package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectRequiresAdmin(t *testing.T) {
	env := setupTestEnv(t)

	payload := map[string]interface{}{"name": "Apollo"}

	recorder := doRequest(t, env.Router, http.MethodPost, "/api/projects", bearerFor(t, env.Developer), payload)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = doRequest(t, env.Router, http.MethodPost, "/api/projects", bearerFor(t, env.Admin), payload)
	require.Equal(t, http.StatusCreated, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "Apollo", body["name"])
	assert.Equal(t, models.ProjectStatusActive, body["status"])
	assert.Equal(t, float64(1), body["version"])
	assert.Equal(t, float64(env.Admin.ID), body["created_by_id"])
}

func TestCreateProjectRejectsInvalidStatus(t *testing.T) {
	env := setupTestEnv(t)

	recorder := doRequest(t, env.Router, http.MethodPost, "/api/projects", bearerFor(t, env.Admin), map[string]interface{}{
		"name":   "Apollo",
		"status": "Paused",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateProjectBumpsVersion(t *testing.T) {
	env := setupTestEnv(t)
	project := createTestProject(t, env.DB, "Apollo", env.Admin)

	recorder := doRequest(t, env.Router, http.MethodPut, fmt.Sprintf("/api/projects/%d", project.ID), bearerFor(t, env.Admin), map[string]interface{}{
		"name":    "Apollo Reborn",
		"status":  models.ProjectStatusOnHold,
		"version": 1,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "Apollo Reborn", body["name"])
	assert.Equal(t, float64(2), body["version"])
	// Editing never transfers ownership.
	assert.Equal(t, float64(env.Admin.ID), body["created_by_id"])
}

func TestUpdateProjectStaleVersionConflicts(t *testing.T) {
	env := setupTestEnv(t)
	project := createTestProject(t, env.DB, "Apollo", env.Admin)
	token := bearerFor(t, env.Admin)
	path := fmt.Sprintf("/api/projects/%d", project.ID)

	recorder := doRequest(t, env.Router, http.MethodPut, path, token, map[string]interface{}{
		"name":    "First edit",
		"status":  models.ProjectStatusActive,
		"version": 1,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, env.Router, http.MethodPut, path, token, map[string]interface{}{
		"name":    "Second edit with stale version",
		"status":  models.ProjectStatusActive,
		"version": 1,
	})
	assert.Equal(t, http.StatusConflict, recorder.Code)

	var fresh models.Project
	require.NoError(t, env.DB.First(&fresh, project.ID).Error)
	assert.Equal(t, "First edit", fresh.Name)
}

func TestDeleteProjectCascades(t *testing.T) {
	env := setupTestEnv(t)

	project := createTestProject(t, env.DB, "Apollo", env.Admin)
	ticket := createTestTicket(t, env.DB, project, env.Admin, &env.Developer)
	createTestComment(t, env.DB, ticket, env.Developer, "On it")

	other := createTestProject(t, env.DB, "Borealis", env.Admin)
	otherTicket := createTestTicket(t, env.DB, other, env.Admin, nil)

	recorder := doRequest(t, env.Router, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), bearerFor(t, env.Admin), nil)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	var ticketCount, commentCount int64
	require.NoError(t, env.DB.Model(&models.Ticket{}).Where("project_id = ?", project.ID).Count(&ticketCount).Error)
	require.NoError(t, env.DB.Model(&models.Comment{}).Where("ticket_id = ?", ticket.ID).Count(&commentCount).Error)
	assert.Zero(t, ticketCount)
	assert.Zero(t, commentCount)

	// Other projects and the referenced users are untouched.
	var survivor models.Ticket
	assert.NoError(t, env.DB.First(&survivor, otherTicket.ID).Error)
	var author models.User
	require.NoError(t, env.DB.First(&author, env.Developer.ID).Error)
	assert.False(t, author.IsDeleted)
}

func TestGetProjectNotFound(t *testing.T) {
	env := setupTestEnv(t)

	recorder := doRequest(t, env.Router, http.MethodGet, "/api/projects/9999", bearerFor(t, env.Developer), nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
