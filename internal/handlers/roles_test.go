package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolesRequireAdmin(t *testing.T) {
	env := setupTestEnv(t)

	recorder := doRequest(t, env.Router, http.MethodGet, "/api/roles", bearerFor(t, env.Developer), nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCreateRoleRejectsDuplicateName(t *testing.T) {
	env := setupTestEnv(t)

	recorder := doRequest(t, env.Router, http.MethodPost, "/api/roles", bearerFor(t, env.Admin), map[string]string{
		"name": models.RoleTester,
	})

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestReservedRolesAreProtected(t *testing.T) {
	env := setupTestEnv(t)
	token := bearerFor(t, env.Admin)

	var adminRole models.Role
	require.NoError(t, env.DB.Where("name = ?", models.RoleAdmin).First(&adminRole).Error)

	recorder := doRequest(t, env.Router, http.MethodPut, fmt.Sprintf("/api/roles/%d", adminRole.ID), token, map[string]string{
		"name": "Superuser",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, env.Router, http.MethodDelete, fmt.Sprintf("/api/roles/%d", adminRole.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// Updating the description while keeping the name is fine.
	recorder = doRequest(t, env.Router, http.MethodPut, fmt.Sprintf("/api/roles/%d", adminRole.ID), token, map[string]string{
		"name":        models.RoleAdmin,
		"description": "Runs the show",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestDeleteRoleReassignsMembersToDeveloper(t *testing.T) {
	env := setupTestEnv(t)
	token := bearerFor(t, env.Admin)

	recorder := doRequest(t, env.Router, http.MethodPost, "/api/roles", token, map[string]string{
		"name": "Designer",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	roleID := uint(decodeBody(t, recorder)["id"].(float64))

	member := createTestUser(t, env.DB, "Dana Designer", "dana@omnitak.com", "Designer", true)

	recorder = doRequest(t, env.Router, http.MethodDelete, fmt.Sprintf("/api/roles/%d", roleID), token, nil)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	var developerRole models.Role
	require.NoError(t, env.DB.Where("name = ?", models.RoleDeveloper).First(&developerRole).Error)

	var fresh models.User
	require.NoError(t, env.DB.First(&fresh, member.ID).Error)
	assert.Equal(t, developerRole.ID, fresh.RoleID)

	var count int64
	require.NoError(t, env.DB.Model(&models.Role{}).Where("id = ?", roleID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteRoleNotFound(t *testing.T) {
	env := setupTestEnv(t)

	recorder := doRequest(t, env.Router, http.MethodDelete, "/api/roles/9999", bearerFor(t, env.Admin), nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
