package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommentRejectsEmptyContent(t *testing.T) {
	env := setupTestEnv(t)
	project := createTestProject(t, env.DB, "Apollo", env.Admin)
	ticket := createTestTicket(t, env.DB, project, env.Admin, nil)

	recorder := doRequest(t, env.Router, http.MethodPost, fmt.Sprintf("/api/tickets/%d/comments", ticket.ID), bearerFor(t, env.Developer), map[string]string{
		"content": "   ",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateCommentOnMissingTicket(t *testing.T) {
	env := setupTestEnv(t)

	recorder := doRequest(t, env.Router, http.MethodPost, "/api/tickets/9999/comments", bearerFor(t, env.Developer), map[string]string{
		"content": "Hello",
	})

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateAndListComments(t *testing.T) {
	env := setupTestEnv(t)
	project := createTestProject(t, env.DB, "Apollo", env.Admin)
	ticket := createTestTicket(t, env.DB, project, env.Admin, &env.Developer)

	recorder := doRequest(t, env.Router, http.MethodPost, fmt.Sprintf("/api/tickets/%d/comments", ticket.ID), bearerFor(t, env.Developer), map[string]string{
		"content": "Looking into this now",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "Looking into this now", body["content"])
	assert.Equal(t, float64(env.Developer.ID), body["created_by_id"])

	recorder = doRequest(t, env.Router, http.MethodGet, fmt.Sprintf("/api/tickets/%d/comments", ticket.ID), bearerFor(t, env.Admin), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Looking into this now")
}

func TestUpdateCommentAuthorOrAdminOnly(t *testing.T) {
	env := setupTestEnv(t)
	project := createTestProject(t, env.DB, "Apollo", env.Admin)
	ticket := createTestTicket(t, env.DB, project, env.Admin, nil)
	comment := createTestComment(t, env.DB, ticket, env.Developer, "Original")
	path := fmt.Sprintf("/api/comments/%d", comment.ID)

	recorder := doRequest(t, env.Router, http.MethodPut, path, bearerFor(t, env.Manager), map[string]string{
		"content": "Edited by someone else",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = doRequest(t, env.Router, http.MethodPut, path, bearerFor(t, env.Developer), map[string]string{
		"content": "Edited by author",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, env.Router, http.MethodPut, path, bearerFor(t, env.Admin), map[string]string{
		"content": "Edited by admin",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var fresh models.Comment
	require.NoError(t, env.DB.First(&fresh, comment.ID).Error)
	assert.Equal(t, "Edited by admin", fresh.Content)
}

func TestDeleteCommentAuthorOrAdminOnly(t *testing.T) {
	env := setupTestEnv(t)
	project := createTestProject(t, env.DB, "Apollo", env.Admin)
	ticket := createTestTicket(t, env.DB, project, env.Admin, nil)
	comment := createTestComment(t, env.DB, ticket, env.Developer, "To be removed")
	path := fmt.Sprintf("/api/comments/%d", comment.ID)

	recorder := doRequest(t, env.Router, http.MethodDelete, path, bearerFor(t, env.Manager), nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = doRequest(t, env.Router, http.MethodDelete, path, bearerFor(t, env.Developer), nil)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count).Error)
	assert.Zero(t, count)
}
