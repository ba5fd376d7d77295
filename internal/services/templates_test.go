package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplateAndPopulate(t *testing.T) {
	dir := t.TempDir()
	template := "<p>Hello {{UserName}}, ticket {{TicketTitle}} is yours. Bye {{UserName}}.</p>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Greeting.html"), []byte(template), 0o644))

	body := LoadTemplateAndPopulate(dir, "Greeting", map[string]string{
		"UserName":    "Alice",
		"TicketTitle": "Fix login page",
	})

	assert.Equal(t, "<p>Hello Alice, ticket Fix login page is yours. Bye Alice.</p>", body)
}

func TestLoadTemplateLeavesUnknownPlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Partial.html"), []byte("{{Known}} and {{Unknown}}"), 0o644))

	body := LoadTemplateAndPopulate(dir, "Partial", map[string]string{"Known": "value"})

	assert.Equal(t, "value and {{Unknown}}", body)
}

func TestLoadTemplateMissingFileFallsBack(t *testing.T) {
	body := LoadTemplateAndPopulate(t.TempDir(), "DoesNotExist", nil)
	assert.Equal(t, "Email template not found.", body)
}
