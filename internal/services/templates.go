package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const missingTemplateFallback = "Email template not found."

// LoadTemplateAndPopulate reads EmailTemplates/<name>.html under dir and
// substitutes every {{Key}} token with its value from placeholders. A missing
// template yields a literal fallback string so that a notification still
// carries something rather than failing the send.
func LoadTemplateAndPopulate(dir, name string, placeholders map[string]string) string {
	templatePath := filepath.Join(dir, name+".html")

	content, err := os.ReadFile(templatePath)
	if err != nil {
		log.Printf("Email template not found: %s", templatePath)
		return missingTemplateFallback
	}

	body := string(content)
	for key, value := range placeholders {
		body = strings.ReplaceAll(body, fmt.Sprintf("{{%s}}", key), value)
	}

	return body
}
