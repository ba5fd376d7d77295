package utils

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._%+-]*@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailPattern.MatchString(email)
}

// NormalizeEmail applies the documented case-insensitivity policy: emails are
// trimmed and lower-cased before any comparison or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HasOrgDomain(email, domain string) bool {
	return strings.HasSuffix(NormalizeEmail(email), strings.ToLower(domain))
}
