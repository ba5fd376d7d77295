package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("alice@omnitak.com"))
	assert.True(t, IsValidEmail("alice.smith+dev@omnitak.co.za"))

	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("@omnitak.com"))
	assert.False(t, IsValidEmail("alice@"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@omnitak.com", NormalizeEmail("  Alice@Omnitak.COM  "))
}

func TestHasOrgDomain(t *testing.T) {
	assert.True(t, HasOrgDomain("alice@omnitak.com", "@omnitak.com"))
	assert.True(t, HasOrgDomain("Alice@OMNITAK.com", "@omnitak.com"))
	assert.False(t, HasOrgDomain("alice@gmail.com", "@omnitak.com"))
	assert.False(t, HasOrgDomain("alice@omnitak.com.evil.net", "@omnitak.com"))
}
