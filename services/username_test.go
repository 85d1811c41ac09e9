package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"joepublic", "jane_public", "user-42", "J.Doe"}
	for _, name := range valid {
		assert.NoError(t, ValidateUsername(name), name)
	}

	invalid := []string{
		"",
		"profile.php?id=12345",
		"with/slash",
		"with=equals",
		"with space",
		"with\ttab",
	}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateUsername(name), ErrUsernameInvalid, name)
	}
}
