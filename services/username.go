package services

import (
	"fmt"
	"strings"
	"unicode"
)

// usernameDisallowed are the characters that break a username used as a
// route segment. Facebook's auto-generated fallback handles look like
// "profile.php?id=12345" and trip all three.
const usernameDisallowed = "/?="

// ValidateUsername checks the format of a candidate username. Uniqueness is
// checked separately against the account store.
func ValidateUsername(candidate string) error {
	if candidate == "" {
		return fmt.Errorf("%w: empty", ErrUsernameInvalid)
	}
	if strings.ContainsAny(candidate, usernameDisallowed) {
		return fmt.Errorf("%w: %q", ErrUsernameInvalid, candidate)
	}
	for _, r := range candidate {
		if unicode.IsSpace(r) {
			return fmt.Errorf("%w: %q", ErrUsernameInvalid, candidate)
		}
	}
	return nil
}
