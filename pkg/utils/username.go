package utils

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinUsernameLength = 4
	MaxUsernameLength = 15
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	// Usernames that would shadow routes under /api/users
	reservedUsernames = map[string]struct{}{
		"me": {}, "login": {}, "logout": {}, "register": {}, "follow": {},
		"refresh-token": {}, "verify-email": {}, "change-password": {},
	}
)

// ValidateUsername validates username format
// Rules: 4-15 characters, letters, numbers, underscores only, not purely numeric
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be between 4 and 15 characters"}
	}

	if !usernameRegex.MatchString(username) {
		return &ValidationError{Field: "username", Message: "Username can only contain letters, numbers, and underscores"}
	}

	if !strings.ContainsFunc(username, unicode.IsLetter) {
		return &ValidationError{Field: "username", Message: "Username must contain at least one letter"}
	}

	if _, reserved := reservedUsernames[NormalizeUsername(username)]; reserved {
		return &ValidationError{Field: "username", Message: "Username is reserved"}
	}

	return nil
}

// NormalizeUsername converts username to lowercase for storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
