package utils

import (
	"net/mail"
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 50
	MaxNameLength     = 100
	MaxBioLength      = 200
	MaxImageURLLength = 400
)

// ValidateEmail checks that email is a single bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Email is invalid"}
	}
	return nil
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateStrongPassword requires 6-50 characters with at least one
// lowercase letter, one uppercase letter, one digit and one symbol.
func ValidateStrongPassword(field, password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return &ValidationError{Field: field, Message: "Password must be between 6 and 50 characters"}
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return &ValidationError{
			Field:   field,
			Message: "Password must contain at least one lowercase letter, one uppercase letter, one number and one symbol",
		}
	}
	return nil
}

// ValidateName trims name and checks its length.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: "Name must be at most 100 characters"}
	}
	return nil
}

// Fields flattens validation errors into the field->message map returned
// to clients. Non-validation errors are ignored.
func Fields(errs ...error) map[string]string {
	out := map[string]string{}
	for _, err := range errs {
		if ve, ok := err.(*ValidationError); ok {
			if _, seen := out[ve.Field]; !seen {
				out[ve.Field] = ve.Message
			}
		}
	}
	return out
}
