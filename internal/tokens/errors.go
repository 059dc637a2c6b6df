package tokens

import (
	"errors"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
)

func label(kind models.TokenType) string {
	switch kind {
	case models.AccessToken:
		return "Access token"
	case models.RefreshToken:
		return "Refresh token"
	case models.EmailVerifyToken:
		return "Email verify token"
	case models.ForgotPasswordToken:
		return "Forgot password token"
	}
	return "Token"
}

// RequiredError is returned when a token of kind was expected but absent.
func RequiredError(kind models.TokenType) *apperr.Error {
	return apperr.Unauthorized(label(kind) + " is required")
}

// AuthError turns a Decode failure into an Unauthorized error whose message
// names the token kind, e.g. "Refresh token is expired".
func AuthError(kind models.TokenType, err error) *apperr.Error {
	var msg string
	switch {
	case errors.Is(err, ErrTokenExpired):
		msg = label(kind) + " is expired"
	case errors.Is(err, ErrTokenMalformed):
		msg = label(kind) + " is malformed"
	default:
		msg = label(kind) + " is invalid"
	}
	return apperr.Wrap(apperr.Unauthorized(msg), err)
}
