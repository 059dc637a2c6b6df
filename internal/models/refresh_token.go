package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenType identifies which family a signed token belongs to.
// The numeric values are part of the wire format.
type TokenType int

const (
	AccessToken TokenType = iota
	RefreshToken
	EmailVerifyToken
	ForgotPasswordToken
)

func (t TokenType) String() string {
	switch t {
	case AccessToken:
		return "access_token"
	case RefreshToken:
		return "refresh_token"
	case EmailVerifyToken:
		return "email_verify_token"
	case ForgotPasswordToken:
		return "forgot_password_token"
	}
	return "unknown_token"
}

// RefreshTokenRecord is a persisted refresh token. The TTL index on exp
// removes it once expired.
type RefreshTokenRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Token     string             `bson:"token" json:"token"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	IssuedAt  time.Time          `bson:"iat" json:"iat"`
	ExpiresAt time.Time          `bson:"exp" json:"exp"`
}

// TokenPair is returned by every flow that starts or continues a session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
