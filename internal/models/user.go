package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserVerifyStatus is the verification state of an account.
type UserVerifyStatus int

const (
	Unverified UserVerifyStatus = iota
	Verified
	Banned
)

func (s UserVerifyStatus) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verified:
		return "verified"
	case Banned:
		return "banned"
	}
	return "unknown"
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name        string    `bson:"name" json:"name"`
	Email       string    `bson:"email" json:"email"`
	Username    string    `bson:"username" json:"username"`
	Password    string    `bson:"password" json:"-"` // Don't return password in JSON
	DateOfBirth time.Time `bson:"date_of_birth" json:"date_of_birth"`

	Verify UserVerifyStatus `bson:"verify" json:"verify"`

	// Single-use tokens; empty string means consumed or not pending
	EmailVerifyToken    string `bson:"email_verify_token" json:"-"`
	ForgotPasswordToken string `bson:"forgot_password_token" json:"-"`

	// Profile fields
	Bio        string `bson:"bio,omitempty" json:"bio,omitempty"`
	Location   string `bson:"location,omitempty" json:"location,omitempty"`
	Website    string `bson:"website,omitempty" json:"website,omitempty"`
	Avatar     string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CoverPhoto string `bson:"cover_photo,omitempty" json:"cover_photo,omitempty"`

	// TwitterCircle is the allow-list for TwitterCircle-audience tweets
	TwitterCircle []primitive.ObjectID `bson:"twitter_circle" json:"-"`
}

// InCircle reports whether id is the user itself or on its circle.
func (u *User) InCircle(id primitive.ObjectID) bool {
	if u.ID == id {
		return true
	}
	for _, member := range u.TwitterCircle {
		if member == id {
			return true
		}
	}
	return false
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name"`
	Username   string             `json:"username"`
	Bio        string             `json:"bio,omitempty"`
	Location   string             `json:"location,omitempty"`
	Website    string             `json:"website,omitempty"`
	Avatar     string             `json:"avatar,omitempty"`
	CoverPhoto string             `json:"cover_photo,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Bio:        u.Bio,
		Location:   u.Location,
		Website:    u.Website,
		Avatar:     u.Avatar,
		CoverPhoto: u.CoverPhoto,
		CreatedAt:  u.CreatedAt,
	}
}

// ProfilePatch holds the optional fields of an update-me request.
type ProfilePatch struct {
	Name        *string
	DateOfBirth *time.Time
	Bio         *string
	Location    *string
	Website     *string
	Username    *string
	Avatar      *string
	CoverPhoto  *string
}
