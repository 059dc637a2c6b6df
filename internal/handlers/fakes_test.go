package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/services"
)

// stubSessions records the last call and returns err for every method.
type stubSessions struct {
	err      error
	pair     models.TokenPair
	register services.RegisterInput
	email    string
	token    string
	userID   primitive.ObjectID
	password string
}

func (s *stubSessions) Register(_ context.Context, in services.RegisterInput) (models.TokenPair, error) {
	s.register = in
	return s.pair, s.err
}

func (s *stubSessions) LoginWithPassword(_ context.Context, email, password string) (models.TokenPair, error) {
	s.email, s.password = email, password
	return s.pair, s.err
}

func (s *stubSessions) Logout(_ context.Context, userID primitive.ObjectID, refreshToken string) error {
	s.userID, s.token = userID, refreshToken
	return s.err
}

func (s *stubSessions) Refresh(_ context.Context, oldToken string) (models.TokenPair, error) {
	s.token = oldToken
	return s.pair, s.err
}

func (s *stubSessions) VerifyEmail(_ context.Context, token string) (models.TokenPair, error) {
	s.token = token
	return s.pair, s.err
}

func (s *stubSessions) ResendVerifyEmail(_ context.Context, userID primitive.ObjectID) error {
	s.userID = userID
	return s.err
}

func (s *stubSessions) ForgotPassword(_ context.Context, email string) error {
	s.email = email
	return s.err
}

func (s *stubSessions) VerifyForgotPasswordToken(_ context.Context, token string) (*models.User, error) {
	s.token = token
	if s.err != nil {
		return nil, s.err
	}
	return &models.User{}, nil
}

func (s *stubSessions) ResetPassword(_ context.Context, token, newPassword string) error {
	s.token, s.password = token, newPassword
	return s.err
}

func (s *stubSessions) ChangePassword(_ context.Context, userID primitive.ObjectID, _, newPassword string) error {
	s.userID, s.password = userID, newPassword
	return s.err
}

type stubProfiles struct {
	err     error
	patch   models.ProfilePatch
	members []primitive.ObjectID
	created bool
}

func (s *stubProfiles) GetMe(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return &models.User{ID: id, Password: "secret-hash"}, s.err
}

func (s *stubProfiles) GetProfile(_ context.Context, username string) (models.PublicProfile, error) {
	return models.PublicProfile{Username: username}, s.err
}

func (s *stubProfiles) UpdateMe(_ context.Context, id primitive.ObjectID, patch models.ProfilePatch) (*models.User, error) {
	s.patch = patch
	return &models.User{ID: id}, s.err
}

func (s *stubProfiles) SetCircle(_ context.Context, _ primitive.ObjectID, members []primitive.ObjectID) error {
	s.members = members
	return s.err
}

func (s *stubProfiles) Follow(_ context.Context, _, _ primitive.ObjectID) (bool, error) {
	return s.created, s.err
}

func (s *stubProfiles) Unfollow(_ context.Context, _, _ primitive.ObjectID) (bool, error) {
	return s.created, s.err
}

type stubTweets struct {
	in     services.TweetInput
	viewer *primitive.ObjectID
	err    error
}

func (s *stubTweets) Create(_ context.Context, userID primitive.ObjectID, in services.TweetInput) (*models.Tweet, error) {
	s.in = in
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &models.Tweet{ID: primitive.NewObjectID(), UserID: userID, Content: in.Content}, s.err
}

func (s *stubTweets) RecordView(_ context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*models.Tweet, error) {
	s.viewer = viewer
	return &models.Tweet{ID: id, GuestViews: 1}, s.err
}

type stubBookmarks struct{ err error }

func (s *stubBookmarks) Create(_ context.Context, userID, tweetID primitive.ObjectID) (*models.Bookmark, error) {
	return &models.Bookmark{ID: primitive.NewObjectID(), UserID: userID, TweetID: tweetID}, s.err
}

func (s *stubBookmarks) Delete(_ context.Context, _, _ primitive.ObjectID) (bool, error) {
	return true, s.err
}
