package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
)

var (
	ErrUsernameAlreadyExists = apperr.Conflict("Username already exists")
	ErrCannotFollowYourself  = &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "Cannot follow yourself",
		Fields:  map[string]string{"followed_user_id": "Cannot follow yourself"},
	}
)

// CircleInvalidator is notified when a user's audience data changes.
type CircleInvalidator interface {
	Invalidate(ctx context.Context, id primitive.ObjectID) error
}

type UserService struct {
	users     repository.UserStore
	followers repository.FollowerStore
	circle    CircleInvalidator
}

func NewUserService(users repository.UserStore, followers repository.FollowerStore, circle CircleInvalidator) *UserService {
	return &UserService{users: users, followers: followers, circle: circle}
}

func (s *UserService) GetMe(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return u, nil
}

// GetProfile returns the public view of a user, looked up by username.
func (s *UserService) GetProfile(ctx context.Context, username string) (models.PublicProfile, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return models.PublicProfile{}, notFoundOr(err, ErrUserNotFound)
	}
	return u.Public(), nil
}

func (s *UserService) UpdateMe(ctx context.Context, id primitive.ObjectID, patch models.ProfilePatch) (*models.User, error) {
	u, err := s.users.UpdateProfile(ctx, id, patch)
	switch {
	case errors.Is(err, repository.ErrDuplicateKey):
		return nil, ErrUsernameAlreadyExists
	case err != nil:
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return u, nil
}

// SetCircle replaces the allow-list used for TwitterCircle tweets.
func (s *UserService) SetCircle(ctx context.Context, id primitive.ObjectID, members []primitive.ObjectID) error {
	seen := make(map[primitive.ObjectID]struct{}, len(members))
	unique := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		if m == id {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}

	if err := s.users.SetCircle(ctx, id, unique); err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	if s.circle != nil {
		if err := s.circle.Invalidate(ctx, id); err != nil {
			log.Warn().Err(err).Str("user_id", id.Hex()).Msg("failed to invalidate circle cache")
		}
	}
	return nil
}

// Follow returns false when userID already followed followedID.
func (s *UserService) Follow(ctx context.Context, userID, followedID primitive.ObjectID) (bool, error) {
	if userID == followedID {
		return false, ErrCannotFollowYourself
	}
	if _, err := s.users.FindByID(ctx, followedID); err != nil {
		return false, notFoundOr(err, ErrUserNotFound)
	}
	created, err := s.followers.Follow(ctx, userID, followedID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return created, nil
}

// Unfollow returns false when there was no follow edge.
func (s *UserService) Unfollow(ctx context.Context, userID, followedID primitive.ObjectID) (bool, error) {
	if _, err := s.users.FindByID(ctx, followedID); err != nil {
		return false, notFoundOr(err, ErrUserNotFound)
	}
	removed, err := s.followers.Unfollow(ctx, userID, followedID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return removed, nil
}

func notFoundOr(err error, notFound *apperr.Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return apperr.Internal(err)
}
