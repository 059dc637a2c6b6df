package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/chirp-backend/internal/models"
)

// ErrDuplicateKey is returned when a unique index (email, username,
// follower pair) rejects a write.
var ErrDuplicateKey = errors.New("repository: duplicate key")

// UserStore is the principal store used by the session manager and the
// user-facing services.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// MarkVerified flips Unverified to Verified only while token is still
	// the stored email-verify token.
	MarkVerified(ctx context.Context, id primitive.ObjectID, token string) (*models.User, error)
	SetEmailVerifyToken(ctx context.Context, id primitive.ObjectID, token string) error
	SetForgotPasswordToken(ctx context.Context, id primitive.ObjectID, token string) error
	// ResetPassword replaces the password only while token is still the
	// stored forgot-password token, and consumes it.
	ResetPassword(ctx context.Context, id primitive.ObjectID, token, passwordHash string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.ProfilePatch) (*models.User, error)
	SetCircle(ctx context.Context, id primitive.ObjectID, members []primitive.ObjectID) error
}

type MongoUsers struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoUsers(db *mongo.Database, collection string) *MongoUsers {
	return &MongoUsers{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoUsers) Create(ctx context.Context, u *models.User) error {
	now := s.now()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt, u.UpdatedAt = now, now
	if u.TwitterCircle == nil {
		u.TwitterCircle = []primitive.ObjectID{}
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *MongoUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return n > 0, nil
}

func (s *MongoUsers) MarkVerified(ctx context.Context, id primitive.ObjectID, token string) (*models.User, error) {
	filter := bson.M{
		"_id":                id,
		"verify":             models.Unverified,
		"email_verify_token": token,
	}
	update := bson.M{"$set": bson.M{
		"verify":             models.Verified,
		"email_verify_token": "",
		"updated_at":         s.now(),
	}}

	var u models.User
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mark user verified: %w", err)
	}
	return &u, nil
}

func (s *MongoUsers) updateByID(ctx context.Context, filter bson.M, set bson.M, op string) error {
	set["updated_at"] = s.now()
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUsers) SetEmailVerifyToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.updateByID(ctx, bson.M{"_id": id}, bson.M{"email_verify_token": token}, "set email verify token")
}

// SetForgotPasswordToken overwrites any pending token; the latest request wins.
func (s *MongoUsers) SetForgotPasswordToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.updateByID(ctx, bson.M{"_id": id}, bson.M{"forgot_password_token": token}, "set forgot password token")
}

func (s *MongoUsers) ResetPassword(ctx context.Context, id primitive.ObjectID, token, passwordHash string) error {
	filter := bson.M{"_id": id, "forgot_password_token": token}
	set := bson.M{"password": passwordHash, "forgot_password_token": ""}
	return s.updateByID(ctx, filter, set, "reset password")
}

func (s *MongoUsers) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return s.updateByID(ctx, bson.M{"_id": id}, bson.M{"password": passwordHash}, "update password")
}

func (s *MongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch models.ProfilePatch) (*models.User, error) {
	set := bson.M{"updated_at": s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.DateOfBirth != nil {
		set["date_of_birth"] = *patch.DateOfBirth
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Website != nil {
		set["website"] = *patch.Website
	}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Avatar != nil {
		set["avatar"] = *patch.Avatar
	}
	if patch.CoverPhoto != nil {
		set["cover_photo"] = *patch.CoverPhoto
	}

	var u models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateKey
	case err != nil:
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}

func (s *MongoUsers) SetCircle(ctx context.Context, id primitive.ObjectID, members []primitive.ObjectID) error {
	if members == nil {
		members = []primitive.ObjectID{}
	}
	return s.updateByID(ctx, bson.M{"_id": id}, bson.M{"twitter_circle": members}, "set twitter circle")
}
