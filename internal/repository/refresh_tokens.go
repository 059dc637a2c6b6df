// Package repository holds the MongoDB-backed stores. Services depend on the
// interfaces declared here, never on *mongo.Collection directly.
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

var (
	ErrNotFound       = errors.New("repository: not found")
	ErrDuplicateToken = errors.New("repository: duplicate refresh token")
)

// RefreshTokenStore persists refresh tokens so they can be revoked.
type RefreshTokenStore interface {
	Insert(ctx context.Context, rec *models.RefreshTokenRecord) error
	FindByToken(ctx context.Context, token string) (*models.RefreshTokenRecord, error)
	DeleteByToken(ctx context.Context, token string) error
	Rotate(ctx context.Context, oldToken string, rec *models.RefreshTokenRecord) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type MongoRefreshTokens struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRefreshTokens(db *mongo.Database, collection string) *MongoRefreshTokens {
	return &MongoRefreshTokens{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoRefreshTokens) Insert(ctx context.Context, rec *models.RefreshTokenRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindByToken ignores records whose exp has passed but that the TTL monitor
// has not yet removed.
func (s *MongoRefreshTokens) FindByToken(ctx context.Context, token string) (*models.RefreshTokenRecord, error) {
	var rec models.RefreshTokenRecord
	filter := bson.M{"token": token, "exp": bson.M{"$gt": s.now()}}
	if err := s.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rec, nil
}

// DeleteByToken succeeds whether or not the token exists.
func (s *MongoRefreshTokens) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// Rotate swaps oldToken for rec in one document operation. At most one of
// several concurrent rotations of the same token observes a match; the rest
// get ErrNotFound.
func (s *MongoRefreshTokens) Rotate(ctx context.Context, oldToken string, rec *models.RefreshTokenRecord) error {
	filter := bson.M{"token": oldToken, "exp": bson.M{"$gt": s.now()}}
	replacement := bson.M{
		"token":   rec.Token,
		"user_id": rec.UserID,
		"iat":     rec.IssuedAt,
		"exp":     rec.ExpiresAt,
	}

	var replaced models.RefreshTokenRecord
	err := s.coll.FindOneAndReplace(ctx, filter, replacement,
		options.FindOneAndReplace().SetReturnDocument(options.After),
	).Decode(&replaced)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateToken
	case err != nil:
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	rec.ID = replaced.ID
	return nil
}

func (s *MongoRefreshTokens) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens of user: %w", err)
	}
	return res.DeletedCount, nil
}
