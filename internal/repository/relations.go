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

type FollowerStore interface {
	// Follow returns false when the edge already existed.
	Follow(ctx context.Context, userID, followedUserID primitive.ObjectID) (bool, error)
	// Unfollow returns false when there was nothing to remove.
	Unfollow(ctx context.Context, userID, followedUserID primitive.ObjectID) (bool, error)
}

type MongoFollowers struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoFollowers(db *mongo.Database, collection string) *MongoFollowers {
	return &MongoFollowers{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoFollowers) Follow(ctx context.Context, userID, followedUserID primitive.ObjectID) (bool, error) {
	f := models.Follower{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		FollowedUserID: followedUserID,
		CreatedAt:      s.now(),
	}
	if _, err := s.coll.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert follower: %w", err)
	}
	return true, nil
}

func (s *MongoFollowers) Unfollow(ctx context.Context, userID, followedUserID primitive.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"user_id": userID, "followed_user_id": followedUserID})
	if err != nil {
		return false, fmt.Errorf("delete follower: %w", err)
	}
	return res.DeletedCount > 0, nil
}

type BookmarkStore interface {
	// Save is idempotent and returns the stored bookmark.
	Save(ctx context.Context, userID, tweetID primitive.ObjectID) (*models.Bookmark, error)
	Delete(ctx context.Context, userID, tweetID primitive.ObjectID) (bool, error)
}

type MongoBookmarks struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoBookmarks(db *mongo.Database, collection string) *MongoBookmarks {
	return &MongoBookmarks{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoBookmarks) Save(ctx context.Context, userID, tweetID primitive.ObjectID) (*models.Bookmark, error) {
	filter := bson.M{"user_id": userID, "tweet_id": tweetID}
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":    userID,
		"tweet_id":   tweetID,
		"created_at": s.now(),
	}}

	var b models.Bookmark
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		return nil, fmt.Errorf("upsert bookmark: %w", err)
	}
	return &b, nil
}

func (s *MongoBookmarks) Delete(ctx context.Context, userID, tweetID primitive.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"user_id": userID, "tweet_id": tweetID})
	if err != nil {
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// IsNotFound reports whether err came from a lookup that matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
