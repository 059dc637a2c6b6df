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

type TweetStore interface {
	Create(ctx context.Context, t *models.Tweet) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tweet, error)
	// IncrementViews bumps guest_views or user_views and returns the updated tweet.
	IncrementViews(ctx context.Context, id primitive.ObjectID, guest bool) (*models.Tweet, error)
}

type MongoTweets struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoTweets(db *mongo.Database, collection string) *MongoTweets {
	return &MongoTweets{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoTweets) Create(ctx context.Context, t *models.Tweet) error {
	now := s.now()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Hashtags == nil {
		t.Hashtags = []primitive.ObjectID{}
	}
	if t.Mentions == nil {
		t.Mentions = []primitive.ObjectID{}
	}
	if t.Medias == nil {
		t.Medias = []models.Media{}
	}
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("insert tweet: %w", err)
	}
	return nil
}

func (s *MongoTweets) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tweet, error) {
	var t models.Tweet
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find tweet: %w", err)
	}
	return &t, nil
}

func (s *MongoTweets) IncrementViews(ctx context.Context, id primitive.ObjectID, guest bool) (*models.Tweet, error) {
	field := "user_views"
	if guest {
		field = "guest_views"
	}
	update := bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"updated_at": s.now()},
	}

	var t models.Tweet
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("increment tweet views: %w", err)
	}
	return &t, nil
}

type HashtagStore interface {
	// Upsert returns the ids of the named hashtags, creating missing ones.
	Upsert(ctx context.Context, names []string) ([]primitive.ObjectID, error)
}

type MongoHashtags struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoHashtags(db *mongo.Database, collection string) *MongoHashtags {
	return &MongoHashtags{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoHashtags) Upsert(ctx context.Context, names []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(names))
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	for _, name := range names {
		update := bson.M{"$setOnInsert": bson.M{"name": name, "created_at": s.now()}}
		var h models.Hashtag
		if err := s.coll.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&h); err != nil {
			return nil, fmt.Errorf("upsert hashtag %q: %w", name, err)
		}
		ids = append(ids, h.ID)
	}
	return ids, nil
}
