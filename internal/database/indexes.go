package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/chirp-backend/internal/config"
)

// EnsureIndexes creates the uniqueness constraints and the refresh token TTL
// index. Called on startup from main after Mongo has connected.
func EnsureIndexes(ctx context.Context, db *mongo.Database, c config.Collections) error {
	plan := map[string][]mongo.IndexModel{
		c.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_1").SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("username_1").SetUnique(true)},
		},
		c.RefreshTokens: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetName("token_1").SetUnique(true)},
			// Mongo's TTL monitor removes records once exp has passed
			{Keys: bson.D{{Key: "exp", Value: 1}}, Options: options.Index().SetName("exp_1").SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("user_id_1")},
		},
		c.Followers: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "followed_user_id", Value: 1}},
				Options: options.Index().SetName("user_id_1_followed_user_id_1").SetUnique(true),
			},
		},
		c.Bookmarks: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "tweet_id", Value: 1}},
				Options: options.Index().SetName("user_id_1_tweet_id_1").SetUnique(true),
			},
		},
		c.Hashtags: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("name_1").SetUnique(true)},
		},
		c.Tweets: {
			{Keys: bson.D{{Key: "content", Value: "text"}}, Options: options.Index().SetName("content_text").SetDefaultLanguage("none")},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("user_id_1_created_at_-1")},
		},
	}

	for name, models := range plan {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
