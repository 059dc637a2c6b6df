// Package cache keeps per-author audience data (verify status and twitter
// circle) in Redis so reading circle-only tweets does not hit Mongo for the
// author on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
)

const (
	// KeyPrefix is the Redis key prefix for cached authors
	KeyPrefix = "cache:author:"
	// DefaultTTL bounds how long a missed invalidation can go unnoticed
	DefaultTTL = 10 * time.Minute
)

// Redis is the subset of *redis.Client the cache uses.
type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type userFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type author struct {
	Verify        models.UserVerifyStatus `json:"verify"`
	TwitterCircle []primitive.ObjectID    `json:"twitter_circle"`
}

type CircleCache struct {
	rdb   Redis
	users userFinder
	ttl   time.Duration
}

func NewCircleCache(rdb Redis, users userFinder, ttl time.Duration) *CircleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CircleCache{rdb: rdb, users: users, ttl: ttl}
}

func key(id primitive.ObjectID) string {
	return KeyPrefix + id.Hex()
}

// Author returns the audience-relevant fields of a user. Only ID, Verify and
// TwitterCircle are populated. Redis failures fall through to Mongo.
func (c *CircleCache) Author(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	val, err := c.rdb.Get(ctx, key(id)).Result()
	switch {
	case err == nil:
		var a author
		if jsonErr := json.Unmarshal([]byte(val), &a); jsonErr == nil {
			return &models.User{ID: id, Verify: a.Verify, TwitterCircle: a.TwitterCircle}, nil
		}
		log.Warn().Str("user_id", id.Hex()).Msg("discarding undecodable cached author")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Msg("author cache read failed")
	}

	u, err := c.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load author: %w", err)
	}

	data, err := json.Marshal(author{Verify: u.Verify, TwitterCircle: u.TwitterCircle})
	if err == nil {
		if setErr := c.rdb.Set(ctx, key(id), data, c.ttl).Err(); setErr != nil {
			log.Warn().Err(setErr).Msg("author cache write failed")
		}
	}
	return &models.User{ID: u.ID, Verify: u.Verify, TwitterCircle: u.TwitterCircle}, nil
}

// Invalidate drops the cached entry after the author's circle or status changes.
func (c *CircleCache) Invalidate(ctx context.Context, id primitive.ObjectID) error {
	return c.rdb.Del(ctx, key(id)).Err()
}
