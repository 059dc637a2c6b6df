package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/hlog"

	"github.com/AnshRaj112/chirp-backend/pkg/clientip"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

const (
	// RateLimitWindow is the fixed window for auth endpoints.
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests per IP per window before the IP is blocked.
	RateLimitMaxRequests = 25
	RateLimitKeyPrefix   = "ratelimit:"
	BlockedIPKeyPrefix   = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked.
	BlockedIPDuration = 24 * time.Hour
)

// AuthPaths are the credential-handling routes covered by the Redis limiter.
var AuthPaths = map[string]bool{
	"/api/users/register":               true,
	"/api/users/login":                  true,
	"/api/users/refresh-token":          true,
	"/api/users/verify-email":           true,
	"/api/users/forgot-password":        true,
	"/api/users/verify-forgot-password": true,
	"/api/users/reset-password":         true,
}

// Counter is the subset of *redis.Client used by RedisRateLimit.
type Counter interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRateLimit is a fixed-window limiter shared by every API instance.
// Exceeding the window blocks the IP for BlockedIPDuration.
type RedisRateLimit struct {
	rdb   Counter
	ipOf  clientip.Func
	paths map[string]bool
	max   int64
}

// NewRedisRateLimit limits requests to paths. A nil paths map covers every route.
func NewRedisRateLimit(rdb Counter, ipOf clientip.Func, paths map[string]bool) *RedisRateLimit {
	return &RedisRateLimit{rdb: rdb, ipOf: ipOf, paths: paths, max: RateLimitMaxRequests}
}

func (l *RedisRateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.paths != nil && !l.paths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ip := l.ipOf(r)

		blocked, err := l.rdb.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
		if err == nil && blocked > 0 {
			tooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		key := RateLimitKeyPrefix + ip
		count, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			// Fail open.
			hlog.FromRequest(r).Warn().Err(err).Msg("rate limit counter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := l.rdb.Expire(ctx, key, RateLimitWindow).Err(); err != nil {
				// A counter without a TTL would never reset.
				hlog.FromRequest(r).Warn().Err(err).Str("ip", ip).Msg("rate limit window not set")
				l.rdb.Del(ctx, key)
			}
		}

		if count > l.max {
			if err := l.rdb.Set(ctx, BlockedIPKeyPrefix+ip, "1", BlockedIPDuration).Err(); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Str("ip", ip).Msg("failed to block ip")
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(RateLimitWindow.Seconds())))
			utils.WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"success":     false,
				"message":     "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.",
				"retry_after": int(RateLimitWindow.Seconds()),
			})
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(l.max-count, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(RateLimitWindow).Unix(), 10))
		next.ServeHTTP(w, r)
	})
}
