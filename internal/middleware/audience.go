package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
	"github.com/AnshRaj112/chirp-backend/internal/tokens"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

var (
	ErrAuthorNotFound   = apperr.NotFound("User not found")
	ErrAuthorBanned     = apperr.Forbidden("User was banned")
	ErrPermissionDenied = apperr.Forbidden("Permission denied")
	ErrTweetNotFound    = apperr.NotFound("Tweet not found")
	ErrInvalidTweetID   = &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "Invalid tweet id",
		Fields:  map[string]string{"tweet_id": "Invalid tweet id"},
	}
)

const tweetKey ctxKey = iota + 1

// CheckAudience decides whether viewer may read tweet. author may be nil when
// the author no longer exists; viewer is nil for anonymous requests.
func CheckAudience(tweet *models.Tweet, author *models.User, viewer *primitive.ObjectID) error {
	if tweet.Audience != models.AudienceTwitterCircle {
		return nil
	}
	if viewer == nil {
		return tokens.RequiredError(models.AccessToken)
	}
	if author == nil {
		return ErrAuthorNotFound
	}
	if author.Verify == models.Banned {
		return ErrAuthorBanned
	}
	if !author.InCircle(*viewer) {
		return ErrPermissionDenied
	}
	return nil
}

type TweetFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Tweet, error)
}

// AuthorLoader returns at least ID, Verify and TwitterCircle of a user.
type AuthorLoader interface {
	Author(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// TweetFromContext returns the tweet loaded by Audience.
func TweetFromContext(ctx context.Context) (*models.Tweet, bool) {
	t, ok := ctx.Value(tweetKey).(*models.Tweet)
	return t, ok
}

// Audience loads the tweet named by the {tweet_id} URL parameter and applies
// CheckAudience for the (optional) authenticated viewer.
func Audience(tweets TweetFinder, authors AuthorLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "tweet_id"))
			if err != nil {
				utils.WriteError(w, r, ErrInvalidTweetID)
				return
			}
			tweet, err := tweets.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					err = ErrTweetNotFound
				}
				utils.WriteError(w, r, err)
				return
			}

			var viewer *primitive.ObjectID
			if uid, ok := UserIDFromContext(ctx); ok {
				viewer = &uid
			}

			var author *models.User
			if tweet.Audience == models.AudienceTwitterCircle && viewer != nil {
				author, err = authors.Author(ctx, tweet.UserID)
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					utils.WriteError(w, r, err)
					return
				}
			}

			if err := CheckAudience(tweet, author, viewer); err != nil {
				utils.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, tweetKey, tweet)))
		})
	}
}
