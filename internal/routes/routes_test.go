package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/handlers"
	"github.com/AnshRaj112/chirp-backend/internal/middleware"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
	"github.com/AnshRaj112/chirp-backend/internal/services"
	"github.com/AnshRaj112/chirp-backend/internal/tokens"
)

type nopSessions struct{ handlers.Sessions }

type nopProfiles struct{ handlers.Profiles }

func (nopProfiles) UpdateMe(_ context.Context, id primitive.ObjectID, _ models.ProfilePatch) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (nopProfiles) GetMe(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return &models.User{ID: id}, nil
}

type tweetsStub struct{}

func (tweetsStub) Create(_ context.Context, userID primitive.ObjectID, in services.TweetInput) (*models.Tweet, error) {
	return &models.Tweet{ID: primitive.NewObjectID(), UserID: userID, Content: in.Content}, nil
}

func (tweetsStub) RecordView(_ context.Context, id primitive.ObjectID, _ *primitive.ObjectID) (*models.Tweet, error) {
	return &models.Tweet{ID: id}, nil
}

type tweetStore map[primitive.ObjectID]*models.Tweet

func (s tweetStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Tweet, error) {
	if t, ok := s[id]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

type authorStore map[primitive.ObjectID]*models.User

func (s authorStore) Author(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type fixture struct {
	router  http.Handler
	codec   *tokens.Codec
	public  *models.Tweet
	circle  *models.Tweet
	owner   primitive.ObjectID
	friend  primitive.ObjectID
	healthy bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := tokens.NewCodec(tokens.Secrets{
		Access: "a-secret", Refresh: "r-secret", EmailVerify: "e-secret", ForgotPassword: "f-secret",
	})
	require.NoError(t, err)

	f := &fixture{codec: codec, owner: primitive.NewObjectID(), friend: primitive.NewObjectID(), healthy: true}
	f.public = &models.Tweet{ID: primitive.NewObjectID(), UserID: f.owner, Audience: models.AudienceEveryone}
	f.circle = &models.Tweet{ID: primitive.NewObjectID(), UserID: f.owner, Audience: models.AudienceTwitterCircle}
	tweets := tweetStore{f.public.ID: f.public, f.circle.ID: f.circle}
	authors := authorStore{f.owner: {ID: f.owner, Verify: models.Verified, TwitterCircle: []primitive.ObjectID{f.friend}}}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	f.router = NewRouter(Options{
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"http://localhost:3000"},
		HTTPMetrics:    metrics,
	}, Deps{
		Users:    handlers.NewUserHandler(nopSessions{}, nopProfiles{}),
		Tweets:   handlers.NewTweetHandler(tweetsStub{}, nil),
		Gate:     middleware.NewGate(codec, metrics),
		Audience: middleware.Audience(tweets, authors),
		Health: handlers.Health(map[string]handlers.Pinger{
			"mongo": func(context.Context) error {
				if f.healthy {
					return nil
				}
				return assert.AnError
			},
		}),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, as *primitive.ObjectID, verify models.UserVerifyStatus) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if as != nil {
		tok, err := f.codec.Issue(models.AccessToken, as.Hex(), verify, time.Now().Add(time.Minute))
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func TestVerifiedGate(t *testing.T) {
	f := newFixture(t)
	me := primitive.NewObjectID()

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPatch, "/api/users/me", `{}`, nil, 0).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPatch, "/api/users/me", `{"bio":"x"}`, &me, models.Unverified).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, "/api/users/me", `{"bio":"x"}`, &me, models.Verified).Code)

	// GET /me needs a session but not verification.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/users/me", "", &me, models.Unverified).Code)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/tweets", `{"content":"hi"}`, &me, models.Unverified).Code)
	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/tweets", `{"content":"hi"}`, &me, models.Verified).Code)
}

func TestTweetAudience(t *testing.T) {
	f := newFixture(t)
	stranger := primitive.NewObjectID()

	path := func(tw *models.Tweet) string { return "/api/tweets/" + tw.ID.Hex() }

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path(f.public), "", nil, 0).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, path(f.circle), "", nil, 0).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path(f.circle), "", &stranger, models.Verified).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path(f.circle), "", &f.friend, models.Verified).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path(f.circle), "", &f.friend, models.Unverified).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path(f.circle), "", &f.friend, models.Banned).Code)
	// A signed-in reader of any tweet must be verified.
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path(f.public), "", &stranger, models.Unverified).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path(f.circle), "", &f.owner, models.Verified).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil, 0).Code)

	f.healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/health", "", nil, 0).Code)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
