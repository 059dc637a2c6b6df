package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/tokens"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

var ErrUserNotVerified = apperr.Forbidden("User not verified")

type ctxKey int

const claimsKey ctxKey = iota

// Decoder is the part of *tokens.Codec the gate needs.
type Decoder interface {
	Decode(kind models.TokenType, token string) (*tokens.Claims, error)
}

// Gate authenticates requests by their access token.
type Gate struct {
	codec   Decoder
	metrics *Metrics
}

// NewGate builds a Gate. metrics may be nil.
func NewGate(codec Decoder, metrics *Metrics) *Gate {
	return &Gate{codec: codec, metrics: metrics}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

// ClaimsFromContext returns the access-token claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*tokens.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*tokens.Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, c *tokens.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err *apperr.Error) {
	g.metrics.authRejected(err.Kind)
	utils.WriteError(w, r, err)
}

func (g *Gate) decode(r *http.Request) (*tokens.Claims, *apperr.Error) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, tokens.RequiredError(models.AccessToken)
	}
	claims, err := g.codec.Decode(models.AccessToken, raw)
	if err != nil {
		return nil, tokens.AuthError(models.AccessToken, err)
	}
	if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
		return nil, tokens.AuthError(models.AccessToken, tokens.ErrTokenInvalid)
	}
	return claims, nil
}

// Authenticate requires a valid access token and stores its claims.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.decode(r)
		if err != nil {
			g.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalAuth authenticates only when an Authorization header is sent.
// A present but bad token is still rejected.
func (g *Gate) OptionalAuth(next http.Handler) http.Handler {
	auth := g.Authenticate(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth.ServeHTTP(w, r)
	})
}

// RequireVerified runs after Authenticate. The verify status is the snapshot
// taken when the token was issued.
func (g *Gate) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			g.reject(w, r, tokens.RequiredError(models.AccessToken))
			return
		}
		if claims.Verify != models.Verified {
			g.reject(w, r, ErrUserNotVerified)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalVerified runs after OptionalAuth. Guests pass through; a signed-in
// caller must be verified.
func (g *Gate) OptionalVerified(next http.Handler) http.Handler {
	verified := g.RequireVerified(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			next.ServeHTTP(w, r)
			return
		}
		verified.ServeHTTP(w, r)
	})
}
