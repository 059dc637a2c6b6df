// Package tokens signs and verifies the four JWT families used by the API:
// access, refresh, email-verify and forgot-password. Each family has its own
// HMAC secret, so holding one secret never lets a caller forge another kind.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AnshRaj112/chirp-backend/internal/models"
)

var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrSigning        = errors.New("token signing failed")
)

// Claims is the decoded payload of every token kind.
type Claims struct {
	UserID    string                  `json:"user_id"`
	TokenType models.TokenType        `json:"token_type"`
	Verify    models.UserVerifyStatus `json:"verify"`
	jwt.RegisteredClaims
}

// Secrets holds one signing key per token kind.
type Secrets struct {
	Access         string
	Refresh        string
	EmailVerify    string
	ForgotPassword string
}

type Codec struct {
	keys map[models.TokenType][]byte
	now  func() time.Time
}

// NewCodec fails when a secret is empty or two kinds share a secret.
func NewCodec(s Secrets) (*Codec, error) {
	keys := map[models.TokenType][]byte{
		models.AccessToken:         []byte(s.Access),
		models.RefreshToken:        []byte(s.Refresh),
		models.EmailVerifyToken:    []byte(s.EmailVerify),
		models.ForgotPasswordToken: []byte(s.ForgotPassword),
	}
	seen := make(map[string]models.TokenType, len(keys))
	for kind, key := range keys {
		if len(key) == 0 {
			return nil, fmt.Errorf("tokens: secret for %s is empty", kind)
		}
		if other, ok := seen[string(key)]; ok {
			return nil, fmt.Errorf("tokens: %s and %s share a secret", kind, other)
		}
		seen[string(key)] = kind
	}
	return &Codec{keys: keys, now: time.Now}, nil
}

// WithClock returns a copy of c that reads time from now. Used by tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	return &Codec{keys: c.keys, now: now}
}

// Now is the codec's notion of the current time, truncated to JWT precision.
func (c *Codec) Now() time.Time {
	return c.now().Truncate(time.Second)
}

// Issue signs a token of the given kind that expires at expiresAt.
func (c *Codec) Issue(kind models.TokenType, userID string, verify models.UserVerifyStatus, expiresAt time.Time) (string, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown token kind %d", ErrSigning, kind)
	}
	now := c.Now()
	claims := Claims{
		UserID:    userID,
		TokenType: kind,
		Verify:    verify,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Decode verifies tokenString as a token of the given kind.
func (c *Codec) Decode(kind models.TokenType, tokenString string) (*Claims, error) {
	key, ok := c.keys[kind]
	if !ok {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !token.Valid || claims.TokenType != kind || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
