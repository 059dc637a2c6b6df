package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/config"
	"github.com/AnshRaj112/chirp-backend/internal/mail"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
	"github.com/AnshRaj112/chirp-backend/internal/tokens"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

var (
	ErrEmailAlreadyExists           = apperr.Conflict("Email already exists")
	ErrInvalidCredentials           = apperr.Unauthorized("Email or password is incorrect")
	ErrUserBanned                   = apperr.Forbidden("User is banned")
	ErrUserNotFound                 = apperr.NotFound("User not found")
	ErrUsedRefreshTokenDoesNotExist = apperr.Unauthorized("Used refresh token or not exist")
	ErrRefreshTokenNotOwned         = apperr.Forbidden("Refresh token does not belong to this user")
	ErrEmailAlreadyVerified         = apperr.New(apperr.KindAlreadyVerified, "Email already verified before")
	ErrEmailVerifyTokenInvalid      = apperr.Unauthorized("Email verify token is invalid")
	ErrForgotPasswordTokenInvalid   = apperr.Unauthorized("Forgot password token is invalid")
	ErrOldPasswordIncorrect         = &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: "Old password is incorrect",
		Fields:  map[string]string{"old_password": "Old password is incorrect"},
	}
)

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth time.Time
}

// SessionManager issues, rotates and revokes sessions and runs the account
// flows (email verification, password reset) that end in a new session.
type SessionManager struct {
	users  repository.UserStore
	tokens repository.RefreshTokenStore
	codec  *tokens.Codec
	mailer mail.Mailer
	ttl    config.TokenTTLs

	hashPassword   func(string) (string, error)
	verifyPassword func(password, hash string) (bool, error)
}

func NewSessionManager(users repository.UserStore, refreshTokens repository.RefreshTokenStore, codec *tokens.Codec, mailer mail.Mailer, ttl config.TokenTTLs) *SessionManager {
	return &SessionManager{
		users:          users,
		tokens:         refreshTokens,
		codec:          codec,
		mailer:         mailer,
		ttl:            ttl,
		hashPassword:   utils.HashPassword,
		verifyPassword: utils.VerifyPassword,
	}
}

// Register creates an Unverified user and starts a session for it. The
// email-exists check deliberately reports Conflict to the caller.
func (m *SessionManager) Register(ctx context.Context, in RegisterInput) (models.TokenPair, error) {
	exists, err := m.users.EmailExists(ctx, in.Email)
	if err != nil {
		return models.TokenPair{}, apperr.Internal(err)
	}
	if exists {
		return models.TokenPair{}, ErrEmailAlreadyExists
	}

	hash, err := m.hashPassword(in.Password)
	if err != nil {
		return models.TokenPair{}, apperr.Internal(err)
	}

	id := primitive.NewObjectID()
	verifyToken, err := m.codec.Issue(models.EmailVerifyToken, id.Hex(), models.Unverified, m.codec.Now().Add(m.ttl.EmailVerify))
	if err != nil {
		return models.TokenPair{}, apperr.Internal(err)
	}

	user := &models.User{
		ID:               id,
		Name:             in.Name,
		Email:            in.Email,
		Username:         "user" + id.Hex(),
		Password:         hash,
		DateOfBirth:      in.DateOfBirth,
		Verify:           models.Unverified,
		EmailVerifyToken: verifyToken,
	}
	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a race with a concurrent registration of the same email
			return models.TokenPair{}, ErrEmailAlreadyExists
		}
		return models.TokenPair{}, apperr.Internal(err)
	}

	pair, err := m.Login(ctx, id, models.Unverified)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := m.mailer.SendVerifyEmail(ctx, user.Email, verifyToken); err != nil {
		log.Error().Err(err).Str("user_id", id.Hex()).Msg("failed to send verification email")
	}
	log.Info().Str("user_id", id.Hex()).Msg("user registered")
	return pair, nil
}

// Login issues a new token pair and persists its refresh token. Each call
// creates an independent session.
func (m *SessionManager) Login(ctx context.Context, userID primitive.ObjectID, verify models.UserVerifyStatus) (models.TokenPair, error) {
	now := m.codec.Now()
	return m.issuePair(ctx, userID, verify, now, now.Add(m.ttl.Refresh), func(rec *models.RefreshTokenRecord) error {
		return m.tokens.Insert(ctx, rec)
	})
}

// LoginWithPassword checks credentials and starts a session. Unknown email
// and wrong password are indistinguishable to the caller.
func (m *SessionManager) LoginWithPassword(ctx context.Context, email, password string) (models.TokenPair, error) {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.TokenPair{}, ErrInvalidCredentials
		}
		return models.TokenPair{}, apperr.Internal(err)
	}

	ok, err := m.verifyPassword(password, user.Password)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("stored password hash unreadable")
		return models.TokenPair{}, ErrInvalidCredentials
	}
	if !ok {
		return models.TokenPair{}, ErrInvalidCredentials
	}
	if user.Verify == models.Banned {
		return models.TokenPair{}, ErrUserBanned
	}
	return m.Login(ctx, user.ID, user.Verify)
}

// Logout revokes refreshToken. Revoking an absent or already expired token
// succeeds.
func (m *SessionManager) Logout(ctx context.Context, userID primitive.ObjectID, refreshToken string) error {
	if refreshToken == "" {
		return tokens.RequiredError(models.RefreshToken)
	}
	claims, err := m.codec.Decode(models.RefreshToken, refreshToken)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil
		}
		return tokens.AuthError(models.RefreshToken, err)
	}
	if claims.UserID != userID.Hex() {
		return ErrRefreshTokenNotOwned
	}
	if err := m.tokens.DeleteByToken(ctx, refreshToken); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Refresh rotates oldToken into a new pair. The new refresh token keeps the
// old one's expiry, and concurrent refreshes of the same token yield at most
// one winner.
func (m *SessionManager) Refresh(ctx context.Context, oldToken string) (models.TokenPair, error) {
	if oldToken == "" {
		return models.TokenPair{}, tokens.RequiredError(models.RefreshToken)
	}
	claims, err := m.codec.Decode(models.RefreshToken, oldToken)
	if err != nil {
		return models.TokenPair{}, tokens.AuthError(models.RefreshToken, err)
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.TokenPair{}, tokens.AuthError(models.RefreshToken, tokens.ErrTokenInvalid)
	}

	now := m.codec.Now()
	exp := claims.ExpiresAt.Time
	return m.issuePair(ctx, userID, claims.Verify, now, exp, func(rec *models.RefreshTokenRecord) error {
		err := m.tokens.Rotate(ctx, oldToken, rec)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUsedRefreshTokenDoesNotExist
		}
		return err
	})
}

// VerifyEmail consumes an email-verify token and returns a session whose
// access token already carries Verified.
func (m *SessionManager) VerifyEmail(ctx context.Context, token string) (models.TokenPair, error) {
	if token == "" {
		return models.TokenPair{}, tokens.RequiredError(models.EmailVerifyToken)
	}
	claims, err := m.codec.Decode(models.EmailVerifyToken, token)
	if err != nil {
		return models.TokenPair{}, tokens.AuthError(models.EmailVerifyToken, err)
	}
	user, err := m.userFromClaims(ctx, claims, models.EmailVerifyToken)
	if err != nil {
		return models.TokenPair{}, err
	}
	if user.EmailVerifyToken == "" {
		return models.TokenPair{}, ErrEmailAlreadyVerified
	}

	if _, err := m.users.MarkVerified(ctx, user.ID, token); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return models.TokenPair{}, apperr.Internal(err)
		}
		// The stored token changed between the read and the update
		current, ferr := m.users.FindByID(ctx, user.ID)
		if ferr == nil && current.EmailVerifyToken == "" {
			return models.TokenPair{}, ErrEmailAlreadyVerified
		}
		return models.TokenPair{}, ErrEmailVerifyTokenInvalid
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("email verified")
	return m.Login(ctx, user.ID, models.Verified)
}

// ResendVerifyEmail replaces the pending email-verify token and mails it.
func (m *SessionManager) ResendVerifyEmail(ctx context.Context, userID primitive.ObjectID) error {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return err
	}
	switch user.Verify {
	case models.Verified:
		return ErrEmailAlreadyVerified
	case models.Banned:
		return ErrUserBanned
	}

	token, err := m.codec.Issue(models.EmailVerifyToken, user.ID.Hex(), user.Verify, m.codec.Now().Add(m.ttl.EmailVerify))
	if err != nil {
		return apperr.Internal(err)
	}
	if err := m.users.SetEmailVerifyToken(ctx, user.ID, token); err != nil {
		return apperr.Internal(err)
	}
	if err := m.mailer.SendVerifyEmail(ctx, user.Email, token); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to resend verification email")
	}
	return nil
}

// ForgotPassword stores a fresh forgot-password token and mails it.
// Concurrent requests are not serialized: the last stored token is the only
// one that ResetPassword will accept.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) error {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return apperr.Internal(err)
	}

	token, err := m.codec.Issue(models.ForgotPasswordToken, user.ID.Hex(), user.Verify, m.codec.Now().Add(m.ttl.ForgotPassword))
	if err != nil {
		return apperr.Internal(err)
	}
	if err := m.users.SetForgotPasswordToken(ctx, user.ID, token); err != nil {
		return apperr.Internal(err)
	}
	if err := m.mailer.SendForgotPasswordEmail(ctx, user.Email, token); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to send password reset email")
	}
	return nil
}

// VerifyForgotPasswordToken reports whether token is the user's pending
// reset token, without consuming it.
func (m *SessionManager) VerifyForgotPasswordToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, tokens.RequiredError(models.ForgotPasswordToken)
	}
	claims, err := m.codec.Decode(models.ForgotPasswordToken, token)
	if err != nil {
		return nil, tokens.AuthError(models.ForgotPasswordToken, err)
	}
	user, err := m.userFromClaims(ctx, claims, models.ForgotPasswordToken)
	if err != nil {
		return nil, err
	}
	if user.ForgotPasswordToken == "" || user.ForgotPasswordToken != token {
		return nil, ErrForgotPasswordTokenInvalid
	}
	return user, nil
}

// ResetPassword consumes the forgot-password token, sets the new password
// and revokes every refresh token of the user.
func (m *SessionManager) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := m.VerifyForgotPasswordToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := m.hashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := m.users.ResetPassword(ctx, user.ID, token, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForgotPasswordTokenInvalid
		}
		return apperr.Internal(err)
	}

	n, err := m.tokens.DeleteByUser(ctx, user.ID)
	if err != nil {
		// Password is already changed; stale sessions still expire on their own
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to revoke sessions after password reset")
		return nil
	}
	log.Info().Str("user_id", user.ID.Hex()).Int64("revoked", n).Msg("password reset")
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (m *SessionManager) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := m.verifyPassword(oldPassword, user.Password)
	if err != nil || !ok {
		return ErrOldPasswordIncorrect
	}
	hash, err := m.hashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := m.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (m *SessionManager) issuePair(
	ctx context.Context,
	userID primitive.ObjectID,
	verify models.UserVerifyStatus,
	now, refreshExp time.Time,
	persist func(*models.RefreshTokenRecord) error,
) (models.TokenPair, error) {
	access, err := m.codec.Issue(models.AccessToken, userID.Hex(), verify, now.Add(m.ttl.Access))
	if err != nil {
		return models.TokenPair{}, apperr.Internal(err)
	}
	refresh, err := m.codec.Issue(models.RefreshToken, userID.Hex(), verify, refreshExp)
	if err != nil {
		return models.TokenPair{}, apperr.Internal(err)
	}

	rec := &models.RefreshTokenRecord{
		Token:     refresh,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := persist(rec); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return models.TokenPair{}, ae
		}
		return models.TokenPair{}, apperr.Internal(err)
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *SessionManager) findUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := m.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

func (m *SessionManager) userFromClaims(ctx context.Context, claims *tokens.Claims, kind models.TokenType) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, tokens.AuthError(kind, tokens.ErrTokenInvalid)
	}
	return m.findUser(ctx, id)
}
