package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/middleware"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/services"
	"github.com/AnshRaj112/chirp-backend/internal/tokens"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func asUser(r *http.Request, id primitive.ObjectID) *http.Request {
	claims := &tokens.Claims{UserID: id.Hex(), TokenType: models.AccessToken, Verify: models.Verified}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(contextWithRoute(r, rctx))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegister(t *testing.T) {
	valid := map[string]string{
		"name":             "Ada",
		"email":            " Ada@Example.com ",
		"password":         "Secr3t!x",
		"confirm_password": "Secr3t!x",
		"date_of_birth":    "1990-12-10T00:00:00Z",
	}

	t.Run("success", func(t *testing.T) {
		s := &stubSessions{pair: models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
		h := NewUserHandler(s, &stubProfiles{})
		rec := httptest.NewRecorder()
		h.Register(rec, jsonRequest(t, http.MethodPost, "/api/users/register", valid))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "ada@example.com", s.register.Email)
		assert.Equal(t, 1990, s.register.DateOfBirth.Year())

		var body struct {
			Success bool             `json:"success"`
			Result  models.TokenPair `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, "r", body.Result.RefreshToken)
	})

	t.Run("validation", func(t *testing.T) {
		h := NewUserHandler(&stubSessions{}, &stubProfiles{})
		rec := httptest.NewRecorder()
		h.Register(rec, jsonRequest(t, http.MethodPost, "/api/users/register", map[string]string{
			"name":             "Ada",
			"email":            "not-an-email",
			"password":         "weak",
			"confirm_password": "other",
			"date_of_birth":    "yesterday",
		}))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := errorBody(t, rec)
		assert.Equal(t, apperr.KindValidation, body.Error)
		for _, f := range []string{"email", "password", "confirm_password", "date_of_birth"} {
			assert.Contains(t, body.Errors, f)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		h := NewUserHandler(&stubSessions{err: services.ErrEmailAlreadyExists}, &stubProfiles{})
		rec := httptest.NewRecorder()
		h.Register(rec, jsonRequest(t, http.MethodPost, "/api/users/register", valid))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		h := NewUserHandler(&stubSessions{}, &stubProfiles{})
		rec := httptest.NewRecorder()
		h.Register(rec, jsonRequest(t, http.MethodPost, "/api/users/register", "{"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperr.KindBadRequest, errorBody(t, rec).Error)
	})
}

func TestLogin(t *testing.T) {
	s := &stubSessions{err: services.ErrInvalidCredentials}
	h := NewUserHandler(s, &stubProfiles{})
	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/users/login", LoginRequest{Email: "A@b.co", Password: "x"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "a@b.co", s.email)

	rec = httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/users/login", LoginRequest{Email: "a@b.co"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogout_PassesCaller(t *testing.T) {
	s := &stubSessions{}
	h := NewUserHandler(s, &stubProfiles{})
	me := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	h.Logout(rec, asUser(jsonRequest(t, http.MethodPost, "/api/users/logout", RefreshTokenRequest{RefreshToken: "rt"}), me))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, me, s.userID)
	assert.Equal(t, "rt", s.token)

	rec = httptest.NewRecorder()
	h.Logout(rec, jsonRequest(t, http.MethodPost, "/api/users/logout", RefreshTokenRequest{RefreshToken: "rt"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken_ReusedToken(t *testing.T) {
	h := NewUserHandler(&stubSessions{err: services.ErrUsedRefreshTokenDoesNotExist}, &stubProfiles{})
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, jsonRequest(t, http.MethodPost, "/api/users/refresh-token", RefreshTokenRequest{RefreshToken: "old"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Used refresh token or not exist", errorBody(t, rec).Message)
}

func TestVerifyEmail_AlreadyVerified(t *testing.T) {
	h := NewUserHandler(&stubSessions{err: services.ErrEmailAlreadyVerified}, &stubProfiles{})
	rec := httptest.NewRecorder()
	h.VerifyEmail(rec, jsonRequest(t, http.MethodPost, "/api/users/verify-email", VerifyEmailRequest{EmailVerifyToken: "t"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.KindAlreadyVerified, errorBody(t, rec).Error)
}

func TestResetPassword_Validation(t *testing.T) {
	s := &stubSessions{}
	h := NewUserHandler(s, &stubProfiles{})
	rec := httptest.NewRecorder()
	h.ResetPassword(rec, jsonRequest(t, http.MethodPost, "/api/users/reset-password", ResetPasswordRequest{
		ForgotPasswordToken: "t", Password: "Secr3t!x", ConfirmPassword: "Secr3t!y",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, s.token)

	rec = httptest.NewRecorder()
	h.ResetPassword(rec, jsonRequest(t, http.MethodPost, "/api/users/reset-password", ResetPasswordRequest{
		ForgotPasswordToken: "t", Password: "Secr3t!x", ConfirmPassword: "Secr3t!x",
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t", s.token)
}

func TestGetMe_HidesPassword(t *testing.T) {
	h := NewUserHandler(&stubSessions{}, &stubProfiles{})
	rec := httptest.NewRecorder()
	h.GetMe(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), primitive.NewObjectID()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestUpdateMe(t *testing.T) {
	p := &stubProfiles{}
	h := NewUserHandler(&stubSessions{}, p)
	me := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, asUser(jsonRequest(t, http.MethodPatch, "/api/users/me", map[string]string{
		"username": "New_Name", "bio": " hi ",
	}), me))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p.patch.Username)
	assert.Equal(t, "new_name", *p.patch.Username)
	assert.Equal(t, "hi", *p.patch.Bio)
	assert.Nil(t, p.patch.Name)

	rec = httptest.NewRecorder()
	h.UpdateMe(rec, asUser(jsonRequest(t, http.MethodPatch, "/api/users/me", map[string]string{"username": "12345"}), me))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	p.err = services.ErrUsernameAlreadyExists
	rec = httptest.NewRecorder()
	h.UpdateMe(rec, asUser(jsonRequest(t, http.MethodPatch, "/api/users/me", map[string]string{"username": "taken_one"}), me))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSetCircle(t *testing.T) {
	p := &stubProfiles{}
	h := NewUserHandler(&stubSessions{}, p)
	friend := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	h.SetCircle(rec, asUser(jsonRequest(t, http.MethodPut, "/api/users/me/circle", CircleRequest{TwitterCircle: []string{friend.Hex()}}), primitive.NewObjectID()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []primitive.ObjectID{friend}, p.members)

	rec = httptest.NewRecorder()
	h.SetCircle(rec, asUser(jsonRequest(t, http.MethodPut, "/api/users/me/circle", CircleRequest{TwitterCircle: []string{"nope"}}), primitive.NewObjectID()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFollowUnfollow(t *testing.T) {
	p := &stubProfiles{created: true}
	h := NewUserHandler(&stubSessions{}, p)
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()

	rec := httptest.NewRecorder()
	h.Follow(rec, asUser(jsonRequest(t, http.MethodPost, "/api/users/follow", FollowRequest{FollowedUserID: other.Hex()}), me))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Follow success")

	rec = httptest.NewRecorder()
	h.Follow(rec, asUser(jsonRequest(t, http.MethodPost, "/api/users/follow", FollowRequest{FollowedUserID: "bad"}), me))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	p.created = false
	rec = httptest.NewRecorder()
	req := withURLParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/users/follow/"+other.Hex(), nil), me), "user_id", other.Hex())
	h.Unfollow(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Already unfollowed")
}
