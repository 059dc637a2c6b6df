package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/chirp-backend/internal/apperr"
	"github.com/AnshRaj112/chirp-backend/internal/models"
	"github.com/AnshRaj112/chirp-backend/internal/services"
	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

// Sessions is implemented by *services.SessionManager.
type Sessions interface {
	Register(ctx context.Context, in services.RegisterInput) (models.TokenPair, error)
	LoginWithPassword(ctx context.Context, email, password string) (models.TokenPair, error)
	Logout(ctx context.Context, userID primitive.ObjectID, refreshToken string) error
	Refresh(ctx context.Context, oldToken string) (models.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) (models.TokenPair, error)
	ResendVerifyEmail(ctx context.Context, userID primitive.ObjectID) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyForgotPasswordToken(ctx context.Context, token string) (*models.User, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error
}

// Profiles is implemented by *services.UserService.
type Profiles interface {
	GetMe(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetProfile(ctx context.Context, username string) (models.PublicProfile, error)
	UpdateMe(ctx context.Context, id primitive.ObjectID, patch models.ProfilePatch) (*models.User, error)
	SetCircle(ctx context.Context, id primitive.ObjectID, members []primitive.ObjectID) error
	Follow(ctx context.Context, userID, followedID primitive.ObjectID) (bool, error)
	Unfollow(ctx context.Context, userID, followedID primitive.ObjectID) (bool, error)
}

type UserHandler struct {
	sessions Sessions
	profiles Profiles
}

func NewUserHandler(sessions Sessions, profiles Profiles) *UserHandler {
	return &UserHandler{sessions: sessions, profiles: profiles}
}

// Request bodies

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DateOfBirth     string `json:"date_of_birth"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type VerifyEmailRequest struct {
	EmailVerifyToken string `json:"email_verify_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyForgotPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
}

type ResetPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
	Password            string `json:"password"`
	ConfirmPassword     string `json:"confirm_password"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type UpdateMeRequest struct {
	Name        *string `json:"name"`
	DateOfBirth *string `json:"date_of_birth"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Website     *string `json:"website"`
	Username    *string `json:"username"`
	Avatar      *string `json:"avatar"`
	CoverPhoto  *string `json:"cover_photo"`
}

type CircleRequest struct {
	TwitterCircle []string `json:"twitter_circle"`
}

type FollowRequest struct {
	FollowedUserID string `json:"followed_user_id"`
}

// passwordFields checks password strength and the confirmation field.
func passwordFields(fields map[string]string, password, confirm string) {
	if err := utils.ValidateStrongPassword("password", password); err != nil {
		for k, v := range utils.Fields(err) {
			fields[k] = v
		}
	}
	if confirm != password {
		fields["confirm_password"] = "Confirm password must be the same as password"
	}
}

func validationOrNil(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(fields)
}

func (req *RegisterRequest) validate() (services.RegisterInput, error) {
	fields := utils.Fields(utils.ValidateName(req.Name), utils.ValidateEmail(req.Email))
	passwordFields(fields, req.Password, req.ConfirmPassword)
	dob, ok := parseDate(req.DateOfBirth)
	if !ok {
		fields["date_of_birth"] = "Date of birth must be ISO 8601"
	}
	if err := validationOrNil(fields); err != nil {
		return services.RegisterInput{}, err
	}
	return services.RegisterInput{
		Name:        strings.TrimSpace(req.Name),
		Email:       utils.NormalizeEmail(req.Email),
		Password:    req.Password,
		DateOfBirth: dob,
	}, nil
}

func (req *UpdateMeRequest) validate() (models.ProfilePatch, error) {
	fields := map[string]string{}
	var patch models.ProfilePatch

	if req.Name != nil {
		if err := utils.ValidateName(*req.Name); err != nil {
			fields["name"] = err.Error()
		}
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.DateOfBirth != nil {
		dob, ok := parseDate(*req.DateOfBirth)
		if !ok {
			fields["date_of_birth"] = "Date of birth must be ISO 8601"
		}
		patch.DateOfBirth = &dob
	}
	if req.Username != nil {
		if err := utils.ValidateUsername(*req.Username); err != nil {
			fields["username"] = err.Error()
		}
		username := utils.NormalizeUsername(*req.Username)
		patch.Username = &username
	}

	limits := []struct {
		field string
		value *string
		max   int
		dst   **string
	}{
		{"bio", req.Bio, utils.MaxBioLength, &patch.Bio},
		{"location", req.Location, utils.MaxBioLength, &patch.Location},
		{"website", req.Website, utils.MaxBioLength, &patch.Website},
		{"avatar", req.Avatar, utils.MaxImageURLLength, &patch.Avatar},
		{"cover_photo", req.CoverPhoto, utils.MaxImageURLLength, &patch.CoverPhoto},
	}
	for _, l := range limits {
		if l.value == nil {
			continue
		}
		v := strings.TrimSpace(*l.value)
		if len(v) > l.max {
			fields[l.field] = "Too long"
		}
		*l.dst = &v
	}

	if err := validationOrNil(fields); err != nil {
		return models.ProfilePatch{}, err
	}
	return patch, nil
}

// Register handles POST /api/users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	in, err := req.validate()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	pair, err := h.sessions.Register(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Register success", pair)
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	fields := utils.Fields(utils.ValidateEmail(req.Email))
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if err := validationOrNil(fields); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	pair, err := h.sessions.LoginWithPassword(r.Context(), utils.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Login success", pair)
}

// Logout handles POST /api/users/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.sessions.Logout(r.Context(), userID, req.RefreshToken); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logout success", nil)
}

// RefreshToken handles POST /api/users/refresh-token.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Refresh token success", pair)
}

// VerifyEmail handles POST /api/users/verify-email.
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	pair, err := h.sessions.VerifyEmail(r.Context(), req.EmailVerifyToken)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Email verify success", pair)
}

// ResendVerifyEmail handles POST /api/users/resend-verify-email.
func (h *UserHandler) ResendVerifyEmail(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.sessions.ResendVerifyEmail(r.Context(), userID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Resend verify email success", nil)
}

// ForgotPassword handles POST /api/users/forgot-password.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		utils.WriteError(w, r, apperr.Validation(utils.Fields(err)))
		return
	}
	if err := h.sessions.ForgotPassword(r.Context(), utils.NormalizeEmail(req.Email)); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Check email to reset password", nil)
}

// VerifyForgotPassword handles POST /api/users/verify-forgot-password.
func (h *UserHandler) VerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := h.sessions.VerifyForgotPasswordToken(r.Context(), req.ForgotPasswordToken); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Verify forgot password success", nil)
}

// ResetPassword handles POST /api/users/reset-password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	fields := map[string]string{}
	passwordFields(fields, req.Password, req.ConfirmPassword)
	if err := validationOrNil(fields); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.sessions.ResetPassword(r.Context(), req.ForgotPasswordToken, req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Reset password success", nil)
}

// ChangePassword handles PUT /api/users/change-password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	fields := map[string]string{}
	if req.OldPassword == "" {
		fields["old_password"] = "Old password is required"
	}
	passwordFields(fields, req.Password, req.ConfirmPassword)
	if err := validationOrNil(fields); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := h.sessions.ChangePassword(r.Context(), userID, req.OldPassword, req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Change password success", nil)
}

// GetMe handles GET /api/users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	u, err := h.profiles.GetMe(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Get my profile success", u)
}

// UpdateMe handles PATCH /api/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req UpdateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	patch, err := req.validate()
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	u, err := h.profiles.UpdateMe(r.Context(), userID, patch)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Update my profile success", u)
}

// SetCircle handles PUT /api/users/me/circle.
func (h *UserHandler) SetCircle(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req CircleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	members := make([]primitive.ObjectID, 0, len(req.TwitterCircle))
	for _, hex := range req.TwitterCircle {
		id, err := parseObjectID("twitter_circle", hex)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		members = append(members, id)
	}
	if err := h.profiles.SetCircle(r.Context(), userID, members); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Update twitter circle success", nil)
}

// GetProfile handles GET /api/users/{username}.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := utils.NormalizeUsername(chi.URLParam(r, "username"))
	p, err := h.profiles.GetProfile(r.Context(), username)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Get profile success", p)
}

// Follow handles POST /api/users/follow.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req FollowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	followedID, err := parseObjectID("followed_user_id", req.FollowedUserID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	created, err := h.profiles.Follow(r.Context(), userID, followedID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if !created {
		utils.WriteSuccess(w, http.StatusOK, "Followed", nil)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Follow success", nil)
}

// Unfollow handles DELETE /api/users/follow/{user_id}.
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	followedID, err := objectIDParam(r, "user_id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	removed, err := h.profiles.Unfollow(r.Context(), userID, followedID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if !removed {
		utils.WriteSuccess(w, http.StatusOK, "Already unfollowed", nil)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Unfollow success", nil)
}
