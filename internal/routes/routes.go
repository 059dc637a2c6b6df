package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/AnshRaj112/chirp-backend/internal/handlers"
	"github.com/AnshRaj112/chirp-backend/internal/middleware"
)

// Deps are the handlers and gates the routes are wired to.
type Deps struct {
	Users    *handlers.UserHandler
	Tweets   *handlers.TweetHandler
	Gate     *middleware.Gate
	Audience func(http.Handler) http.Handler
	Health   http.HandlerFunc
	Metrics  http.Handler
}

// Options controls the router-wide middleware.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	// Security is applied only when non-empty (production).
	Security    []func(http.Handler) http.Handler
	RateLimit   *middleware.RedisRateLimit
	HTTPMetrics *middleware.Metrics
}

// NewRouter builds the chi router with the shared middleware stack.
func NewRouter(opts Options, d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger)...)
	r.Use(opts.HTTPMetrics.Instrument)
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(opts.Security...)
	if opts.RateLimit != nil {
		r.Use(opts.RateLimit.Handler)
	}
	SetupRoutes(r, d)
	return r
}

func SetupRoutes(r chi.Router, d Deps) {
	if d.Health != nil {
		r.Get("/health", d.Health)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	auth := d.Gate.Authenticate
	verified := d.Gate.RequireVerified

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", d.Users.Register)
		r.Post("/login", d.Users.Login)
		r.Post("/refresh-token", d.Users.RefreshToken)
		r.Post("/verify-email", d.Users.VerifyEmail)
		r.Post("/forgot-password", d.Users.ForgotPassword)
		r.Post("/verify-forgot-password", d.Users.VerifyForgotPassword)
		r.Post("/reset-password", d.Users.ResetPassword)
		r.Get("/{username}", d.Users.GetProfile)

		r.With(auth).Post("/logout", d.Users.Logout)
		r.With(auth).Post("/resend-verify-email", d.Users.ResendVerifyEmail)
		r.With(auth).Get("/me", d.Users.GetMe)

		r.Group(func(r chi.Router) {
			r.Use(auth, verified)
			r.Patch("/me", d.Users.UpdateMe)
			r.Put("/me/circle", d.Users.SetCircle)
			r.Put("/change-password", d.Users.ChangePassword)
			r.Post("/follow", d.Users.Follow)
			r.Delete("/follow/{user_id}", d.Users.Unfollow)
		})
	})

	r.Route("/api/tweets", func(r chi.Router) {
		r.With(auth, verified).Post("/", d.Tweets.Create)
		r.With(d.Gate.OptionalAuth, d.Gate.OptionalVerified, d.Audience).Get("/{tweet_id}", d.Tweets.Get)
	})

	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(auth, verified)
		r.Post("/", d.Tweets.Bookmark)
		r.Delete("/tweets/{tweet_id}", d.Tweets.Unbookmark)
	})
}
