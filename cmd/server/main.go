package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/AnshRaj112/chirp-backend/internal/broker"
	"github.com/AnshRaj112/chirp-backend/internal/cache"
	"github.com/AnshRaj112/chirp-backend/internal/config"
	"github.com/AnshRaj112/chirp-backend/internal/database"
	"github.com/AnshRaj112/chirp-backend/internal/handlers"
	"github.com/AnshRaj112/chirp-backend/internal/logger"
	"github.com/AnshRaj112/chirp-backend/internal/mail"
	"github.com/AnshRaj112/chirp-backend/internal/middleware"
	"github.com/AnshRaj112/chirp-backend/internal/repository"
	"github.com/AnshRaj112/chirp-backend/internal/routes"
	"github.com/AnshRaj112/chirp-backend/internal/services"
	"github.com/AnshRaj112/chirp-backend/internal/tokens"
	"github.com/AnshRaj112/chirp-backend/pkg/clientip"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Environment)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := tokens.NewCodec(tokens.Secrets{
		Access:         cfg.JWT.Access,
		Refresh:        cfg.JWT.Refresh,
		EmailVerify:    cfg.JWT.EmailVerify,
		ForgotPassword: cfg.JWT.ForgotPassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token codec")
	}

	mongoDB, err := database.Connect(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoDB.Disconnect()

	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.EnsureIndexes(idxCtx, mongoDB.DB, cfg.Collections); err != nil {
		log.Warn().Err(err).Msg("failed to ensure MongoDB indexes")
	}
	cancel()

	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()

	sender, closeSender, err := newSender(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.MailTransport).Msg("failed to set up mail transport")
	}
	defer closeSender()
	mailer := mail.NewTemplateMailer(sender, cfg.ClientURL)

	users := repository.NewMongoUsers(mongoDB.DB, cfg.Collections.Users)
	refreshTokens := repository.NewMongoRefreshTokens(mongoDB.DB, cfg.Collections.RefreshTokens)
	tweets := repository.NewMongoTweets(mongoDB.DB, cfg.Collections.Tweets)
	hashtags := repository.NewMongoHashtags(mongoDB.DB, cfg.Collections.Hashtags)
	followers := repository.NewMongoFollowers(mongoDB.DB, cfg.Collections.Followers)
	bookmarks := repository.NewMongoBookmarks(mongoDB.DB, cfg.Collections.Bookmarks)
	circle := cache.NewCircleCache(rdb, users, cache.DefaultTTL)

	sessions := services.NewSessionManager(users, refreshTokens, codec, mailer, cfg.TTL)
	profiles := services.NewUserService(users, followers, circle)
	tweetService := services.NewTweetService(tweets, hashtags)
	bookmarkService := services.NewBookmarkService(bookmarks, tweets)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)
	ipOf := clientip.Resolver(cfg.TrustProxy)

	opts := routes.Options{
		Logger:         log.Logger,
		AllowedOrigins: cfg.AllowedOrigins,
		HTTPMetrics:    metrics,
		RateLimit:      middleware.NewRedisRateLimit(rdb, ipOf, middleware.AuthPaths),
	}
	if cfg.IsProduction() {
		limiters := middleware.DefaultLimiters(ipOf)
		go limiters.Global.RunSweeper(5*time.Minute, ctx.Done())
		go limiters.Login.RunSweeper(5*time.Minute, ctx.Done())
		opts.Security = middleware.ProductionSecurity(cfg.AllowedHost, limiters)
		log.Info().Msg("Production security enabled (security headers, per-IP + login rate limiting)")
	}

	router := routes.NewRouter(opts, routes.Deps{
		Users:    handlers.NewUserHandler(sessions, profiles),
		Tweets:   handlers.NewTweetHandler(tweetService, bookmarkService),
		Gate:     middleware.NewGate(codec, metrics),
		Audience: middleware.Audience(tweets, circle),
		Health: handlers.Health(map[string]handlers.Pinger{
			"mongo": func(ctx context.Context) error { return mongoDB.Client.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("Chirp backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newSender picks the mail transport named by MAIL_TRANSPORT.
func newSender(ctx context.Context, cfg *config.Config) (mail.Sender, func(), error) {
	switch cfg.MailTransport {
	case config.MailTransportSES:
		s, err := mail.NewSESSender(ctx, sesConfig(cfg))
		return s, func() {}, err
	case config.MailTransportQueue:
		client, err := broker.NewClient(cfg.RabbitMQURL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.DeclareQueue(cfg.MailQueue); err != nil {
			client.Close()
			return nil, nil, err
		}
		return mail.NewQueueSender(client, cfg.MailQueue), func() { client.Close() }, nil
	default:
		return mail.LogSender{}, func() {}, nil
	}
}

func sesConfig(cfg *config.Config) mail.SESConfig {
	return mail.SESConfig{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		FromAddress:     cfg.SESFromAddress,
	}
}
