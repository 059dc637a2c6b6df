// Command mailworker drains the mail queue and delivers each message through
// Amazon SES.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/AnshRaj112/chirp-backend/internal/broker"
	"github.com/AnshRaj112/chirp-backend/internal/config"
	"github.com/AnshRaj112/chirp-backend/internal/logger"
	"github.com/AnshRaj112/chirp-backend/internal/mail"
)

const prefetch = 10

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Environment)
	if cfg.SESFromAddress == "" {
		log.Fatal().Msg("SES_FROM_ADDRESS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := mail.NewSESSender(ctx, mail.SESConfig{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		FromAddress:     cfg.SESFromAddress,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up SES")
	}

	client, err := broker.NewClient(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer client.Close()

	if err := client.DeclareQueue(cfg.MailQueue); err != nil {
		log.Fatal().Err(err).Str("queue", cfg.MailQueue).Msg("failed to declare queue")
	}
	deliveries, err := client.Consume(cfg.MailQueue, prefetch)
	if err != nil {
		log.Fatal().Err(err).Str("queue", cfg.MailQueue).Msg("failed to consume")
	}

	log.Info().Str("queue", cfg.MailQueue).Msg("mail worker started")
	mail.NewWorker(sender).Run(ctx, deliveries)
	log.Info().Msg("mail worker stopped")
}
