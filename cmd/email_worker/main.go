package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-account-chat/internal/config"
	"github.com/go-account-chat/internal/infrastructure/mailgun"
	"github.com/go-account-chat/internal/infrastructure/rabbitmq"
	"github.com/go-account-chat/internal/infrastructure/smtp"
	"github.com/go-account-chat/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/thejerf/suture/v4"
)

type sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.AppName+"-email-worker", cfg.AppEnv)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	var s sender
	switch cfg.WorkerMailTransport {
	case config.MailTransportMailgun:
		s = mailgun.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom)
	default:
		s = smtp.NewMailer(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The supervisor redials the broker whenever the consumer returns.
	sup := suture.NewSimple("email-worker")
	sup.Add(rabbitmq.NewConsumer(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, s, log))

	log.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker starting")
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("supervisor stopped")
		os.Exit(1)
	}
	log.Info("email worker stopped")
}
