package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-account-chat/internal/application/reaper"
	"github.com/go-account-chat/internal/application/relay"
	"github.com/go-account-chat/internal/config"
	"github.com/go-account-chat/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-account-chat/internal/infrastructure/jwt"
	"github.com/go-account-chat/internal/infrastructure/mailgun"
	"github.com/go-account-chat/internal/infrastructure/rabbitmq"
	redisinfra "github.com/go-account-chat/internal/infrastructure/redis"
	"github.com/go-account-chat/internal/infrastructure/smtp"
	"github.com/go-account-chat/internal/pkg/logger"
	pkgtoken "github.com/go-account-chat/internal/pkg/token"
	transporthttp "github.com/go-account-chat/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"
	"github.com/thejerf/suture/v4"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.AppName, cfg.AppEnv)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("dynamodb client")
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, log)
	accounts := dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts, cfg.DynamoTables.AccountEmails)

	ready := accounts.Ping
	var sessions transporthttp.SessionRepository
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rdb := redisinfra.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		sessions = redisinfra.NewSessionStore(rdb)
		ready = func(ctx context.Context) error {
			return errors.Join(accounts.Ping(ctx), rdb.Ping(ctx).Err())
		}
	default:
		sessions = dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	}

	mailer, closeMailer, err := newMailer(cfg, cfg.MailTransport)
	if err != nil {
		log.WithError(err).Fatal("mail transport")
	}
	defer closeMailer()

	secret := cfg.SessionSecret
	if secret == "" {
		// Validate only lets this through in development.
		if secret, err = pkgtoken.New(); err != nil {
			log.WithError(err).Fatal("generate session secret")
		}
		log.Warn("SESSION_SECRET_KEY not set, sessions will not survive a restart")
	}
	signer, err := jwtinfra.NewProvider(secret)
	if err != nil {
		log.WithError(err).Fatal("session signer")
	}

	clock := abtime.NewRealTime()
	router, err := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		AccountRepo: accounts,
		SessionRepo: sessions,
		Mailer:      mailer,
		Signer:      signer,
		Hub:         relay.NewHub(0),
		Log:         log,
		Ready:       ready,
		Clock:       clock,
		ChatContext: ctx,
	})
	if err != nil {
		log.WithError(err).Fatal("build router")
	}

	sup := suture.NewSimple("account-chat")
	sup.Add(transporthttp.NewServer(":"+cfg.Port, router, log))
	if cfg.ReaperEnabled {
		sup.Add(reaper.New(reaper.Deps{
			Accounts:  accounts,
			Retention: cfg.ReaperRetention,
			Clock:     clock,
			Log:       log,
		}))
	}

	log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("server starting")
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("supervisor stopped")
		os.Exit(1)
	}
	log.Info("server stopped")
}

// newMailer picks the outbound transport. The returned close func is never nil.
func newMailer(cfg *config.Config, transport string) (transporthttp.Mailer, func(), error) {
	switch transport {
	case config.MailTransportMailgun:
		return mailgun.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom), func() {}, nil
	case config.MailTransportQueue:
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return smtp.NewMailer(cfg), func() {}, nil
	}
}
