package http

import (
	"context"
	"net/http"

	"github.com/go-account-chat/internal/application/account"
	"github.com/go-account-chat/internal/application/notification"
	"github.com/go-account-chat/internal/application/relay"
	"github.com/go-account-chat/internal/application/session"
	"github.com/go-account-chat/internal/application/verification"
	"github.com/go-account-chat/internal/config"
	"github.com/go-account-chat/internal/transport/http/handler"
	appmiddleware "github.com/go-account-chat/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo AccountRepository
	SessionRepo SessionRepository
	Mailer      Mailer
	Signer      SessionSigner
	Hub         *relay.Hub
	Log         logrus.FieldLogger

	// Ready backs /health-check/ready. Optional.
	Ready func(ctx context.Context) error
	// Clock defaults to the real clock.
	Clock abtime.AbstractTime
	// ChatContext bounds chat connections, which outlive their opening
	// request. Defaults to context.Background.
	ChatContext context.Context
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, error) {
	clock := deps.Clock
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	chatCtx := deps.ChatContext
	if chatCtx == nil {
		chatCtx = context.Background()
	}
	hub := deps.Hub
	if hub == nil {
		hub = relay.NewHub(0)
	}

	notifySvc := notification.NewService(notification.ServiceDeps{
		Mailer:          deps.Mailer,
		BaseURL:         cfg.BaseURL,
		VerificationTTL: cfg.VerificationTTL,
	})
	verifySvc := verification.NewService(verification.ServiceDeps{
		Accounts: deps.AccountRepo,
		Notifier: notifySvc,
		TTL:      cfg.VerificationTTL,
		Clock:    clock,
		Log:      deps.Log,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		SessionRepo: deps.SessionRepo,
		Tokens:      verifySvc,
		Notifier:    notifySvc,
		BcryptCost:  cfg.BcryptCost,
		Clock:       clock,
		Log:         deps.Log,
	})
	sessionSvc, err := session.NewService(session.ServiceDeps{
		Accounts:        deps.AccountRepo,
		Sessions:        deps.SessionRepo,
		Signer:          deps.Signer,
		TTL:             cfg.SessionTTL,
		RequireVerified: cfg.RequireVerifiedLogin,
		BcryptCost:      cfg.BcryptCost,
		Clock:           clock,
		Log:             deps.Log,
	})
	if err != nil {
		return nil, err
	}

	resp := handler.NewResponder(deps.Log, cfg.IsDevelopment())
	cookies := handler.NewCookies(cfg.SessionCookieName, !cfg.IsDevelopment())

	healthH := handler.NewHealthHandler(deps.Ready)
	accountH := handler.NewAccountHandler(accountSvc, resp)
	verifyH := handler.NewVerificationHandler(verifySvc, sessionSvc, cookies, resp, deps.Log)
	sessionH := handler.NewSessionHandler(sessionSvc, cookies, resp, deps.Log)
	pageH := handler.NewPageHandler(resp)
	chatH := handler.NewChatHandler(chatCtx, hub, deps.Log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", appmiddleware.AdminKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appmiddleware.Authenticate(sessionSvc, cfg.SessionCookieName))
	r.NotFound(handler.NotFound)

	// ── Public routes ─────────────────────────────────────────────────────
	r.Get("/health-check/{action}", healthH.Check)
	r.Get("/signup", accountH.SignupForm)
	r.Post("/signup", accountH.Signup)
	r.Get("/api/verify/email/{token}", verifyH.Verify)
	r.Get("/resend/verification/link", verifyH.ResendForm)
	r.Post("/resend/verification/link", verifyH.Resend)
	r.Get("/login", sessionH.LoginForm)
	r.Post("/login", sessionH.Login)
	r.Get("/logout", sessionH.Logout)

	// ── Logged-in routes ──────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.RequireLogin)

		r.Get("/", pageH.Profile)
		r.Get("/customer-service", pageH.CustomerService)
	})
	r.With(appmiddleware.RequireAccount).Handle(handler.ChatPrefix+"/*", chatH)

	// ── Admin routes ──────────────────────────────────────────────────────
	if cfg.AdminAPIKey != "" {
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireAdminKey(cfg.AdminAPIKey))

			r.Get("/users", accountH.List)
			r.Delete("/user/{id}", accountH.Delete)
		})
	}

	return r, nil
}
