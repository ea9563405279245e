package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-account-chat/internal/domain"
	"github.com/go-account-chat/internal/pkg/id"
	"github.com/go-account-chat/internal/pkg/validate"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"
	"golang.org/x/crypto/bcrypt"
)

var signupMessages = validate.Messages{
	"Name.required":            "Bad Request - Name field required",
	"Email.required":           "Bad Request - Email field is required",
	"Email.email":              "Bad Request - Invalid Email address",
	"Password.required":        "Bad Request - Password field required",
	"Password.min":             "Bad Request - Password too short",
	"Password.max":             "Bad Request - Password too long",
	"ConfirmPassword.required": "Bad Request - Confirm Password field required",
	"ConfirmPassword.eqfield":  "Bad Request - Password Mismatch",
}

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Account, string, error)
	Delete(ctx context.Context, accountID string) error
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
	Delete(ctx context.Context, accountID string) error
}

type sessionStore interface {
	DeleteByAccount(ctx context.Context, accountID string) error
}

type tokenStamper interface {
	Stamp(a *domain.Account) (string, error)
}

type notifier interface {
	SendVerification(ctx context.Context, email, rawToken string) error
}

type service struct {
	repo        accountStore
	sessionRepo sessionStore
	tokens      tokenStamper
	notifier    notifier
	bcryptCost  int
	clock       abtime.AbstractTime
	log         logrus.FieldLogger
}

type ServiceDeps struct {
	AccountRepo accountStore
	SessionRepo sessionStore
	Tokens      tokenStamper
	Notifier    notifier
	BcryptCost  int
	Clock       abtime.AbstractTime
	Log         logrus.FieldLogger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:        deps.AccountRepo,
		sessionRepo: deps.SessionRepo,
		tokens:      deps.Tokens,
		notifier:    deps.Notifier,
		bcryptCost:  deps.BcryptCost,
		clock:       deps.Clock,
		log:         deps.Log,
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.clock == nil {
		s.clock = abtime.NewRealTime()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Signup registers an unverified account carrying a fresh verification token
// and mails the token. A failed mail is logged only: the account stands and
// the resend flow covers it.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = domain.NormalizeEmail(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.ConfirmPassword = strings.TrimSpace(req.ConfirmPassword)
	if err := validate.Struct(req, signupMessages); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.Now().UTC().Truncate(time.Second)
	a := &domain.Account{
		AccountID:    id.NewAt(now),
		Name:         domain.NormalizeName(req.Name),
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	raw, err := s.tokens.Stamp(a)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.notifier.SendVerification(ctx, a.Email, raw); err != nil {
		s.log.WithError(err).WithField("account_id", a.AccountID).Warn("verification email not sent at signup")
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.Get(ctx, accountID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Account, string, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

// Delete removes the account and revokes its sessions.
func (s *service) Delete(ctx context.Context, accountID string) error {
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByAccount(ctx, accountID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}
