package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-account-chat/internal/domain"
	pkgtoken "github.com/go-account-chat/internal/pkg/token"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"
)

const defaultTTL = 24 * time.Hour

// Service manages the email verification token lifecycle. Only the sha256 of
// a token is persisted; the raw value leaves through the return value and the
// notification.
type Service interface {
	// Stamp puts a fresh token on a not yet persisted account.
	Stamp(a *domain.Account) (string, error)
	Issue(ctx context.Context, a *domain.Account) (string, error)
	Redeem(ctx context.Context, rawToken string) (*domain.Account, error)
	Reissue(ctx context.Context, email string) (string, error)
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Save(ctx context.Context, a *domain.Account) error
	Redeem(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)
}

type notifier interface {
	SendVerification(ctx context.Context, email, rawToken string) error
}

type service struct {
	accounts accountStore
	notifier notifier
	ttl      time.Duration
	clock    abtime.AbstractTime
	log      logrus.FieldLogger
}

type ServiceDeps struct {
	Accounts accountStore
	Notifier notifier
	TTL      time.Duration
	Clock    abtime.AbstractTime
	Log      logrus.FieldLogger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts: deps.Accounts,
		notifier: deps.Notifier,
		ttl:      deps.TTL,
		clock:    deps.Clock,
		log:      deps.Log,
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.clock == nil {
		s.clock = abtime.NewRealTime()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *service) Stamp(a *domain.Account) (string, error) {
	raw, err := pkgtoken.New()
	if err != nil {
		return "", err
	}
	hash, err := pkgtoken.Hash(raw)
	if err != nil {
		return "", err
	}
	expires := s.clock.Now().UTC().Add(s.ttl).Truncate(time.Second)
	a.VerificationToken = hash
	a.VerificationExpires = &expires
	return raw, nil
}

func (s *service) Issue(ctx context.Context, a *domain.Account) (string, error) {
	if a.IsVerified {
		return "", fmt.Errorf("issue token: %w", domain.ErrAlreadyVerified)
	}
	prevToken, prevExpires := a.VerificationToken, a.VerificationExpires
	raw, err := s.Stamp(a)
	if err != nil {
		return "", err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		a.VerificationToken, a.VerificationExpires = prevToken, prevExpires
		return "", fmt.Errorf("issue token: %w", err)
	}
	return raw, nil
}

func (s *service) Redeem(ctx context.Context, rawToken string) (*domain.Account, error) {
	hash, err := pkgtoken.Hash(rawToken)
	if err != nil {
		return nil, fmt.Errorf("redeem token: %w", domain.ErrInvalidOrExpiredToken)
	}
	return s.accounts.Redeem(ctx, hash, s.clock.Now().UTC())
}

// Reissue replaces the pending token of the account registered under email
// and mails the new one. A stale write is retried once against a fresh read,
// which also catches a verification that landed in between.
func (s *service) Reissue(ctx context.Context, email string) (string, error) {
	var raw string
	for attempt := 0; ; attempt++ {
		a, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("reissue token: %w", domain.ErrEmailNotRegistered)
		}
		if err != nil {
			return "", err
		}
		raw, err = s.Issue(ctx, a)
		if errors.Is(err, domain.ErrStaleAccount) && attempt == 0 {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := s.notifier.SendVerification(ctx, a.Email, raw); err != nil {
			s.log.WithError(err).WithField("account_id", a.AccountID).Error("verification email not sent")
			return "", err
		}
		return raw, nil
	}
}
