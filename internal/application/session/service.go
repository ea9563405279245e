package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-account-chat/internal/domain"
	pkgtoken "github.com/go-account-chat/internal/pkg/token"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"
	"golang.org/x/crypto/bcrypt"
)

const defaultTTL = 24 * time.Hour

// Issued is the result of opening a session: the signed cookie value and the
// stored session it points at.
type Issued struct {
	Cookie    string
	ExpiresAt time.Time
	Session   *domain.Session
}

type Service interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Account, error)
	Open(ctx context.Context, a *domain.Account) (*Issued, error)
	Login(ctx context.Context, email, password string) (*Issued, error)
	Resolve(ctx context.Context, cookie string) (*domain.Session, *domain.Account, error)
	Close(ctx context.Context, cookie string) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type signer interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
	Verify(token string) (string, error)
}

type service struct {
	accounts        accountStore
	sessions        sessionStore
	signer          signer
	ttl             time.Duration
	requireVerified bool
	dummyHash       []byte
	clock           abtime.AbstractTime
	log             logrus.FieldLogger
}

type ServiceDeps struct {
	Accounts        accountStore
	Sessions        sessionStore
	Signer          signer
	TTL             time.Duration
	RequireVerified bool
	BcryptCost      int
	Clock           abtime.AbstractTime
	Log             logrus.FieldLogger
}

func NewService(deps ServiceDeps) (Service, error) {
	s := &service{
		accounts:        deps.Accounts,
		sessions:        deps.Sessions,
		signer:          deps.Signer,
		ttl:             deps.TTL,
		requireVerified: deps.RequireVerified,
		clock:           deps.Clock,
		log:             deps.Log,
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
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Unknown emails are compared against this hash so they cost the same as
	// a wrong password.
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrBadCredentials
	}
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.WithError(err).Error("load account for login")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	if s.requireVerified && !a.IsVerified {
		return nil, domain.ErrBadCredentials
	}
	return a, nil
}

func (s *service) Open(ctx context.Context, a *domain.Account) (*Issued, error) {
	sid, err := pkgtoken.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC().Truncate(time.Second)
	sess := &domain.Session{
		SessionID: sid,
		AccountID: a.AccountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	cookie, err := s.signer.Sign(sid, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Issued{Cookie: cookie, ExpiresAt: sess.ExpiresAt, Session: sess}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Issued, error) {
	a, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, a)
}

// Resolve maps a cookie value to its live session and account. Every failure
// is reported as ErrUnauthorized; sessions that are expired or whose account
// is gone are removed on the way.
func (s *service) Resolve(ctx context.Context, cookie string) (*domain.Session, *domain.Account, error) {
	if strings.TrimSpace(cookie) == "" {
		return nil, nil, domain.ErrUnauthorized
	}
	sid, err := s.signer.Verify(cookie)
	if err != nil {
		return nil, nil, fmt.Errorf("verify cookie: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.WithError(err).Error("load session")
		}
		return nil, nil, fmt.Errorf("load session: %w", domain.ErrUnauthorized)
	}
	if sess.Expired(s.clock.Now()) {
		s.drop(ctx, sid)
		return nil, nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	a, err := s.accounts.Get(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.drop(ctx, sid)
		} else {
			s.log.WithError(err).Error("load session account")
		}
		return nil, nil, fmt.Errorf("load account: %w", domain.ErrUnauthorized)
	}
	return sess, a, nil
}

func (s *service) Close(ctx context.Context, cookie string) error {
	sid, err := s.signer.Verify(cookie)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sid); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *service) drop(ctx context.Context, sid string) {
	if err := s.sessions.Delete(ctx, sid); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.WithError(err).Warn("drop session")
	}
}
