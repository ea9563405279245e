package http

import (
	"context"
	"time"

	"github.com/go-account-chat/internal/domain"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Save(ctx context.Context, a *domain.Account) error
	// Redeem consumes a verification token atomically; see dynamo.AccountRepo.
	Redeem(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)
	Delete(ctx context.Context, accountID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error)
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteByAccount(ctx context.Context, accountID string) error
}

// Mailer is the minimal interface the router requires from a mail transport.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SessionSigner signs and verifies session cookie values.
type SessionSigner interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
	Verify(token string) (string, error)
}
