package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-account-chat/internal/domain"
	"github.com/go-account-chat/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	args := m.Called(ctx, limit, cursor)
	return args.Get(0).([]domain.Account), args.String(1), args.Error(2)
}
func (m *mockAccountStore) Delete(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) DeleteByAccount(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockStamper struct{ mock.Mock }

func (m *mockStamper) Stamp(a *domain.Account) (string, error) {
	args := m.Called(a)
	if args.Error(1) == nil {
		exp := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		a.VerificationToken = "hash-of-" + args.String(0)
		a.VerificationExpires = &exp
	}
	return args.String(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendVerification(ctx context.Context, email, rawToken string) error {
	return m.Called(ctx, email, rawToken).Error(0)
}

// --- helpers ---

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *mockAccountStore
	sessions *mockSessionStore
	stamper  *mockStamper
	notifier *mockNotifier
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		store:    &mockAccountStore{},
		sessions: &mockSessionStore{},
		stamper:  &mockStamper{},
		notifier: &mockNotifier{},
	}
	f.svc = NewService(ServiceDeps{
		AccountRepo: f.store,
		SessionRepo: f.sessions,
		Tokens:      f.stamper,
		Notifier:    f.notifier,
		BcryptCost:  bcrypt.MinCost,
		Clock:       abtime.NewManualAtTime(epoch),
		Log:         logger.Discard(),
	})
	return f
}

func validSignup() domain.SignupRequest {
	return domain.SignupRequest{
		Name:            "  aDA ",
		Email:           " Ada@Example.COM ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

// --- Signup ---

func TestSignup_CreatesUnverifiedAccountAndMails(t *testing.T) {
	f := newFixture()
	f.stamper.On("Stamp", mock.AnythingOfType("*domain.Account")).Return("raw-token", nil)
	f.store.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)
	f.notifier.On("SendVerification", mock.Anything, "ada@example.com", "raw-token").Return(nil)

	a, err := f.svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.Equal(t, "Ada", a.Name)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.False(t, a.IsVerified)
	assert.Nil(t, a.VerifiedAt)
	assert.Equal(t, epoch, a.CreatedAt)
	assert.Equal(t, "hash-of-raw-token", a.VerificationToken)
	assert.NotEmpty(t, a.AccountID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("secret1")))
	assert.NotContains(t, a.PasswordHash, "secret1")
	f.notifier.AssertExpectations(t)
}

func TestSignup_ValidationMessages(t *testing.T) {
	cases := []struct {
		name string
		req  domain.SignupRequest
		want []string
	}{
		{
			name: "all empty",
			req:  domain.SignupRequest{},
			want: []string{
				"Bad Request - Name field required",
				"Bad Request - Email field is required",
				"Bad Request - Password field required",
				"Bad Request - Confirm Password field required",
			},
		},
		{
			name: "bad email and short password",
			req:  domain.SignupRequest{Name: "ada", Email: "nope", Password: "123", ConfirmPassword: "123"},
			want: []string{"Bad Request - Invalid Email address", "Bad Request - Password too short"},
		},
		{
			name: "mismatch",
			req:  domain.SignupRequest{Name: "ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret2"},
			want: []string{"Bad Request - Password Mismatch"},
		},
		{
			name: "whitespace only name",
			req:  domain.SignupRequest{Name: "   ", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"},
			want: []string{"Bad Request - Name field required"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Signup(context.Background(), tc.req)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.want, ve.Messages)
			f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newFixture()
	f.stamper.On("Stamp", mock.Anything).Return("raw-token", nil)
	f.store.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("create account: %w", domain.ErrDuplicateEmail))

	_, err := f.svc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	f.notifier.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_MailFailureKeepsAccount(t *testing.T) {
	f := newFixture()
	f.stamper.On("Stamp", mock.Anything).Return("raw-token", nil)
	f.store.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("SendVerification", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	a, err := f.svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	assert.Equal(t, "hash-of-raw-token", a.VerificationToken)
}

// --- List / Delete ---

func TestList_ClampsLimit(t *testing.T) {
	f := newFixture()
	f.store.On("ScanPage", mock.Anything, int32(50), "").Return([]domain.Account{}, "", nil)

	_, _, err := f.svc.List(context.Background(), 0, "")
	require.NoError(t, err)
	_, _, err = f.svc.List(context.Background(), 1000, "")
	require.NoError(t, err)
	f.store.AssertNumberOfCalls(t, "ScanPage", 2)
}

func TestDelete_RevokesSessions(t *testing.T) {
	f := newFixture()
	f.store.On("Delete", mock.Anything, "acc-1").Return(nil)
	f.sessions.On("DeleteByAccount", mock.Anything, "acc-1").Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), "acc-1"))
	f.sessions.AssertExpectations(t)
}

func TestDelete_NotFound(t *testing.T) {
	f := newFixture()
	f.store.On("Delete", mock.Anything, "ghost").Return(fmt.Errorf("account not found: %w", domain.ErrNotFound))

	err := f.svc.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.sessions.AssertNotCalled(t, "DeleteByAccount", mock.Anything, mock.Anything)
}
