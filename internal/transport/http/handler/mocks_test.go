package handler

import (
	"context"

	"github.com/go-account-chat/internal/application/session"
	"github.com/go-account-chat/internal/domain"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountSvc) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountSvc) List(ctx context.Context, limit int, cursor string) ([]domain.Account, string, error) {
	args := m.Called(ctx, limit, cursor)
	accts, _ := args.Get(0).([]domain.Account)
	return accts, args.String(1), args.Error(2)
}
func (m *mockAccountSvc) Delete(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockVerifySvc struct{ mock.Mock }

func (m *mockVerifySvc) Stamp(a *domain.Account) (string, error) {
	args := m.Called(a)
	return args.String(0), args.Error(1)
}
func (m *mockVerifySvc) Issue(ctx context.Context, a *domain.Account) (string, error) {
	args := m.Called(ctx, a)
	return args.String(0), args.Error(1)
}
func (m *mockVerifySvc) Redeem(ctx context.Context, raw string) (*domain.Account, error) {
	args := m.Called(ctx, raw)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerifySvc) Reissue(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	args := m.Called(ctx, email, password)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionSvc) Open(ctx context.Context, a *domain.Account) (*session.Issued, error) {
	args := m.Called(ctx, a)
	if i, _ := args.Get(0).(*session.Issued); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionSvc) Login(ctx context.Context, email, password string) (*session.Issued, error) {
	args := m.Called(ctx, email, password)
	if i, _ := args.Get(0).(*session.Issued); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionSvc) Resolve(ctx context.Context, cookie string) (*domain.Session, *domain.Account, error) {
	args := m.Called(ctx, cookie)
	s, _ := args.Get(0).(*domain.Session)
	a, _ := args.Get(1).(*domain.Account)
	return s, a, args.Error(2)
}
func (m *mockSessionSvc) Close(ctx context.Context, cookie string) error {
	return m.Called(ctx, cookie).Error(0)
}
