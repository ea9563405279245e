package middleware

import (
	"context"
	"net/http"

	"github.com/go-account-chat/internal/domain"
)

type contextKey string

const AccountKey contextKey = "account"

// SessionResolver turns a session cookie into the logged-in account.
type SessionResolver interface {
	Resolve(ctx context.Context, cookie string) (*domain.Session, *domain.Account, error)
}

// Authenticate attaches the logged-in account to the request context when the
// session cookie resolves. Anonymous requests pass through untouched.
func Authenticate(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie(cookieName)
			if err != nil || ck.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, a, err := resolver.Resolve(r.Context(), ck.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), AccountKey, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin sends anonymous browsers to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccount rejects anonymous requests with 401. Used where a redirect
// makes no sense, such as the chat socket.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccountFromContext extracts the logged-in account from the request context.
func AccountFromContext(ctx context.Context) (*domain.Account, bool) {
	a, ok := ctx.Value(AccountKey).(*domain.Account)
	return a, ok && a != nil
}

// WithAccount returns ctx carrying a. Used by tests and internal callers.
func WithAccount(ctx context.Context, a *domain.Account) context.Context {
	return context.WithValue(ctx, AccountKey, a)
}
