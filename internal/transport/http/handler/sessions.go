package handler

import (
	"errors"
	"net/http"

	"github.com/go-account-chat/internal/application/session"
	"github.com/go-account-chat/internal/domain"
	"github.com/go-account-chat/internal/transport/http/views"
	"github.com/sirupsen/logrus"
)

// SessionHandler handles login and logout.
type SessionHandler struct {
	svc     session.Service
	cookies *Cookies
	resp    *Responder
	log     logrus.FieldLogger
}

func NewSessionHandler(svc session.Service, cookies *Cookies, resp *Responder, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{svc: svc, cookies: cookies, resp: resp, log: log}
}

func (h *SessionHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := views.Render(w, views.Login, nil); err != nil {
		h.resp.Error(w, r, err)
	}
}

// Login sends the browser home with a fresh session cookie, or back to the
// login form on any failure.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := bind(w, r, &req); err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	issued, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrBadCredentials) {
			h.log.WithError(err).Error("login failed")
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.cookies.Set(w, issued.Cookie, issued.ExpiresAt)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie := h.cookies.Read(r); cookie != "" {
		if err := h.svc.Close(r.Context(), cookie); err != nil {
			h.log.WithError(err).Error("logout")
		}
	}
	h.cookies.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
