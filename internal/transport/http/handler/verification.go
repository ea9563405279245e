package handler

import (
	"errors"
	"net/http"

	"github.com/go-account-chat/internal/application/session"
	"github.com/go-account-chat/internal/application/verification"
	"github.com/go-account-chat/internal/domain"
	"github.com/go-account-chat/internal/pkg/validate"
	"github.com/go-account-chat/internal/transport/http/views"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const (
	verifySuccess = `Email verified successfully. Visit <a href="/"> Home </a>`
	resendSuccess = "Verification Email Resent. Check your email to verify your email."
)

var resendMessages = validate.Messages{
	"Email.required": "Bad Request - Email field is required",
	"Email.email":    "Bad Request - Invalid Email address",
}

// VerificationHandler serves email link redemption and link resend.
type VerificationHandler struct {
	verify   verification.Service
	sessions session.Service
	cookies  *Cookies
	resp     *Responder
	log      logrus.FieldLogger
}

func NewVerificationHandler(verify verification.Service, sessions session.Service, cookies *Cookies, resp *Responder, log logrus.FieldLogger) *VerificationHandler {
	return &VerificationHandler{verify: verify, sessions: sessions, cookies: cookies, resp: resp, log: log}
}

// Verify redeems the token in the link and logs the account in.
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	a, err := h.verify.Redeem(r.Context(), chi.URLParam(r, "token"))
	if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		http.Redirect(w, r, "/resend/verification/link", http.StatusFound)
		return
	}
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	issued, err := h.sessions.Open(r.Context(), a)
	if err != nil {
		h.log.WithError(err).WithField("account_id", a.AccountID).Error("open session after verification")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.cookies.Set(w, issued.Cookie, issued.ExpiresAt)
	writeHTML(w, http.StatusOK, verifySuccess)
}

func (h *VerificationHandler) ResendForm(w http.ResponseWriter, r *http.Request) {
	if err := views.Render(w, views.Resend, nil); err != nil {
		h.resp.Error(w, r, err)
	}
}

func (h *VerificationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendRequest
	if err := bind(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(req, resendMessages); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if _, err := h.verify.Reissue(r.Context(), req.Email); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, resendSuccess)
}
