package handler

import (
	"net/http"
	"strconv"

	"github.com/go-account-chat/internal/application/account"
	"github.com/go-account-chat/internal/domain"
	"github.com/go-account-chat/internal/transport/http/views"
	"github.com/go-chi/chi/v5"
)

const signupSuccess = "Registration Successful. Please check your email to verify your email."

// AccountHandler serves registration and the administrative account routes.
type AccountHandler struct {
	svc  account.Service
	resp *Responder
}

func NewAccountHandler(svc account.Service, resp *Responder) *AccountHandler {
	return &AccountHandler{svc: svc, resp: resp}
}

func (h *AccountHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	if err := views.Render(w, views.Signup, nil); err != nil {
		h.resp.Error(w, r, err)
	}
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := bind(w, r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if _, err := h.svc.Signup(r.Context(), req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, signupSuccess)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	accounts, next, err := h.svc.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	writeJSON(w, http.StatusOK, AccountsPageEnvelope{Data: accounts, NextCursor: next})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
