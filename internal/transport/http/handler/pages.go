package handler

import (
	"net/http"

	"github.com/go-account-chat/internal/transport/http/middleware"
	"github.com/go-account-chat/internal/transport/http/views"
)

// PageHandler renders the pages behind login.
type PageHandler struct {
	resp *Responder
}

func NewPageHandler(resp *Responder) *PageHandler { return &PageHandler{resp: resp} }

func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	a, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := views.Render(w, views.Profile, a); err != nil {
		h.resp.Error(w, r, err)
	}
}

func (h *PageHandler) CustomerService(w http.ResponseWriter, r *http.Request) {
	if err := views.Render(w, views.Service, nil); err != nil {
		h.resp.Error(w, r, err)
	}
}
