package handler

import (
	"errors"
	"net/http"

	"github.com/go-account-chat/internal/domain"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// publicErrors are reported to clients with their own message regardless of
// how they were wrapped.
var publicErrors = []error{
	domain.ErrDuplicateEmail,
	domain.ErrAlreadyVerified,
	domain.ErrEmailNotRegistered,
	domain.ErrBadCredentials,
	domain.ErrInvalidOrExpiredToken,
	domain.ErrStaleAccount,
}

// Responder maps service errors onto HTTP responses.
type Responder struct {
	log logrus.FieldLogger
	dev bool
}

func NewResponder(log logrus.FieldLogger, development bool) *Responder {
	return &Responder{log: log, dev: development}
}

func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, ErrorListEnvelope{Error: ve.Messages})
		return
	}
	if status := statusOf(err); status != 0 {
		writeError(w, status, publicMessage(err))
		return
	}

	rs.log.WithError(err).
		WithField("request_id", chimiddleware.GetReqID(r.Context())).
		WithField("path", r.URL.Path).
		Error("request failed")
	if rs.dev {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	return 0
}

func publicMessage(err error) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
