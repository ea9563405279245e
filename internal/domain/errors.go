package domain

import (
	"errors"
	"strings"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// Account lifecycle failures. Each one also matches the broader sentinel it
// refines, so errors.Is(err, ErrConflict) holds for ErrDuplicateEmail.
var (
	ErrDuplicateEmail        = &refined{msg: "Bad Request - Email already registered", base: ErrConflict}
	ErrAlreadyVerified       = &refined{msg: "Bad Request - Email already verified", base: ErrConflict}
	ErrStaleAccount          = &refined{msg: "account was modified concurrently", base: ErrConflict}
	ErrBadCredentials        = &refined{msg: "Incorrect Email or Password", base: ErrUnauthorized}
	ErrInvalidOrExpiredToken = &refined{msg: "verification link is invalid or has expired", base: ErrBadRequest}
	ErrEmailNotRegistered    = &refined{msg: "Bad Request - Email not registered", base: ErrNotFound}
)

type refined struct {
	msg  string
	base error
}

func (e *refined) Error() string { return e.msg }

func (e *refined) Is(target error) bool { return target == e.base }

// ValidationError carries every field message produced by a failed validation.
type ValidationError struct {
	Messages []string
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrBadRequest }
