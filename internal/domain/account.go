package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Verification states mirrored into the status attribute so unverified
// accounts can be found by creation time.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

type Account struct {
	AccountID           string     `json:"id" dynamodbav:"account_id"`
	Name                string     `json:"name" dynamodbav:"name"`
	Email               string     `json:"email" dynamodbav:"email"`
	PasswordHash        string     `json:"-" dynamodbav:"password_hash"`
	IsVerified          bool       `json:"is_verified" dynamodbav:"is_verified"`
	Status              string     `json:"-" dynamodbav:"status"`
	VerifiedAt          *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at,unixtime,omitempty"`
	VerificationToken   string     `json:"-" dynamodbav:"verification_token,omitempty"`
	VerificationExpires *time.Time `json:"-" dynamodbav:"verification_expires,unixtime,omitempty"`
	CreatedAt           time.Time  `json:"created" dynamodbav:"created_at,unixtime"`
	Version             int64      `json:"-" dynamodbav:"version"`
}

// Validate checks the invariants every persisted account must hold.
func (a *Account) Validate() error {
	var msgs []string
	if strings.TrimSpace(a.Name) == "" {
		msgs = append(msgs, "name is required")
	}
	if addr, err := mail.ParseAddress(a.Email); err != nil || addr.Address != a.Email || a.Email != NormalizeEmail(a.Email) {
		msgs = append(msgs, "email is invalid")
	}
	if a.PasswordHash == "" {
		msgs = append(msgs, "password hash is required")
	}
	if len(msgs) > 0 {
		return NewValidationError(msgs...)
	}
	return nil
}

// SyncStatus derives Status from IsVerified.
func (a *Account) SyncStatus() {
	if a.IsVerified {
		a.Status = StatusVerified
		return
	}
	a.Status = StatusPending
}

// NormalizeName trims the name and capitalizes it: first letter upper, the rest lower.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r := []rune(strings.ToLower(name))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type SignupRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type ResendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
