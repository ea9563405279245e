package notification

import (
	"bytes"
	"context"
	"fmt"
	htmpl "html/template"
	"net/url"
	"time"
)

const (
	verificationSubject = "Verify Your Email"
	defaultTTL          = 24 * time.Hour
)

var verificationTmpl = htmpl.Must(htmpl.New("verify").Parse(`
<h1> Verify Your Email </h1>
<p> Click on the link below to verify account: </p>
<a href="{{.Link}}"> Verify Here </a>
<p> This link expires in {{.Lifetime}}. </p>
`))

type mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Service delivers account notifications. Delivery is best effort: failures
// are returned but never retried here.
type Service interface {
	SendVerification(ctx context.Context, email, rawToken string) error
}

type service struct {
	mailer  mailer
	baseURL string
	ttl     time.Duration
}

type ServiceDeps struct {
	Mailer          mailer
	BaseURL         string
	VerificationTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{mailer: deps.Mailer, baseURL: deps.BaseURL, ttl: deps.VerificationTTL}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	return s
}

// VerificationLink is the address a recipient follows to redeem rawToken.
func VerificationLink(baseURL, rawToken string) string {
	return baseURL + "/api/verify/email/" + url.PathEscape(rawToken)
}

func (s *service) SendVerification(ctx context.Context, email, rawToken string) error {
	var body bytes.Buffer
	err := verificationTmpl.Execute(&body, struct {
		Link     string
		Lifetime string
	}{
		Link:     VerificationLink(s.baseURL, rawToken),
		Lifetime: lifetime(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	if err := s.mailer.SendEmail(ctx, email, verificationSubject, body.String()); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// lifetime spells d out for the mail: whole hours, or hours and minutes, with
// anything under an hour in minutes rounded up.
func lifetime(d time.Duration) string {
	if d < time.Hour {
		m := int((d + time.Minute - 1) / time.Minute)
		if m < 1 {
			m = 1
		}
		return plural(m, "minute")
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if m == 0 {
		return plural(h, "hour")
	}
	return plural(h, "hour") + " " + plural(m, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
