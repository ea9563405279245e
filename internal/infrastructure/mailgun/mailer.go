package mailgun

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

// Mailer sends HTML emails through the Mailgun API.
type Mailer struct {
	client mg.Mailgun
	sender string
}

func NewMailer(domain, apiKey, sender string) *Mailer {
	return &Mailer{client: mg.NewMailgun(domain, apiKey), sender: sender}
}

func (m *Mailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	msg := m.client.NewMessage(m.sender, subject, "", to)
	msg.SetHtml(htmlBody)
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
