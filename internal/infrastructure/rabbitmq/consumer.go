package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	prefetch    = 16
	sendTimeout = 15 * time.Second
)

type sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Consumer drains the email queue into a real mail transport.
type Consumer struct {
	url    string
	queue  string
	sender sender
	log    logrus.FieldLogger
}

func NewConsumer(url, queue string, s sender, log logrus.FieldLogger) *Consumer {
	return &Consumer{url: url, queue: queue, sender: s, log: log}
}

func (c *Consumer) String() string { return "email consumer " + c.queue }

// Serve consumes until ctx is cancelled or the broker connection drops.
// The returned error lets a supervisor reconnect.
func (c *Consumer) Serve(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.log.WithField("queue", c.queue).Info("email worker listening")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle sends one job. Undecodable jobs are dropped; failed sends are
// requeued.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var job EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.To == "" {
		c.log.WithError(err).Warn("dropping malformed email job")
		_ = d.Nack(false, false)
		return
	}

	sc, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := c.sender.SendEmail(sc, job.To, job.Subject, job.HTML); err != nil {
		c.log.WithError(err).WithField("subject", job.Subject).Error("send failed, requeueing")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
