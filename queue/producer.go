// Package queue moves outbound mail through Kafka so the API never waits on
// an SMTP relay.
package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// MailMessage is the payload published for every outbound mail.
type MailMessage struct {
	To       []string  `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	QueuedAt time.Time `json:"queued_at"`
}

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MailProducer publishes mails to a Kafka topic. It satisfies config.Mailer.
type MailProducer struct {
	writer MessageWriter
	now    func() time.Time
}

func NewMailProducer(broker, topic, username, password string) *MailProducer {
	transport := &kafka.Transport{}
	if username != "" {
		transport.SASL = plain.Mechanism{Username: username, Password: password}
		transport.TLS = &tls.Config{}
	}

	return NewMailProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Transport:    transport,
		WriteTimeout: 10 * time.Second,
	})
}

func NewMailProducerWithWriter(w MessageWriter) *MailProducer {
	return &MailProducer{writer: w, now: time.Now}
}

func (p *MailProducer) Send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if p == nil || p.writer == nil {
		return errors.New("kafka producer not ready")
	}

	now := p.now()
	value, err := json.Marshal(MailMessage{To: to, Subject: subject, HTML: html, QueuedAt: now})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strings.Join(to, ",")),
		Value: value,
		Time:  now,
	})
}

func (p *MailProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
