package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"faculty-ranker-api/config"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one message value.
type Handler interface {
	HandleMessage(ctx context.Context, value []byte) error
}

type Consumer struct {
	reader  MessageReader
	handler Handler
	logger  *zap.Logger
}

func NewKafkaConsumer(broker, topic, groupID, username, password string, handler Handler, logger *zap.Logger) *Consumer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if username != "" {
		dialer.TLS = &tls.Config{}
		dialer.SASLMechanism = plain.Mechanism{Username: username, Password: password}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{broker},
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})
	return NewConsumer(reader, handler, logger)
}

func NewConsumer(reader MessageReader, handler Handler, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, handler: handler, logger: logger}
}

// Listen fetches until ctx is cancelled. A message is committed once the
// handler has run, even if the handler failed.
func (c *Consumer) Listen(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("read error", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.handler.HandleMessage(ctx, msg.Value); err != nil {
			c.logger.Error("handler error",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit error", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MailHandler delivers queued mails through a real Mailer backend.
type MailHandler struct {
	mailer  config.Mailer
	timeout time.Duration
}

func NewMailHandler(mailer config.Mailer, timeout time.Duration) *MailHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MailHandler{mailer: mailer, timeout: timeout}
}

func (h *MailHandler) HandleMessage(ctx context.Context, value []byte) error {
	var msg MailMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("decode mail message: %w", err)
	}
	if len(msg.To) == 0 {
		return errors.New("mail message has no recipients")
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.mailer.Send(sendCtx, msg.To, msg.Subject, msg.HTML)
}
