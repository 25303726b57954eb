package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"faculty-ranker-api/config"
	"faculty-ranker-api/queue"

	"go.uber.org/zap"
)

// mail-worker drains the Kafka mail topic into the SMTP, SendGrid or console
// backend named by MAIL_WORKER_BACKEND (default smtp).
func main() {
	cfg := config.Load()

	logger, closeLogs := config.InitLogging(cfg)
	defer closeLogs()

	if cfg.KafkaBroker == "" {
		logger.Fatal("KAFKA_BROKER is required")
	}

	backend := cfg.MailWorkerBackend
	if backend == "kafka" {
		logger.Fatal("MAIL_WORKER_BACKEND cannot be kafka")
	}
	cfg.MailBackend = backend
	mailer, err := config.NewMailer(cfg)
	if err != nil {
		logger.Fatal("Failed to configure mailer", zap.Error(err))
	}

	consumer := queue.NewKafkaConsumer(
		cfg.KafkaBroker,
		cfg.KafkaTopic,
		cfg.KafkaGroupID,
		cfg.KafkaUsername,
		cfg.KafkaPassword,
		queue.NewMailHandler(mailer, cfg.NotifyTimeout),
		logger.Named("mail-worker"),
	)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Mail worker listening",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("backend", backend))
	if err := consumer.Listen(ctx); err != nil {
		logger.Error("Mail worker stopped", zap.Error(err))
	}
	logger.Info("Mail worker stopped")
}
