package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faculty-ranker-api/config"
	"faculty-ranker-api/controllers"
	"faculty-ranker-api/middleware"
	"faculty-ranker-api/monitor"
	"faculty-ranker-api/queue"
	"faculty-ranker-api/repository"
	"faculty-ranker-api/routes"
	"faculty-ranker-api/services"
	"faculty-ranker-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, closeLogs := config.InitLogging(cfg)
	defer closeLogs()

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	mailer, closeMailer, err := openMailer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to configure mailer", zap.Error(err))
	}
	defer closeMailer()

	imageStorage, err := openImageStorage(cfg)
	if err != nil {
		logger.Fatal("Failed to configure image storage", zap.Error(err))
	}

	if err := utils.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	notifier := services.NewMailNotifier(mailer)
	tokens := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpireHours)
	images := services.NewImageService(imageStorage, tokens)
	users := services.NewUserService(store)
	faculty := services.NewFacultyService(store, services.WithDailyAddLimit(cfg.DailyAddLimit), services.WithImages(images))
	moderation := services.NewModerationService(store, notifier, images, logger.Named("moderation"), cfg.NotifyTimeout)
	auth := services.NewAuthService(store, tokens, notifier,
		services.NewGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BackendURL),
		services.AuthConfig{
			AllowedDomain: cfg.AllowedEmailDomain,
			AdminEmails:   cfg.AdminEmails,
			OTPCooldown:   cfg.OTPCooldown,
			SignupTTL:     cfg.SignupTTL,
		}, logger.Named("auth"))

	// Set Gin mode
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	if cfg.CloudinaryURL == "" {
		router.Static("/uploads", cfg.UploadPath)
	}
	monitor.RegisterMonitorPage(router, cfg.MonitorToken, config.LogFilePath(), services.NewStatsService(store))

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	routes.SetupRoutes(router, routes.Handlers{
		Auth:       controllers.NewAuthController(auth, cfg.FrontendURL, logger.Named("http")),
		Faculty:    controllers.NewFacultyController(faculty, logger.Named("http")),
		Moderation: controllers.NewModerationController(moderation, logger.Named("http")),
		Users:      controllers.NewUserController(users, logger.Named("http")),
		Images:     controllers.NewImageController(images, logger.Named("http")),
		Tokens:     tokens,
		Resolver:   users,
		Limiter:    limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreDriver),
			zap.String("mail_backend", cfg.MailBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	s := <-sigChan
	logger.Info("Received signal, attempting graceful shutdown", zap.Any("signal", s))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected successfully", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBDatabase))
	return repository.NewGormStore(db, cfg.NamedLockWait, repository.WithLogger(logger)), nil
}

func openMailer(cfg *config.Config, logger *zap.Logger) (config.Mailer, func(), error) {
	if cfg.MailBackend == "kafka" {
		if cfg.KafkaBroker == "" {
			return nil, nil, errors.New("kafka not configured (KAFKA_BROKER)")
		}
		producer := queue.NewMailProducer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword)
		return producer, func() {
			if err := producer.Close(); err != nil {
				logger.Warn("Failed to close kafka producer", zap.Error(err))
			}
		}, nil
	}

	mailer, err := config.NewMailer(cfg)
	if err != nil {
		return nil, nil, err
	}
	return mailer, func() {}, nil
}

func openImageStorage(cfg *config.Config) (services.ImageStorage, error) {
	if cfg.CloudinaryURL != "" {
		return services.NewCloudinaryStorage(cfg.CloudinaryURL)
	}
	return services.NewLocalStorage(cfg.UploadPath, cfg.BackendURL+"/uploads")
}
