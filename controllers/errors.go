package controllers

import (
	"errors"
	"net/http"

	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var cooldown *services.OTPCooldownError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateName), errors.Is(err, services.ErrAlreadyRated):
		return http.StatusConflict
	case errors.Is(err, services.ErrQuotaExceeded), errors.As(err, &cooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrNoPendingSignup),
		errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrFileTooLarge),
		errors.Is(err, services.ErrUnsupportedImage),
		errors.Is(err, services.ErrInvalidImageTicket):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrEmailNotAllowed), errors.Is(err, services.ErrBanned):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal failures are logged and
// answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
