package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"faculty-ranker-api/models"
	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
)

// UserResolver loads the account behind a token.
type UserResolver interface {
	ActiveUser(ctx context.Context, id string) (*models.User, error)
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return "", false
		}
		return strings.TrimSpace(tokenString), true
	}
	// OAuth redirects hand the token to the frontend in the query string.
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// AuthMiddleware validates the JWT and loads the user.
func AuthMiddleware(tokens *services.TokenIssuer, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := tokenFromRequest(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Check the user still exists and is allowed in
		user, err := users.ActiveUser(c.Request.Context(), claims.UserID)
		switch {
		case errors.Is(err, services.ErrBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "Your account has been banned."})
			c.Abort()
			return
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			c.Abort()
			return
		}

		// Role comes from the stored user so demotions apply before token expiry.
		c.Set("userID", user.UserID)
		c.Set("email", user.Email)
		c.Set("role", user.Role)

		c.Next()
	}
}

// RequireRole checks if user has specific role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("role")
		if userRole == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			c.Abort()
			return
		}

		allowed := false
		for _, role := range roles {
			if userRole == role {
				allowed = true
				break
			}
		}

		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}
