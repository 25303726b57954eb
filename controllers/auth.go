package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"faculty-ranker-api/models"
	"faculty-ranker-api/services"
	"faculty-ranker-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthController struct {
	auth        *services.AuthService
	frontendURL string
	logger      *zap.Logger
}

func NewAuthController(auth *services.AuthService, frontendURL string, logger *zap.Logger) *AuthController {
	return &AuthController{auth: auth, frontendURL: frontendURL, logger: loggerOrNop(logger)}
}

type RequestOTPRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phno     string `json:"phno" binding:"required,phone"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Message string       `json:"message"`
}

// RequestOTP handles POST /auth/request-otp
func (h *AuthController) RequestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if ok, msg := utils.ValidatePassword(req.Password); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	err := h.auth.RequestOTP(c.Request.Context(), services.SignupInput{
		Username: utils.SanitizeInput(req.Name),
		Email:    req.Email,
		Phno:     req.Phno,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent. Verify to complete signup."})
}

// VerifyOTP handles POST /auth/verify-otp
func (h *AuthController) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, LoginResponse{Token: token, User: user, Message: "Signup successful"})
}

// SignIn handles POST /auth/signin
func (h *AuthController) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("user signed in", zap.String("user_id", user.UserID))
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: user, Message: "Sign-in successful"})
}

// Logout is stateless; the client drops its token.
func (h *AuthController) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GoogleLogin handles GET /auth/google
func (h *AuthController) GoogleLogin(c *gin.Context) {
	if !h.auth.OAuthEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google login is not configured"})
		return
	}
	authURL, err := h.auth.GoogleAuthURL()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback handles GET /auth/google/callback and always redirects to the frontend.
func (h *AuthController) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+url.QueryEscape(errParam))
		return
	}

	token, user, err := h.auth.GoogleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	switch {
	case errors.Is(err, services.ErrEmailNotAllowed):
		c.Redirect(http.StatusFound, h.frontendURL+"/403")
		return
	case errors.Is(err, services.ErrBanned):
		c.Redirect(http.StatusFound, h.frontendURL+"/banned?reason="+url.QueryEscape("Your account is banned"))
		return
	case err != nil:
		h.logger.Error("google callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.frontendURL+"/login?error=oauth_failed")
		return
	}

	target := "/facultyList"
	if user.IsAdmin() {
		target = "/users"
	}
	c.Redirect(http.StatusFound, h.frontendURL+target+"?token="+url.QueryEscape(token))
}
