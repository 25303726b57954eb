package controllers

import (
	"net/http"

	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserController struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewUserController(users *services.UserService, logger *zap.Logger) *UserController {
	return &UserController{users: users, logger: loggerOrNop(logger)}
}

// GetProfile returns current user profile
func (h *UserController) GetProfile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetDashboard returns the current user's profile and activity log
func (h *UserController) GetDashboard(c *gin.Context) {
	dashboard, err := h.users.Dashboard(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// ListUsers handles GET /users
func (h *UserController) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type BanRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// SetBanned handles PUT /users/:id/ban
func (h *UserController) SetBanned(c *gin.Context) {
	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Param("id") == c.GetString("userID") && *req.Banned {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot ban yourself"})
		return
	}

	user, err := h.users.SetBanned(c.Request.Context(), c.Param("id"), *req.Banned)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "User unbanned"
	if user.Banned {
		message = "User banned"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "user": user})
}
