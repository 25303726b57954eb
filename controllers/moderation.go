package controllers

import (
	"net/http"

	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModerationController struct {
	moderation *services.ModerationService
	logger     *zap.Logger
}

func NewModerationController(moderation *services.ModerationService, logger *zap.Logger) *ModerationController {
	return &ModerationController{moderation: moderation, logger: loggerOrNop(logger)}
}

// ListUnverified handles GET /faculty/unverified
func (h *ModerationController) ListUnverified(c *gin.Context) {
	pending, err := h.moderation.ListUnverified(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// VerifyFaculty handles PUT /faculty/:id/verify
func (h *ModerationController) VerifyFaculty(c *gin.Context) {
	faculty, err := h.moderation.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Faculty verified",
		"faculty": faculty,
	})
}

// DeleteFaculty handles DELETE /faculty/:id
func (h *ModerationController) DeleteFaculty(c *gin.Context) {
	if err := h.moderation.Reject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Faculty deleted"})
}
