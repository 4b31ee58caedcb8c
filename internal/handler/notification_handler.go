package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskreminder/internal/notify"
)

// NotificationHandler exposes the runtime permission state. Alerts are
// suppressed, not failed, while permission is absent, and the scheduler
// retries them once permission arrives.
type NotificationHandler struct {
	gate   *notify.Gate
	logger *zap.Logger
}

func NewNotificationHandler(gate *notify.Gate, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{gate: gate, logger: logger}
}

func (h *NotificationHandler) GetPermission(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permission": h.gate.State()})
}

func (h *NotificationHandler) SetPermission(c *gin.Context) {
	var req struct {
		Permission string `json:"permission"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	state := notify.PermissionState(req.Permission)
	switch state {
	case notify.PermissionDefault, notify.PermissionGranted, notify.PermissionDenied:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "permission must be default, granted or denied"})
		return
	}

	h.gate.Set(state)
	h.logger.Info("Notification permission updated", zap.String("permission", string(state)))
	c.JSON(http.StatusOK, gin.H{"permission": state})
}
