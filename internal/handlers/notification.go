// internal/handlers/notification.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GET /notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	notifications, total, err := h.notificationService.List(c.Request.Context(), middleware.GetActor(c), params, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(notifications, total, params)
	utils.PaginatedResponse(c, result)
}

// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"notification": notification,
	})
}
