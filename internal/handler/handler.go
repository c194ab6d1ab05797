package handler

import (
	"easyconnect-server/internal/config"
	"easyconnect-server/internal/service"

	"github.com/gin-gonic/gin"
)

// NotificationHandler обслуживает HTTP API уведомлений и токенов устройств.
type NotificationHandler struct {
	notifications service.NotificationService
	deviceTokens  service.DeviceTokenService
	dispatcher    *service.Dispatcher
	notifier      *service.Notifier
	cfg           *config.Config
}

func NewNotificationHandler(
	notifications service.NotificationService,
	deviceTokens service.DeviceTokenService,
	dispatcher *service.Dispatcher,
	notifier *service.Notifier,
	cfg *config.Config,
) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		deviceTokens:  deviceTokens,
		dispatcher:    dispatcher,
		notifier:      notifier,
		cfg:           cfg,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(h.AuthMiddleware(), h.UnreadCountsMiddleware())
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.listNotifications)
			notifications.GET("/unread", h.listUnread)
			notifications.GET("/urgent", h.listUrgent)
			notifications.GET("/statistics", h.getStatistics)
			notifications.GET("/:id", h.getNotification)
			notifications.PATCH("/:id/read", h.markRead)
			notifications.PATCH("/read-all", h.markAllRead)
			notifications.PATCH("/:id/archive", h.archiveNotification)
			notifications.PATCH("/archive-read", h.archiveRead)
			notifications.DELETE("/archived", h.deleteArchived)
		}

		deviceTokens := api.Group("/device-tokens")
		{
			deviceTokens.POST("", h.registerDeviceToken)
			deviceTokens.GET("", h.listDeviceTokens)
			deviceTokens.DELETE("", h.unregisterDeviceToken)
		}
	}

	// Межсервисные эндпоинты: другие бэкенды отправляют уведомления через них
	internal := router.Group("/internal/notifications")
	internal.Use(h.InternalAuthMiddleware())
	{
		internal.POST("/dispatch", h.dispatchNotification)
		internal.POST("/broadcast", h.broadcastToRole)
	}
}
